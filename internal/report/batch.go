package report

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/ats/pkg/repository"
)

// maxParallel bounds the queries one batch keeps in flight.
const maxParallel = 8

// batch fans independent store queries out and joins them. The first
// failure cancels the batch context and is returned by wait.
type batch struct {
	ctx   context.Context
	group *errgroup.Group
	store repository.Store
}

func newBatch(ctx context.Context, store repository.Store) *batch {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	return &batch{ctx: gctx, group: g, store: store}
}

func (b *batch) run(fn func(ctx context.Context) error) {
	b.group.Go(func() error { return fn(b.ctx) })
}

func (b *batch) count(dst *int64, c repository.Collection, where ...repository.Cond) {
	b.run(func(ctx context.Context) error {
		n, err := b.store.Count(ctx, c, where...)
		*dst = n
		return err
	})
}

func (b *batch) sum(dst *float64, c repository.Collection, field string, where ...repository.Cond) {
	b.run(func(ctx context.Context) error {
		v, err := b.store.Sum(ctx, c, field, where...)
		*dst = v
		return err
	})
}

func (b *batch) groupBy(dst *[]repository.Group, c repository.Collection, q repository.GroupQuery) {
	b.run(func(ctx context.Context) error {
		g, err := b.store.GroupBy(ctx, c, q)
		*dst = g
		return err
	})
}

func (b *batch) wait() error {
	return b.group.Wait()
}
