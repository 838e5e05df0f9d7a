package sqlstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/garnizeh/ats/internal/jobs"
	"github.com/garnizeh/ats/pkg/repository"
)

// Store implements the repository contracts and the notification outbox
// over either SQLite or Postgres.
type Store struct {
	conn   Conn
	logger *slog.Logger
}

var _ repository.Store = (*Store)(nil)
var _ jobs.Queue = (*Store)(nil)

func New(conn Conn, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{conn: conn, logger: logger}
}

// Dialect reports the driver flavour behind the store.
func (s *Store) Dialect() Dialect { return s.conn.Dialect() }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", classify(err))
	}
	return nil
}

func (s *Store) Count(ctx context.Context, c repository.Collection, where ...repository.Cond) (int64, error) {
	t, err := lookup(c)
	if err != nil {
		return 0, err
	}
	b := &builder{t: t, dialect: s.conn.Dialect()}
	w, err := b.where(where)
	if err != nil {
		return 0, err
	}

	var n int64
	q := `SELECT COUNT(*) FROM ` + t.name + ` t` + w
	if err := s.conn.QueryRow(ctx, q, b.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c, classify(err))
	}
	return n, nil
}

func (s *Store) Sum(ctx context.Context, c repository.Collection, field string, where ...repository.Cond) (float64, error) {
	t, err := lookup(c)
	if err != nil {
		return 0, err
	}
	b := &builder{t: t, dialect: s.conn.Dialect()}
	col, err := b.col(field)
	if err != nil {
		return 0, err
	}
	w, err := b.where(where)
	if err != nil {
		return 0, err
	}

	var total float64
	q := `SELECT COALESCE(SUM(` + col + `), 0) FROM ` + t.name + ` t` + w
	if err := s.conn.QueryRow(ctx, q, b.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum %s.%s: %w", c, field, classify(err))
	}
	return total, nil
}

// GroupBy buckets a collection by one field. NULL and empty keys share the
// "" bucket. Buckets are ordered by their oldest record.
func (s *Store) GroupBy(ctx context.Context, c repository.Collection, gq repository.GroupQuery) ([]repository.Group, error) {
	t, err := lookup(c)
	if err != nil {
		return nil, err
	}
	b := &builder{t: t, dialect: s.conn.Dialect()}
	by, err := b.col(gq.By)
	if err != nil {
		return nil, err
	}
	sum := "CAST(0 AS DOUBLE PRECISION)"
	if gq.Sum != "" {
		col, err := b.col(gq.Sum)
		if err != nil {
			return nil, err
		}
		sum = "COALESCE(SUM(" + col + "), 0)"
	}
	w, err := b.where(gq.Where)
	if err != nil {
		return nil, err
	}

	key := `COALESCE(CAST(` + by + ` AS TEXT), '')`
	q := `SELECT ` + key + `, COUNT(*), ` + sum +
		` FROM ` + t.name + ` t` + w +
		` GROUP BY ` + key + ` ORDER BY MIN(t.id) ASC`

	rows, err := s.conn.Query(ctx, q, b.args...)
	if err != nil {
		return nil, fmt.Errorf("group %s by %s: %w", c, gq.By, classify(err))
	}
	defer rows.Close()

	out := make([]repository.Group, 0)
	for rows.Next() {
		var g repository.Group
		if err := rows.Scan(&g.Key, &g.Count, &g.Sum); err != nil {
			return nil, fmt.Errorf("group %s scan: %w", c, classify(err))
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("group %s rows: %w", c, classify(err))
	}
	return out, nil
}
