// Package cache keeps the most recent result of an expensive computation for
// a short freshness window.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long an entry is served without recomputation.
const DefaultTTL = 5 * time.Minute

// Lookup results recorded on the requests counter.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Entry is a cached payload plus the moment it was computed.
type Entry struct {
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Backend stores entries by key. Get reports ok=false when nothing is stored.
type Backend interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry, ttl time.Duration) error
}

// ComputeFunc produces the value to cache. It is marshalled to JSON.
type ComputeFunc func(ctx context.Context) (any, error)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by the cache. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

type Cache struct {
	backend  Backend
	ttl      time.Duration
	now      func() time.Time
	group    singleflight.Group
	requests *prometheus.CounterVec
}

type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRequests counts lookups by result (hit, miss, error). The vector must
// have a single "result" label.
func WithRequests(v *prometheus.CounterVec) Option {
	return func(c *Cache) { c.requests = v }
}

func New(backend Backend, opts ...Option) *Cache {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	c := &Cache{backend: backend, ttl: DefaultTTL, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) fresh(e Entry) bool {
	return c.now().Sub(e.CreatedAt) < c.ttl
}

// Fetch serves the entry for key while it is fresh, otherwise computes,
// stores and returns a new one. cached reports whether the entry came from
// the backend. A failed computation is returned as is and nothing is stored.
func (c *Cache) Fetch(ctx context.Context, key string, compute ComputeFunc) (Entry, bool, error) {
	if e, ok := c.lookup(ctx, key); ok {
		c.observe(ResultHit)
		return e, true, nil
	}

	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		// another caller may have filled the key while we waited
		if e, ok := c.lookup(ctx, key); ok {
			return hit{e}, nil
		}
		return c.compute(ctx, key, compute)
	})
	if err != nil {
		c.observe(ResultError)
		return Entry{}, false, err
	}
	if h, ok := v.(hit); ok {
		c.observe(ResultHit)
		return h.Entry, true, nil
	}
	c.observe(ResultMiss)
	return v.(Entry), false, nil
}

// Refresh recomputes key unconditionally and overwrites the stored entry on
// success.
func (c *Cache) Refresh(ctx context.Context, key string, compute ComputeFunc) (Entry, error) {
	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		return c.compute(ctx, key, compute)
	})
	if err != nil {
		return Entry{}, err
	}
	if h, ok := v.(hit); ok {
		return h.Entry, nil
	}
	return v.(Entry), nil
}

type hit struct{ Entry }

// shared runs fn once per key for all concurrent callers. fn runs detached
// from the caller's cancellation so one caller going away cannot fail the
// others; each caller still stops waiting when its own ctx is done. Compute
// funcs bound their own run time.
func (c *Cache) shared(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) lookup(ctx context.Context, key string) (Entry, bool) {
	e, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		logger.Warn("cache: get failed, recomputing", slog.String("key", key), slog.Any("err", err))
		return Entry{}, false
	}
	if !ok || !c.fresh(e) {
		return Entry{}, false
	}
	return e, true
}

func (c *Cache) compute(ctx context.Context, key string, compute ComputeFunc) (Entry, error) {
	v, err := compute(ctx)
	if err != nil {
		return Entry{}, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Entry{}, fmt.Errorf("cache: encode %s: %w", key, err)
	}

	e := Entry{Payload: b, CreatedAt: c.now()}
	if err := c.backend.Set(ctx, key, e, c.ttl); err != nil {
		// the fresh value is still good for this caller
		logger.Warn("cache: set failed", slog.String("key", key), slog.Any("err", err))
	}
	return e, nil
}

func (c *Cache) observe(result string) {
	if c.requests != nil {
		c.requests.WithLabelValues(result).Inc()
	}
}
