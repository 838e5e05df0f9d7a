package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/ats/internal/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newCache(t *testing.T, opts ...cache.Option) (*cache.Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)}
	return cache.New(cache.NewMemoryBackend(), append([]cache.Option{cache.WithClock(clock.Now)}, opts...)...), clock
}

func counter(calls *atomic.Int32, value any) cache.ComputeFunc {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestFetch_ServesFreshEntry(t *testing.T) {
	c, clock := newCache(t)
	ctx := context.Background()
	var calls atomic.Int32

	e, cached, err := c.Fetch(ctx, "k", counter(&calls, map[string]int{"n": 1}))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.JSONEq(t, `{"n":1}`, string(e.Payload))
	assert.Equal(t, clock.Now(), e.CreatedAt)

	clock.Advance(cache.DefaultTTL - time.Millisecond)
	again, cached, err := c.Fetch(ctx, "k", counter(&calls, map[string]int{"n": 2}))
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, e, again)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_ExpiresAtExactlyTTL(t *testing.T) {
	c, clock := newCache(t)
	ctx := context.Background()
	var calls atomic.Int32

	_, _, err := c.Fetch(ctx, "k", counter(&calls, 1))
	require.NoError(t, err)

	clock.Advance(cache.DefaultTTL)
	e, cached, err := c.Fetch(ctx, "k", counter(&calls, 2))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "2", string(e.Payload))
	assert.Equal(t, clock.Now(), e.CreatedAt)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_FailureIsNotStored(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, _, err := c.Fetch(ctx, "k", func(context.Context) (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	var calls atomic.Int32
	e, cached, err := c.Fetch(ctx, "k", counter(&calls, "ok"))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, `"ok"`, string(e.Payload))
}

func TestRefresh_FailureKeepsFreshEntry(t *testing.T) {
	c, clock := newCache(t)
	ctx := context.Background()
	var calls atomic.Int32

	first, _, err := c.Fetch(ctx, "k", counter(&calls, "v1"))
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = c.Refresh(ctx, "k", func(context.Context) (any, error) { return nil, errors.New("down") })
	require.Error(t, err)

	e, cached, err := c.Fetch(ctx, "k", counter(&calls, "v2"))
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, e)

	refreshed, err := c.Refresh(ctx, "k", counter(&calls, "v3"))
	require.NoError(t, err)
	assert.Equal(t, `"v3"`, string(refreshed.Payload))

	e, cached, err = c.Fetch(ctx, "k", counter(&calls, "v4"))
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, `"v3"`, string(e.Payload))
}

func TestFetch_ConcurrentMissesComputeOnce(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func(context.Context) (any, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]cache.Entry, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _, errs[i] = c.Fetch(ctx, "k", compute)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := range n {
		require.NoError(t, errs[i])
		assert.Equal(t, `"shared"`, string(results[i].Payload))
	}
}

func TestFetch_CancelledCallerDoesNotFailOthers(t *testing.T) {
	c, _ := newCache(t)

	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context) (any, error) {
		close(started)
		select {
		case <-release:
			return "shared", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, _, err := c.Fetch(leaderCtx, "k", compute)
		leaderErr <- err
	}()
	<-started

	type result struct {
		e   cache.Entry
		err error
	}
	follower := make(chan result, 1)
	go func() {
		e, _, err := c.Fetch(context.Background(), "k", compute)
		follower <- result{e, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	close(release)
	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, `"shared"`, string(got.e.Payload))

	// the detached computation still populated the entry
	var calls atomic.Int32
	_, cached, err := c.Fetch(context.Background(), "k", counter(&calls, "other"))
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Zero(t, calls.Load())
}

func TestRefresh_CancelledWarmerDoesNotFailReaders(t *testing.T) {
	c, _ := newCache(t)

	started := make(chan struct{})
	release := make(chan struct{})
	compute := func(ctx context.Context) (any, error) {
		close(started)
		select {
		case <-release:
			return "warm", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	warmCtx, cancel := context.WithCancel(context.Background())
	refreshErr := make(chan error, 1)
	go func() {
		_, err := c.Refresh(warmCtx, "k", compute)
		refreshErr <- err
	}()
	<-started

	readerErr := make(chan error, 1)
	go func() {
		_, _, err := c.Fetch(context.Background(), "k", compute)
		readerErr <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-refreshErr, context.Canceled)
	close(release)
	require.NoError(t, <-readerErr)
}

func TestFetch_CountsRequests(t *testing.T) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_requests_total"}, []string{"result"})
	c, _ := newCache(t, cache.WithRequests(requests))
	ctx := context.Background()
	var calls atomic.Int32

	_, _, _ = c.Fetch(ctx, "k", counter(&calls, 1))
	_, _, _ = c.Fetch(ctx, "k", counter(&calls, 1))
	_, _, _ = c.Fetch(ctx, "other", func(context.Context) (any, error) { return nil, errors.New("x") })

	assert.Equal(t, 1.0, testutil.ToFloat64(requests.WithLabelValues(cache.ResultMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(requests.WithLabelValues(cache.ResultHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(requests.WithLabelValues(cache.ResultError)))
}

type brokenBackend struct{ sets atomic.Int32 }

func (b *brokenBackend) Get(context.Context, string) (cache.Entry, bool, error) {
	return cache.Entry{}, false, errors.New("connection refused")
}

func (b *brokenBackend) Set(context.Context, string, cache.Entry, time.Duration) error {
	b.sets.Add(1)
	return errors.New("connection refused")
}

func TestFetch_BackendOutageStillComputes(t *testing.T) {
	backend := &brokenBackend{}
	c := cache.New(backend)
	var calls atomic.Int32

	for range 2 {
		e, cached, err := c.Fetch(context.Background(), "k", counter(&calls, []int{1, 2}))
		require.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, `[1,2]`, string(e.Payload))
	}
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int32(2), backend.sets.Load())
}

func TestFetch_UnencodableValue(t *testing.T) {
	c, _ := newCache(t)
	_, _, err := c.Fetch(context.Background(), "k", func(context.Context) (any, error) {
		return func() {}, nil
	})
	var unsupported *json.UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
}

func TestRedisBackend(t *testing.T) {
	url := os.Getenv("ATS_TEST_REDIS_URL")
	if url == "" {
		t.Skip("ATS_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	backend, err := cache.NewRedisBackend(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	key := "test:" + time.Now().Format(time.RFC3339Nano)
	_, ok, err := backend.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	want := cache.Entry{Payload: json.RawMessage(`{"a":1}`), CreatedAt: time.UnixMilli(1_700_000_000_000).UTC()}
	require.NoError(t, backend.Set(ctx, key, want, time.Minute))

	got, ok, err := backend.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, string(want.Payload), string(got.Payload))
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}
