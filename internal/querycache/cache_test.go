package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// counter returns a fetch function producing "<prefix>-<n>" and the call count.
func counter(prefix string) (FetchFunc[string], *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context) (string, error) {
		n := calls.Add(1)
		return prefix + "-" + string(rune('0'+n)), nil
	}, &calls
}

func newTestCache(t *testing.T, clock *fakeClock, opts ...Option) *Cache[string] {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now), WithGCTime(0), WithFreshness(time.Minute)}, opts...)
	c := New[string](opts...)
	t.Cleanup(c.Close)
	return c
}

func waitForData(t *testing.T, c *Cache[string], key string) Result[string] {
	t.Helper()
	var res Result[string]
	require.Eventually(t, func() bool {
		r, ok := c.Peek(key)
		if !ok || r.IsFetching {
			return false
		}
		res = r
		return r.HasData || r.Err != nil
	}, time.Second, time.Millisecond)
	return res
}

func TestKey(t *testing.T) {
	assert.Equal(t, `["get-tags",1,"go"]`, Key("get-tags", 1, "go"))
	assert.Equal(t, `["get-tags",1,""]`, Key("get-tags", 1, ""))
	assert.NotEqual(t, Key("get-tags", 1, "go"), Key("get-tags", 2, "go"))
}

func TestQuery_MissingEntryFetchesOnce(t *testing.T) {
	c := newTestCache(t, newFakeClock())
	fetch, calls := counter("page")

	res := c.Query("k", fetch)
	assert.True(t, res.IsLoading())
	assert.True(t, res.IsFetching)
	assert.False(t, res.HasData)

	res = waitForData(t, c, "k")
	assert.Equal(t, "page-1", res.Data)

	for range 5 {
		res = c.Query("k", fetch)
		assert.Equal(t, "page-1", res.Data)
		assert.False(t, res.IsStale)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestQuery_DistinctKeysFetchOncePerWindow(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, clock)
	fetch1, calls1 := counter("p1")
	fetch2, calls2 := counter("p2")
	k1, k2 := Key("get-tags", 1, ""), Key("get-tags", 2, "")

	c.Query(k1, fetch1)
	c.Query(k2, fetch2)
	waitForData(t, c, k1)
	waitForData(t, c, k2)

	for range 3 {
		clock.Advance(10 * time.Second)
		c.Query(k1, fetch1)
		c.Query(k2, fetch2)
	}

	assert.Equal(t, int32(1), calls1.Load())
	assert.Equal(t, int32(1), calls2.Load())
}

func TestFetch_DeduplicatesConcurrentRequests(t *testing.T) {
	c := newTestCache(t, newFakeClock())
	release := make(chan struct{})
	var calls atomic.Int32
	fetch := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Fetch(context.Background(), "k", fetch)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	// Let the callers pile up on the in-flight request.
	time.Sleep(20 * time.Millisecond)
	c.Query("k", fetch)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}

func TestQuery_StaleEntryRevalidatesInBackground(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, clock)
	fetch, calls := counter("v")

	c.Query("k", fetch)
	waitForData(t, c, "k")

	clock.Advance(time.Minute + time.Second)
	res := c.Query("k", fetch)
	assert.True(t, res.HasData)
	assert.Equal(t, "v-1", res.Data, "stale data is served while revalidating")
	assert.True(t, res.IsStale)
	assert.True(t, res.IsFetching)

	res = waitForData(t, c, "k")
	assert.Equal(t, "v-2", res.Data)
	assert.False(t, res.IsStale)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQuery_ErrorIsSurfacedWithoutRetry(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, clock)
	boom := errors.New("connection refused")
	var calls atomic.Int32
	failing := func(context.Context) (string, error) {
		calls.Add(1)
		return "", boom
	}

	c.Query("k", failing)
	res := waitForData(t, c, "k")
	assert.ErrorIs(t, res.Err, boom)
	assert.False(t, res.HasData)
	assert.False(t, res.IsLoading())

	res = c.Query("k", failing)
	assert.ErrorIs(t, res.Err, boom)
	assert.False(t, res.IsFetching)
	assert.Equal(t, int32(1), calls.Load())

	c.Invalidate("k")
	fetch, _ := counter("ok")
	res = c.Query("k", fetch)
	assert.True(t, res.IsFetching)
	res = waitForData(t, c, "k")
	assert.NoError(t, res.Err)
	assert.Equal(t, "ok-1", res.Data)
}

func TestQuery_ErrorKeepsPreviousData(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, clock)
	fetch, _ := counter("v")

	c.Query("k", fetch)
	waitForData(t, c, "k")

	clock.Advance(2 * time.Minute)
	c.Query("k", func(context.Context) (string, error) { return "", errors.New("timeout") })
	res := waitForData(t, c, "k")

	assert.True(t, res.HasData)
	assert.Equal(t, "v-1", res.Data)
	assert.EqualError(t, res.Err, "timeout")
}

func TestConfigure_ChangesFreshness(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, clock)
	fetch, calls := counter("v")

	c.Query("k", fetch)
	waitForData(t, c, "k")

	c.Configure(5 * time.Second)
	assert.Equal(t, 5*time.Second, c.Freshness())

	clock.Advance(6 * time.Second)
	res := c.Query("k", fetch)
	assert.True(t, res.IsStale)
	waitForData(t, c, "k")
	assert.Equal(t, int32(2), calls.Load())
}

func TestNew_NonPositiveWindowsUseDefaults(t *testing.T) {
	clock := newFakeClock()
	c := newTestCache(t, clock, WithFreshness(0), WithFetchTimeout(0))
	assert.Equal(t, DefaultFreshness, c.Freshness())

	var calls atomic.Int32
	fetch := func(ctx context.Context) (string, error) {
		calls.Add(1)
		if err := ctx.Err(); err != nil {
			return "", err
		}
		deadline, ok := ctx.Deadline()
		if !ok || !deadline.After(time.Now()) {
			return "", errors.New("no usable deadline")
		}
		return "v", nil
	}

	v, err := c.Fetch(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	for range 5 {
		res := c.Query("k", fetch)
		assert.False(t, res.IsStale)
		assert.False(t, res.IsFetching)
	}
	assert.Equal(t, int32(1), calls.Load())

	c.Configure(-time.Second)
	assert.Equal(t, DefaultFreshness, c.Freshness())
}

func TestFetch_ReturnsFreshDataWithoutFetching(t *testing.T) {
	c := newTestCache(t, newFakeClock())
	fetch, calls := counter("v")

	v, err := c.Fetch(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "v-1", v)

	v, err = c.Fetch(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.Equal(t, "v-1", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_CallerCancelDoesNotAbortFetch(t *testing.T) {
	c := newTestCache(t, newFakeClock())
	release := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		select {
		case <-release:
			return "late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, "k", fetch)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(release)
	res := waitForData(t, c, "k")
	assert.Equal(t, "late", res.Data)
}

func TestSubscribe(t *testing.T) {
	c := newTestCache(t, newFakeClock())
	fetch, _ := counter("v")

	keys := make(chan string, 4)
	unsubscribe := c.Subscribe(func(key string) { keys <- key })

	c.Query("a", fetch)
	select {
	case k := <-keys:
		assert.Equal(t, "a", k)
	case <-time.After(time.Second):
		t.Fatal("subscriber was not notified")
	}

	unsubscribe()
	c.Invalidate("a")
	c.Query("a", fetch)
	waitForData(t, c, "a")
	select {
	case k := <-keys:
		t.Fatalf("unexpected notification for %q after unsubscribe", k)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPrune_RemovesIdleEntries(t *testing.T) {
	clock := newFakeClock()
	c := New[string](WithClock(clock.Now), WithGCTime(time.Hour))
	defer c.Close()
	fetch, _ := counter("v")

	c.Query("old", fetch)
	waitForData(t, c, "old")

	clock.Advance(50 * time.Minute)
	c.Query("recent", fetch)
	waitForData(t, c, "recent")

	clock.Advance(20 * time.Minute)
	assert.Equal(t, 1, c.Prune())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Peek("old")
	assert.False(t, ok)
	_, ok = c.Peek("recent")
	assert.True(t, ok)
}

func TestClear(t *testing.T) {
	c := newTestCache(t, newFakeClock())
	fetch, _ := counter("v")

	c.Query("k", fetch)
	waitForData(t, c, "k")
	c.Clear()

	assert.Equal(t, 0, c.Len())
}
