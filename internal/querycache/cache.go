// Package querycache is a keyed request cache with stale-while-revalidate
// semantics.
//
// Each key holds the last settled result of its fetch function and the time it
// settled. Reads of a fresh entry never fetch. Reads of a stale entry return the
// stale value and revalidate in the background. Concurrent fetches of one key
// are collapsed into a single call.
package querycache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultFreshness is how long a settled result is served without refetching.
	DefaultFreshness = time.Minute
	// DefaultGCTime is how long an unread entry is kept.
	DefaultGCTime = 5 * time.Minute
	// DefaultFetchTimeout bounds background fetches.
	DefaultFetchTimeout = 30 * time.Second
)

// FetchFunc loads the value for one key.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Result is a snapshot of one cache entry.
type Result[V any] struct {
	Data       V
	HasData    bool
	IsFetching bool
	IsStale    bool
	UpdatedAt  time.Time
	Err        error
}

// IsLoading reports whether the entry has neither data nor an error yet.
func (r Result[V]) IsLoading() bool {
	return !r.HasData && r.Err == nil
}

type entry[V any] struct {
	value     V
	hasValue  bool
	err       error
	dataAt    time.Time
	settledAt time.Time
	readAt    time.Time
	fetching  bool
	invalid   bool
	gen       uint64
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	freshness    time.Duration
	gcTime       time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// WithFreshness sets how long results stay fresh. Non-positive values fall
// back to DefaultFreshness.
func WithFreshness(d time.Duration) Option {
	return func(o *options) { o.freshness = d }
}

// WithGCTime sets how long unread entries survive. Zero disables pruning.
func WithGCTime(d time.Duration) Option {
	return func(o *options) { o.gcTime = d }
}

// WithFetchTimeout bounds each background fetch. Non-positive values fall
// back to DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) { o.fetchTimeout = d }
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Cache is a keyed request cache. The zero value is not usable; call New.
type Cache[V any] struct {
	mu        sync.Mutex
	entries   map[string]*entry[V]
	group     singleflight.Group
	freshness time.Duration
	gcTime    time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger

	subMu  sync.Mutex
	subs   map[int]func(key string)
	nextID int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Cache and starts its janitor when a GC time is set.
func New[V any](opts ...Option) *Cache[V] {
	o := options{
		freshness:    DefaultFreshness,
		gcTime:       DefaultGCTime,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.fetchTimeout = orDefault(o.fetchTimeout, DefaultFetchTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache[V]{
		entries:   make(map[string]*entry[V]),
		freshness: orDefault(o.freshness, DefaultFreshness),
		gcTime:    o.gcTime,
		timeout:   o.fetchTimeout,
		now:       o.now,
		logger:    o.logger,
		subs:      make(map[int]func(string)),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	if c.gcTime > 0 {
		go c.janitor()
	} else {
		close(c.done)
	}
	return c
}

// Key builds a stable cache key from its parts, e.g. Key("get-tags", 1, "go")
// yields `["get-tags",1,"go"]`.
func Key(parts ...any) string {
	b, err := json.Marshal(parts)
	if err != nil {
		return fmt.Sprint(parts...)
	}
	return string(b)
}

// Configure changes the freshness window. Existing entries are judged against
// the new window on their next read.
func (c *Cache[V]) Configure(freshness time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.freshness = orDefault(freshness, DefaultFreshness)
}

// orDefault returns def when d is not positive.
func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Freshness returns the current freshness window.
func (c *Cache[V]) Freshness() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.freshness
}

// Query returns the current entry for key without blocking. A missing, stale
// or invalidated entry triggers one background fetch.
func (c *Cache[V]) Query(key string, fetch FetchFunc[V]) Result[V] {
	c.mu.Lock()
	now := c.now()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{}
		c.entries[key] = e
	}
	e.readAt = now
	start := !e.fetching && c.shouldFetchLocked(e, now)
	if start {
		e.fetching = true
	}
	gen := e.gen
	res := c.resultLocked(e, now)
	c.mu.Unlock()

	if start {
		go func() { _, _ = c.load(c.ctx, key, gen, fetch) }()
	}
	return res
}

// Peek returns the entry for key without triggering a fetch.
func (c *Cache[V]) Peek(key string) (Result[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Result[V]{}, false
	}
	return c.resultLocked(e, c.now()), true
}

// Fetch returns fresh data for key, waiting for the in-flight request or
// starting one when needed.
func (c *Cache[V]) Fetch(ctx context.Context, key string, fetch FetchFunc[V]) (V, error) {
	c.mu.Lock()
	now := c.now()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{}
		c.entries[key] = e
	}
	e.readAt = now
	if e.hasValue && !c.shouldFetchLocked(e, now) {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}
	e.fetching = true
	gen := e.gen
	c.mu.Unlock()

	return c.load(ctx, key, gen, fetch)
}

// load runs fetch for key through the singleflight group. Only the leader
// stores the result and notifies subscribers. The fetch itself is bound to the
// cache's lifetime; ctx only bounds how long the caller waits. If the entry
// settled successfully after gen was observed, that result is reused.
func (c *Cache[V]) load(ctx context.Context, key string, gen uint64, fetch FetchFunc[V]) (V, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		c.mu.Lock()
		if e, ok := c.entries[key]; ok && e.gen != gen && e.hasValue && e.err == nil && !e.invalid {
			e.fetching = false
			v := e.value
			c.mu.Unlock()
			return v, nil
		}
		c.mu.Unlock()

		fctx, cancel := context.WithTimeout(c.ctx, c.timeout)
		defer cancel()
		v, err := fetch(fctx)
		c.settle(key, v, err)
		return v, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

func (c *Cache[V]) settle(key string, v V, err error) {
	c.mu.Lock()
	now := c.now()
	e, ok := c.entries[key]
	if !ok {
		e = &entry[V]{readAt: now}
		c.entries[key] = e
	}
	e.fetching = false
	e.invalid = false
	e.settledAt = now
	e.gen++
	if err != nil {
		e.err = err
	} else {
		e.value = v
		e.hasValue = true
		e.err = nil
		e.dataAt = now
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("query failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	c.notify(key)
}

func (c *Cache[V]) shouldFetchLocked(e *entry[V], now time.Time) bool {
	if e.invalid || e.settledAt.IsZero() {
		return true
	}
	return now.Sub(e.settledAt) >= c.freshness
}

func (c *Cache[V]) resultLocked(e *entry[V], now time.Time) Result[V] {
	res := Result[V]{
		Data:       e.value,
		HasData:    e.hasValue,
		IsFetching: e.fetching,
		UpdatedAt:  e.dataAt,
		Err:        e.err,
	}
	if e.hasValue {
		res.IsStale = e.invalid || now.Sub(e.dataAt) >= c.freshness
	}
	return res
}

// Invalidate marks key stale so the next read refetches it.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.invalid = true
	}
}

// Clear drops every entry. In-flight fetches still settle into fresh entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
}

// Len returns the number of entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Prune removes entries that have not been read for the GC time and are not
// being fetched. It returns the number of removed entries.
func (c *Cache[V]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gcTime <= 0 {
		return 0
	}
	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if e.fetching {
			continue
		}
		if now.Sub(e.readAt) >= c.gcTime {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Subscribe registers fn to run after every settled fetch. The returned
// function removes the subscription.
func (c *Cache[V]) Subscribe(fn func(key string)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Cache[V]) notify(key string) {
	c.subMu.Lock()
	fns := make([]func(string), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(key)
	}
}

func (c *Cache[V]) janitor() {
	defer close(c.done)
	interval := c.gcTime / 2
	if interval <= 0 {
		interval = c.gcTime
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := c.Prune(); n > 0 {
				c.logger.Debug("pruned cache entries", slog.Int("count", n))
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// Close stops the janitor and cancels background fetches.
func (c *Cache[V]) Close() {
	c.cancel()
	<-c.done
}
