// Package tagscreen holds the view model behind the tag list screen: the
// filter box, its debounced copy, the current page and the cached page data.
package tagscreen

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tagboard/internal/debounce"
	"tagboard/internal/models"
	"tagboard/internal/querycache"
)

// QueryName prefixes every cache key owned by the screen.
const QueryName = "get-tags"

// DefaultDebounce is how long the filter must stay unchanged before it is applied.
const DefaultDebounce = time.Second

// Status is the coarse state of the screen.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusLoading      Status = "loading"
	StatusReady        Status = "ready"
	StatusRevalidating Status = "revalidating"
	StatusError        Status = "error"
)

// PageFetcher loads one page of tags with the title filter applied.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int, filter string) (models.TagPage, error)
}

// Row is one rendered table row.
type Row struct {
	ID     string
	Title  string
	Videos string
}

// Pagination describes the pager under the table.
type Pagination struct {
	Page    int
	Pages   int
	Items   int
	HasPrev bool
	HasNext bool
}

// View is a snapshot of everything the screen renders.
type View struct {
	Status          Status
	Filter          string
	DebouncedFilter string
	Page            int
	Rows            []Row
	// Pagination is nil until the first page envelope arrives.
	Pagination *Pagination
	// Placeholder is set when Rows belong to a previously displayed key.
	Placeholder bool
	Err         string
}

// HasData reports whether any page envelope backs the view.
func (v View) HasData() bool {
	return v.Pagination != nil
}

// Options tunes a Screen.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// Screen is the per-session state of the tag list.
type Screen struct {
	feed   PageFetcher
	cache  *querycache.Cache[models.TagPage]
	filter *debounce.Debouncer[string]
	logger *slog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()

	mu        sync.Mutex
	page      int
	last      *models.TagPage
	listeners map[int]chan struct{}
	nextID    int
	closed    bool
}

// New creates a screen on page 1 with an empty filter. The screen stops when
// ctx ends or Close is called.
func New(ctx context.Context, feed PageFetcher, cache *querycache.Cache[models.TagPage], opts Options) *Screen {
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Screen{
		feed:      feed,
		cache:     cache,
		logger:    opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
		page:      1,
		listeners: make(map[int]chan struct{}),
	}
	s.filter = debounce.New(ctx, "", opts.Debounce, func(v string) {
		s.logger.Debug("filter applied", slog.String("filter", v))
		s.notify()
	})
	s.unsubscribe = cache.Subscribe(func(key string) {
		if key == s.Key() {
			s.notify()
		}
	})
	context.AfterFunc(ctx, s.Close)
	return s
}

// Key returns the cache key of what the screen currently displays.
func (s *Screen) Key() string {
	s.mu.Lock()
	page := s.page
	s.mu.Unlock()
	return querycache.Key(QueryName, page, s.filter.Value())
}

// SetFilter records the text typed in the filter box. The table follows once
// the debounce interval passes without further input.
func (s *Screen) SetFilter(raw string) {
	s.filter.Set(raw)
}

// Filter returns the raw filter text.
func (s *Screen) Filter() string {
	return s.filter.Raw()
}

// SetPage switches to page p (1-based). Values below 1 select page 1.
func (s *Screen) SetPage(p int) {
	if p < 1 {
		p = 1
	}
	s.mu.Lock()
	changed := s.page != p
	s.page = p
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Page returns the current page.
func (s *Screen) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Retry drops the cached result of the current key so the next View refetches it.
func (s *Screen) Retry() {
	s.cache.Invalidate(s.Key())
	s.notify()
}

// View computes the current snapshot, starting a fetch when the current key has
// no fresh data.
func (s *Screen) View() View {
	s.mu.Lock()
	page, closed := s.page, s.closed
	s.mu.Unlock()

	debounced := s.filter.Value()
	v := View{
		Filter:          s.filter.Raw(),
		DebouncedFilter: debounced,
		Page:            page,
	}
	if closed {
		v.Status = StatusIdle
		return v
	}

	key := querycache.Key(QueryName, page, debounced)
	res := s.cache.Query(key, func(ctx context.Context) (models.TagPage, error) {
		return s.feed.FetchPage(ctx, page, debounced)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case res.HasData:
		data := res.Data
		s.last = &data
		v.fill(data)
		v.Status = StatusReady
		if res.IsFetching {
			v.Status = StatusRevalidating
		} else if res.Err != nil {
			v.Status = StatusError
			v.Err = res.Err.Error()
		}
	case res.Err != nil && !res.IsFetching:
		v.Status = StatusError
		v.Err = res.Err.Error()
		if s.last != nil {
			v.fill(*s.last)
			v.Placeholder = true
		}
	default:
		v.Status = StatusLoading
		if s.last != nil {
			v.fill(*s.last)
			v.Placeholder = true
		}
	}
	return v
}

func (v *View) fill(data models.TagPage) {
	v.Rows = make([]Row, 0, len(data.Data))
	for _, tag := range data.Data {
		v.Rows = append(v.Rows, Row{
			ID:     tag.ID,
			Title:  tag.Title,
			Videos: FormatVideos(tag.AmountOfVideos),
		})
	}
	pages := max(data.Pages, 1)
	v.Pagination = &Pagination{
		Page:    v.Page,
		Pages:   pages,
		Items:   data.Items,
		HasPrev: v.Page > 1,
		HasNext: v.Page < pages,
	}
}

// FormatVideos renders a video count the way the table shows it.
func FormatVideos(n int) string {
	return fmt.Sprintf("%d video(s)", n)
}

// Listen returns a channel signalled whenever the view may have changed and a
// function that stops listening. The channel is closed when the screen closes.
func (s *Screen) Listen() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{}, 1)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if l, ok := s.listeners[id]; ok {
			delete(s.listeners, id)
			close(l)
		}
	}
}

// Listeners returns the number of active listeners.
func (s *Screen) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *Screen) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Done is closed once the screen has been closed.
func (s *Screen) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Close stops the debouncer, detaches from the cache and closes listeners.
func (s *Screen) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, ch := range s.listeners {
		delete(s.listeners, id)
		close(ch)
	}
	s.mu.Unlock()

	s.cancel()
	s.filter.Stop()
	s.unsubscribe()
}
