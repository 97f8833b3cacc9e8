package tagscreen

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an unused session keeps its screen.
const DefaultSessionTTL = 30 * time.Minute

// Factory builds the screen for a new session.
type Factory func(ctx context.Context) *Screen

type session struct {
	screen   *Screen
	lastSeen time.Time
}

// Registry keeps one Screen per browser session.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	factory  Factory
	now      func() time.Time
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRegistry creates a registry whose screens live at most as long as ctx.
func NewRegistry(ctx context.Context, ttl time.Duration, factory Factory, logger *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Registry{
		sessions: make(map[string]*session),
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether id looks like an identifier from NewSessionID.
func ValidSessionID(id string) bool {
	return uuid.Validate(id) == nil
}

// Get returns the screen for id, creating it on first use.
func (r *Registry) Get(id string) *Screen {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.lastSeen = r.now()
		return s.screen
	}
	screen := r.factory(r.ctx)
	r.sessions[id] = &session{screen: screen, lastSeen: r.now()}
	r.logger.Debug("session started", slog.String("session_id", id))
	return screen
}

// Lookup returns the screen for id without creating one.
func (r *Registry) Lookup(id string) (*Screen, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastSeen = r.now()
	return s.screen, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the TTL. Sessions with an open
// event stream are kept.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	now := r.now()
	var expired []*Screen
	for id, s := range r.sessions {
		if s.screen.Listeners() > 0 {
			s.lastSeen = now
			continue
		}
		if now.Sub(s.lastSeen) >= r.ttl {
			delete(r.sessions, id)
			expired = append(expired, s.screen)
		}
	}
	r.mu.Unlock()

	for _, screen := range expired {
		screen.Close()
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx ends.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("expired idle sessions", slog.Int("count", n))
			}
		case <-ctx.Done():
			return
		case <-r.ctx.Done():
			return
		}
	}
}

// Close closes every screen.
func (r *Registry) Close() {
	r.mu.Lock()
	screens := make([]*Screen, 0, len(r.sessions))
	for id, s := range r.sessions {
		screens = append(screens, s.screen)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	r.cancel()
	for _, screen := range screens {
		screen.Close()
	}
}
