package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"tagboard/internal/routepath"
	"tagboard/internal/sse"
	"tagboard/internal/tagscreen"
	"tagboard/internal/views"
)

// SessionCookie carries the id of the browser's screen session.
const SessionCookie = "tagboard_session"

// ScreenHandler serves the tags screen and its HTMX fragments.
type ScreenHandler struct {
	registry  *tagscreen.Registry
	logger    *slog.Logger
	title     string
	heartbeat time.Duration
}

// NewScreenHandler creates a ScreenHandler backed by registry.
func NewScreenHandler(registry *tagscreen.Registry, title string, logger *slog.Logger) *ScreenHandler {
	return &ScreenHandler{
		registry:  registry,
		logger:    orDefault(logger),
		title:     title,
		heartbeat: sse.HeartbeatInterval,
	}
}

// screen returns the caller's screen, issuing a session cookie on first visit.
func (h *ScreenHandler) screen(w http.ResponseWriter, r *http.Request) *tagscreen.Screen {
	if c, err := r.Cookie(SessionCookie); err == nil && tagscreen.ValidSessionID(c.Value) {
		return h.registry.Get(c.Value)
	}
	id := tagscreen.NewSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     routepath.Root,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.Debug("session started", slog.String("session", id))
	return h.registry.Get(id)
}

// HandlePage renders the full screen (GET /tags?page=N).
func (h *ScreenHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	s := h.screen(w, r)
	s.SetPage(routepath.ParsePage(r.URL.Query().Get("page")))
	h.render(w, r, views.Page(s.View(), views.PageOptions{Title: h.title}))
}

// HandleFilter records the filter text (POST /tags/filter, form value q). The table
// follows through the event stream once the input settles.
func (h *ScreenHandler) HandleFilter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	s := h.screen(w, r)
	s.SetFilter(r.PostFormValue("q"))
	h.done(w, r, s)
}

// HandleTable renders the table fragment (GET /tags/table).
func (h *ScreenHandler) HandleTable(w http.ResponseWriter, r *http.Request) {
	s := h.screen(w, r)
	h.render(w, r, views.Table(s.View()))
}

// HandleRetry refetches the current page after an error (POST /tags/retry).
func (h *ScreenHandler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	s := h.screen(w, r)
	s.Retry()
	h.done(w, r, s)
}

// HandleEvents streams a fresh table every time the screen changes (GET /tags/events).
func (h *ScreenHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Context().Err() != nil {
		return
	}
	s := h.screen(w, r)

	changes, stop := s.Listen()
	defer stop()

	stream, err := sse.Open(w, h.logger)
	if err != nil {
		h.logger.Error("failed to open event stream", slog.String("error", err.Error()))
		return
	}

	ctx := r.Context()
	send := func() error {
		html, err := renderString(ctx, views.Table(s.View()))
		if err != nil {
			return err
		}
		return stream.Send(views.TableEvent, html)
	}
	if err := send(); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case _, ok := <-changes:
			if !ok {
				// Session closed.
				return
			}
			if err := send(); err != nil {
				h.logger.Debug("client disconnected during send", slog.String("error", err.Error()))
				return
			}
		case <-heartbeat.C:
			if err := stream.Heartbeat(); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// done finishes a form post: HTMX callers get 204, plain forms are sent back to the screen.
func (h *ScreenHandler) done(w http.ResponseWriter, r *http.Request, s *tagscreen.Screen) {
	if r.Header.Get("HX-Request") == "true" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, routepath.TagsPage(s.Page()), http.StatusSeeOther)
}

func (h *ScreenHandler) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	html, err := renderString(r.Context(), c)
	if err != nil {
		h.logger.Error("render failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

func renderString(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
