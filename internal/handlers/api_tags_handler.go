package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"tagboard/internal/models"
	"tagboard/internal/querycache"
	"tagboard/internal/routepath"
	"tagboard/internal/tagscreen"
)

// APITagsHandler serves GET /api/tags?page=N&q=... through the shared query cache,
// so API callers and screens share one upstream request per key.
type APITagsHandler struct {
	feed   tagscreen.PageFetcher
	cache  *querycache.Cache[models.TagPage]
	logger *slog.Logger
}

// NewAPITagsHandler creates a new APITagsHandler
func NewAPITagsHandler(feed tagscreen.PageFetcher, cache *querycache.Cache[models.TagPage], logger *slog.Logger) *APITagsHandler {
	return &APITagsHandler{feed: feed, cache: cache, logger: orDefault(logger)}
}

// Handle blocks until the page is available and returns the envelope as JSON
func (h *APITagsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := routepath.ParsePage(q.Get("page"))
	filter := q.Get("q")

	key := querycache.Key(tagscreen.QueryName, page, filter)
	data, err := h.cache.Fetch(r.Context(), key, func(ctx context.Context) (models.TagPage, error) {
		return h.feed.FetchPage(ctx, page, filter)
	})
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		h.logger.Warn("tags fetch failed", slog.String("key", key), slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, data)
}
