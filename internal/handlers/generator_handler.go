package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"tagboard/internal/models"
	"tagboard/internal/services"
)

const (
	defaultGenerateCount     = 25
	defaultGenerateMaxVideos = 50
)

// Stream event types for NDJSON response
type streamEvent struct {
	Event   string      `json:"event"`
	Tag     *models.Tag `json:"tag,omitempty"`
	Count   int         `json:"count,omitempty"`
	Message string      `json:"message,omitempty"`
}

// GeneratorHandler handles POST /api/generate-dummy requests
type GeneratorHandler struct {
	generator *services.Generator
	logger    *slog.Logger
}

// NewGeneratorHandler creates a new GeneratorHandler instance
func NewGeneratorHandler(generator *services.Generator, logger *slog.Logger) *GeneratorHandler {
	return &GeneratorHandler{generator: generator, logger: orDefault(logger)}
}

// GenerateRequest represents the request body for generate-dummy endpoint
type GenerateRequest struct {
	Count     *int `json:"count,omitempty"`     // Optional: number of tags, default 25
	MaxVideos *int `json:"maxVideos,omitempty"` // Optional: upper bound of amountOfVideos, default 50
}

// Handle streams one NDJSON line per generated tag, then a done or error line
func (h *GeneratorHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	count, maxVideos := defaultGenerateCount, defaultGenerateMaxVideos
	if req.Count != nil {
		count = *req.Count
	}
	if req.MaxVideos != nil {
		maxVideos = *req.MaxVideos
	}
	if count <= 0 || count > services.MaxGenerateCount || maxVideos < 0 {
		writeError(w, http.StatusBadRequest, "count must be between 1 and 10000 and maxVideos must not be negative")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	writeEvent := func(ev streamEvent) error {
		if err := enc.Encode(ev); err != nil {
			return err
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
		return nil
	}

	inserted, err := h.generator.GenerateDummyTags(count, maxVideos, func(tag models.Tag) error {
		if err := r.Context().Err(); err != nil {
			return err
		}
		return writeEvent(streamEvent{Event: "tag", Tag: &tag})
	})
	if err != nil {
		h.logger.Warn("dummy generation stopped", slog.Int("inserted", inserted), slog.String("error", err.Error()))
		writeEvent(streamEvent{Event: "error", Count: inserted, Message: err.Error()})
		return
	}
	writeEvent(streamEvent{Event: "done", Count: inserted})
}
