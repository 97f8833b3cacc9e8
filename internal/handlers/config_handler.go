package handlers

import (
	"net/http"

	"tagboard/internal/config"
)

// ConfigHandler handles GET /api/config to expose the screen settings.
type ConfigHandler struct {
	resp ConfigResponse
}

// NewConfigHandler creates a new ConfigHandler from the loaded config.
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{resp: ConfigResponse{
		SourceBaseURL: cfg.Source.BaseURL,
		PageSize:      cfg.Screen.PageSize,
		DebounceMS:    cfg.Screen.DebounceMS,
		FreshnessMS:   cfg.Screen.FreshnessMS,
	}}
}

// ConfigResponse is the JSON response for GET /api/config.
type ConfigResponse struct {
	SourceBaseURL string `json:"source_base_url"`
	PageSize      int    `json:"page_size"`
	DebounceMS    int    `json:"debounce_ms"`
	FreshnessMS   int    `json:"freshness_ms"`
}

// Handle responds with the screen settings.
func (h *ConfigHandler) Handle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.resp)
}
