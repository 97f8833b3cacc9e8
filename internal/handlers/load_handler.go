package handlers

import (
	"log/slog"
	"net/http"

	"tagboard/internal/services"
)

// LoadHandler handles POST /api/load requests
type LoadHandler struct {
	loader        *services.Loader
	rawDataFolder string
	logger        *slog.Logger
}

// NewLoadHandler creates a new LoadHandler instance
func NewLoadHandler(loader *services.Loader, rawDataFolder string, logger *slog.Logger) *LoadHandler {
	return &LoadHandler{
		loader:        loader,
		rawDataFolder: rawDataFolder,
		logger:        orDefault(logger),
	}
}

// LoadResponse represents the response from load endpoint
type LoadResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Count      int    `json:"count,omitempty"`
	FilesCount int    `json:"files_count,omitempty"`
}

// Handle seeds the tags table from every JSON file in the configured folder
func (h *LoadHandler) Handle(w http.ResponseWriter, r *http.Request) {
	count, filesCount, err := h.loader.LoadFromFolder(h.rawDataFolder)
	if err != nil {
		h.logger.Error("seed failed", slog.String("folder", h.rawDataFolder), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, LoadResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, LoadResponse{
		Success:    true,
		Message:    "Tags loaded successfully",
		Count:      count,
		FilesCount: filesCount,
	})
}
