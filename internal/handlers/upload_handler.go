package handlers

import (
	"log/slog"
	"net/http"

	"tagboard/internal/services"
)

const maxUploadSize = 10 << 20

// UploadHandler handles POST /api/upload-csv (multipart: file, mode).
type UploadHandler struct {
	uploadService *services.UploadService
	logger        *slog.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploadService *services.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploadService: uploadService, logger: orDefault(logger)}
}

// UploadResponse is the JSON response for upload-csv.
type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
	Mode    string `json:"mode,omitempty"`
}

// Handle imports the uploaded CSV.
func (h *UploadHandler) Handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, UploadResponse{
			Success: false,
			Message: "missing or invalid file: " + err.Error(),
		})
		return
	}
	defer file.Close()

	mode, err := services.ParseImportMode(r.FormValue("mode"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	result, err := h.uploadService.ImportFromCSV(file, mode)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	h.logger.Info("csv imported", slog.Int("count", result.Count), slog.String("mode", string(mode)))
	writeJSON(w, http.StatusOK, UploadResponse{
		Success: true,
		Message: "CSV imported successfully",
		Count:   result.Count,
		Mode:    string(mode),
	})
}
