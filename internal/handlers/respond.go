package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apperrors "tagboard/internal/errors"
)

// errorResponse is the JSON body of every failed API call
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps err to its status. Internal details are logged, not returned.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	var domainErr *apperrors.Error
	if status == http.StatusInternalServerError || !apperrors.As(err, &domainErr) {
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Code: string(apperrors.CodeInternal)})
		return
	}
	writeJSON(w, status, errorResponse{Error: domainErr.Message, Code: string(domainErr.Code)})
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
