package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tagboard/internal/services"
)

// TagsHandler serves the tag source resource: GET/POST /tags, GET/DELETE /tags/{id}
type TagsHandler struct {
	tagsService *services.TagsService
	logger      *slog.Logger
}

// NewTagsHandler creates a new TagsHandler
func NewTagsHandler(tagsService *services.TagsService, logger *slog.Logger) *TagsHandler {
	return &TagsHandler{tagsService: tagsService, logger: orDefault(logger)}
}

// HandleList returns a page of tags (GET /tags?_page=1&_per_page=10&q=go)
func (h *TagsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("_page"))
	perPage, _ := strconv.Atoi(q.Get("_per_page"))

	result, err := h.tagsService.ListPage(page, perPage, q.Get("q"))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleGet returns one tag (GET /tags/{id})
func (h *TagsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tag, err := h.tagsService.GetTag(mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// HandlePost creates a tag (POST /tags)
func (h *TagsHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	var req services.CreateTagInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	tag, err := h.tagsService.CreateTag(req)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.logger.Info("tag created", slog.String("id", tag.ID), slog.String("slug", tag.Slug))
	writeJSON(w, http.StatusCreated, tag)
}

// HandleDelete deletes a tag (DELETE /tags/{id})
func (h *TagsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.tagsService.DeleteTag(id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	h.logger.Info("tag deleted", slog.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}
