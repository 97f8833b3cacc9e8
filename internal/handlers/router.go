package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"

	"tagboard/internal/routepath"
)

// ScreenRoutes groups the handlers mounted by the screen server.
type ScreenRoutes struct {
	Screen *ScreenHandler
	API    *APITagsHandler
	Config *ConfigHandler
}

// NewScreenRouter mounts the tags screen, its fragments and the JSON API.
func NewScreenRouter(h ScreenRoutes) *mux.Router {
	router := mux.NewRouter()

	router.Handle(routepath.Root, http.RedirectHandler(routepath.Tags, http.StatusFound)).Methods("GET")
	router.HandleFunc(routepath.Tags, h.Screen.HandlePage).Methods("GET")
	router.HandleFunc(routepath.TagsFilter, h.Screen.HandleFilter).Methods("POST")
	router.HandleFunc(routepath.TagsTable, h.Screen.HandleTable).Methods("GET")
	router.HandleFunc(routepath.TagsEvents, h.Screen.HandleEvents).Methods("GET")
	router.HandleFunc(routepath.TagsRetry, h.Screen.HandleRetry).Methods("POST")

	router.HandleFunc(routepath.APITags, h.API.Handle).Methods("GET")
	router.HandleFunc(routepath.APIConfig, h.Config.Handle).Methods("GET")

	router.HandleFunc(routepath.Health, Health).Methods("GET")
	return router
}

// SourceRoutes groups the handlers mounted by the tag source.
type SourceRoutes struct {
	Tags      *TagsHandler
	Load      *LoadHandler
	Generator *GeneratorHandler
	Upload    *UploadHandler
}

// NewSourceRouter mounts the json-server compatible tags resource and the admin API.
func NewSourceRouter(h SourceRoutes) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/tags", h.Tags.HandleList).Methods("GET")
	router.HandleFunc("/tags", h.Tags.HandlePost).Methods("POST")
	router.HandleFunc("/tags/{id}", h.Tags.HandleGet).Methods("GET")
	router.HandleFunc("/tags/{id}", h.Tags.HandleDelete).Methods("DELETE")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/load", h.Load.Handle).Methods("POST")
	api.HandleFunc("/generate-dummy", h.Generator.Handle).Methods("POST")
	api.HandleFunc("/upload-csv", h.Upload.Handle).Methods("POST")

	router.HandleFunc("/health", Health).Methods("GET")
	return router
}

// WithCORS allows every origin, for browsers calling the tag source during development.
func WithCORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	})(next)
}

// Health reports that the process is serving.
func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}
