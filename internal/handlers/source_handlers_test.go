package handlers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagboard/internal/database"
	"tagboard/internal/logger"
	"tagboard/internal/models"
	"tagboard/internal/services"
)

type sourceEnv struct {
	handler http.Handler
	db      *database.DB
	seedDir string
}

func newSourceEnv(t *testing.T) *sourceEnv {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "tags.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.Discard()
	seedDir := t.TempDir()
	router := NewSourceRouter(SourceRoutes{
		Tags:      NewTagsHandler(services.NewTagsService(db), log),
		Load:      NewLoadHandler(services.NewLoader(db, log), seedDir, log),
		Generator: NewGeneratorHandler(services.NewGenerator(db, log), log),
		Upload:    NewUploadHandler(services.NewUploadService(db), log),
	})
	return &sourceEnv{handler: WithCORS(router), db: db, seedDir: seedDir}
}

func (e *sourceEnv) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *sourceEnv) createTag(t *testing.T, title string, videos int) models.Tag {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/tags", fmt.Sprintf(`{"title":%q,"amountOfVideos":%d}`, title, videos))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tag models.Tag
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tag))
	return tag
}

func TestTagsHandler_CreateAndGet(t *testing.T) {
	env := newSourceEnv(t)

	tag := env.createTag(t, "Go Routines", 4)
	assert.Equal(t, "go-routines", tag.Slug)

	rec := env.do(t, http.MethodGet, "/tags/"+tag.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"id":%q,"title":"Go Routines","slug":"go-routines","amountOfVideos":4}`, tag.ID), rec.Body.String())
}

func TestTagsHandler_CreateErrors(t *testing.T) {
	env := newSourceEnv(t)
	env.createTag(t, "Go", 1)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"duplicate slug", `{"title":"go","amountOfVideos":2}`, http.StatusConflict, "ALREADY_EXISTS"},
		{"missing title", `{"amountOfVideos":2}`, http.StatusBadRequest, "VALIDATION"},
		{"negative videos", `{"title":"Rust","amountOfVideos":-2}`, http.StatusBadRequest, "VALIDATION"},
		{"invalid json", `{"title":`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/tags", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
}

func TestTagsHandler_Delete(t *testing.T) {
	env := newSourceEnv(t)
	tag := env.createTag(t, "Go", 1)

	rec := env.do(t, http.MethodDelete, "/tags/"+tag.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodDelete, "/tags/"+tag.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/tags/"+tag.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTagsHandler_ListEnvelope(t *testing.T) {
	env := newSourceEnv(t)
	for i := 1; i <= 25; i++ {
		env.createTag(t, fmt.Sprintf("Tag %02d", i), i)
	}

	rec := env.do(t, http.MethodGet, "/tags?_page=3&_per_page=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"next":null`)

	var page models.TagPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.NotNil(t, page.Prev)
	assert.Equal(t, 2, *page.Prev)
	assert.Nil(t, page.Next)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 25, page.Items)
	assert.Len(t, page.Data, 5)

	rec = env.do(t, http.MethodGet, "/tags", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Nil(t, page.Prev)
	assert.Len(t, page.Data, 10)

	rec = env.do(t, http.MethodGet, "/tags?q=tag%202", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 6, page.Items)
}

func TestWithCORS_Preflight(t *testing.T) {
	env := newSourceEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/tags", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestLoadHandler(t *testing.T) {
	env := newSourceEnv(t)
	seed := `{"tags":[{"id":"1","title":"Go","amountOfVideos":3},{"id":"2","title":"Rust","amountOfVideos":1}]}`
	require.NoError(t, os.WriteFile(filepath.Join(env.seedDir, "db.json"), []byte(seed), 0o644))

	rec := env.do(t, http.MethodPost, "/api/load", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 1, resp.FilesCount)
}

func TestLoadHandler_BadSeed(t *testing.T) {
	env := newSourceEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.seedDir, "db.json"), []byte(`{"tags":`), 0o644))

	rec := env.do(t, http.MethodPost, "/api/load", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestGeneratorHandler_Streams(t *testing.T) {
	env := newSourceEnv(t)

	rec := env.do(t, http.MethodPost, "/api/generate-dummy", `{"count":5,"maxVideos":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	var events []streamEvent
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		var ev streamEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.Equal(t, "done", last.Event)
	assert.Len(t, events[:len(events)-1], last.Count)
	for _, ev := range events[:len(events)-1] {
		assert.Equal(t, "tag", ev.Event)
		require.NotNil(t, ev.Tag)
		assert.LessOrEqual(t, ev.Tag.AmountOfVideos, 3)
	}

	n, err := env.db.CountTags()
	require.NoError(t, err)
	assert.Equal(t, last.Count, n)
}

func TestGeneratorHandler_BadRequest(t *testing.T) {
	env := newSourceEnv(t)

	for _, body := range []string{`{"count":0}`, `{"count":5,"maxVideos":-1}`, `not json`} {
		rec := env.do(t, http.MethodPost, "/api/generate-dummy", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func uploadRequest(t *testing.T, csv, mode string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "tags.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("mode", mode))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload-csv", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadHandler(t *testing.T) {
	env := newSourceEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, uploadRequest(t, "title,amountOfVideos\nGo,3\nRust,2\n", "replace"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "replace", resp.Mode)
}

func TestUploadHandler_Errors(t *testing.T) {
	env := newSourceEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, uploadRequest(t, "title,amountOfVideos\nGo,3\n", "append"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, uploadRequest(t, "name\nGo\n", "override"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/upload-csv", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newSourceEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
