package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedJSON = `{
  "tags": [
    {"id": "a1", "title": "Go", "slug": "go", "amountOfVideos": 3},
    {"title": "Rust Lang", "amountOfVideos": 2}
  ]
}`

func TestLoader_LoadFromFolder(t *testing.T) {
	db := newServiceDB(t)
	loader := NewLoader(db, nil)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db.json"), []byte(seedJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))

	count, files, err := loader.LoadFromFolder(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, files)

	svc := NewTagsService(db)
	page, err := svc.ListPage(1, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "a1", page.Data[0].ID)
	assert.Equal(t, "Go", page.Data[0].Title)
	assert.Equal(t, "rust-lang", page.Data[1].Slug)
	assert.Len(t, page.Data[1].ID, 8)
}

func TestLoader_ReloadUpdatesInPlace(t *testing.T) {
	db := newServiceDB(t)
	loader := NewLoader(db, nil)

	_, err := loader.LoadFromReader(strings.NewReader(seedJSON))
	require.NoError(t, err)

	updated := strings.Replace(seedJSON, `"amountOfVideos": 3`, `"amountOfVideos": 30`, 1)
	count, err := loader.LoadFromReader(strings.NewReader(updated))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	n, err := db.CountTags()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	tag, err := NewTagsService(db).GetTag("a1")
	require.NoError(t, err)
	assert.Equal(t, 30, tag.AmountOfVideos)
}

func TestLoader_LoadFromReader_SingularKey(t *testing.T) {
	db := newServiceDB(t)

	count, err := NewLoader(db, nil).LoadFromReader(strings.NewReader(`{"tag": [{"title": "Solo"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLoader_LoadFromReader_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad json", `{"tags": [`, "failed to decode JSON"},
		{"empty title", `{"tags": [{"title": " "}]}`, "empty title"},
		{"negative videos", `{"tags": [{"title": "Go", "amountOfVideos": -1}]}`, "negative amountOfVideos"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newServiceDB(t)
			_, err := NewLoader(db, nil).LoadFromReader(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			n, err := db.CountTags()
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestLoader_LoadFromFolder_Missing(t *testing.T) {
	_, _, err := NewLoader(newServiceDB(t), nil).LoadFromFolder(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "failed to read folder")
}
