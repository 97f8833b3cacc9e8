package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestNewTagPage(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		perPage   int
		items     int
		wantPrev  *int
		wantNext  *int
		wantPages int
	}{
		{"first of three", 1, 10, 25, nil, intPtr(2), 3},
		{"middle", 2, 10, 25, intPtr(1), intPtr(3), 3},
		{"last partial", 3, 10, 25, intPtr(2), nil, 3},
		{"exact fit", 2, 10, 20, intPtr(1), nil, 2},
		{"empty collection", 1, 10, 0, nil, nil, 1},
		{"past the end", 7, 10, 25, intPtr(3), nil, 3},
		{"page below one", 0, 10, 25, nil, intPtr(2), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewTagPage(tt.page, tt.perPage, tt.items, nil)

			assert.Equal(t, 1, p.First)
			assert.Equal(t, tt.wantPages, p.Pages)
			assert.Equal(t, tt.wantPages, p.Last)
			assert.Equal(t, tt.items, p.Items)
			assert.Equal(t, tt.wantPrev, p.Prev)
			assert.Equal(t, tt.wantNext, p.Next)
			assert.NotNil(t, p.Data)
		})
	}
}

func TestTagPage_JSON(t *testing.T) {
	p := NewTagPage(1, 10, 1, []Tag{{ID: "1", Title: "Go", Slug: "go", AmountOfVideos: 3}})

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"first": 1, "prev": null, "next": null, "last": 1, "pages": 1, "items": 1,
		"data": [{"id": "1", "title": "Go", "slug": "go", "amountOfVideos": 3}]
	}`, string(b))
}

func TestSeedFile_GetTags(t *testing.T) {
	var plural SeedFile
	require.NoError(t, json.Unmarshal([]byte(`{"tags":[{"title":"Go"}]}`), &plural))
	assert.Len(t, plural.GetTags(), 1)

	var singular SeedFile
	require.NoError(t, json.Unmarshal([]byte(`{"tag":[{"title":"Go"},{"title":"Rust"}]}`), &singular))
	assert.Len(t, singular.GetTags(), 2)
}
