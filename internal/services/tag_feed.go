package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"tagboard/internal/models"
	"tagboard/internal/tagsclient"
)

// TagLister requests one page of tags from the remote source
type TagLister interface {
	ListTags(ctx context.Context, page, perPage int) (models.TagPage, error)
}

// TagFeed fetches pages for the tag list screen and applies the title filter
type TagFeed struct {
	lister  TagLister
	perPage int
}

// NewTagFeed creates a TagFeed. perPage <= 0 uses the client's default page size.
func NewTagFeed(lister TagLister, perPage int) *TagFeed {
	if perPage <= 0 {
		perPage = tagsclient.DefaultPerPage
	}
	return &TagFeed{lister: lister, perPage: perPage}
}

// PerPage returns the page size requested from the source.
func (f *TagFeed) PerPage() int {
	return f.perPage
}

// FetchPage requests page (1-based) and, when filter is non-empty, keeps only the
// tags whose title starts with it, ignoring case. Filtering runs after the source
// paginated, so Items and Pages still describe the unfiltered collection.
func (f *TagFeed) FetchPage(ctx context.Context, page int, filter string) (models.TagPage, error) {
	if page < 1 {
		page = 1
	}
	tags, err := f.lister.ListTags(ctx, page, f.perPage)
	if err != nil {
		return models.TagPage{}, fmt.Errorf("fetch tags page %d: %w", page, err)
	}
	if filter == "" {
		return tags, nil
	}
	tags.Data = FilterByTitlePrefix(tags.Data, filter)
	return tags, nil
}

// FilterByTitlePrefix returns the tags whose case-folded title starts with the
// case-folded prefix. The input slice is not modified.
func FilterByTitlePrefix(tags []models.Tag, prefix string) []models.Tag {
	fold := cases.Fold()
	want := fold.String(prefix)
	out := make([]models.Tag, 0, len(tags))
	for _, tag := range tags {
		if strings.HasPrefix(fold.String(tag.Title), want) {
			out = append(out, tag)
		}
	}
	return out
}
