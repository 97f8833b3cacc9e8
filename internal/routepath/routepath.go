// Package routepath centralizes the URL paths served by the tag list screen.
package routepath

import "strconv"

const (
	Root       = "/"
	Health     = "/health"
	Tags       = "/tags"
	TagsFilter = "/tags/filter"
	TagsTable  = "/tags/table"
	TagsEvents = "/tags/events"
	TagsRetry  = "/tags/retry"
	APITags    = "/api/tags"
	APIConfig  = "/api/config"
)

// TagsPage returns the screen URL for page (1-based). Page 1 has no query string.
func TagsPage(page int) string {
	if page <= 1 {
		return Tags
	}
	return Tags + "?page=" + strconv.Itoa(page)
}

// ParsePage reads the page query value. Missing, malformed or non-positive
// values select page 1.
func ParsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}
