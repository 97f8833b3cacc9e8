package services

import (
	"fmt"
	"regexp"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	// Matches spaces, underscores, and slashes (for replacement with dashes).
	wordSeparatorRe = regexp.MustCompile(`[\s_/]+`)
	// Matches non-alphanumeric characters (except dashes).
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	// Matches multiple consecutive dashes.
	multipleDashRe = regexp.MustCompile(`-+`)
)

// Slugify converts a tag title to its URL slug.
//
//	"Slow Burn"   → "slow-burn"
//	"react_hooks" → "react-hooks"
//	"C++ / Rust!" → "c-rust"
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

const tagIDAlphabet = "0123456789abcdef"

// createdAtLayout is fixed width so created_at sorts lexically in insertion order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// NewTagID returns a short random id in the style json-server assigns.
func NewTagID() (string, error) {
	id, err := gonanoid.Generate(tagIDAlphabet, 8)
	if err != nil {
		return "", fmt.Errorf("generate tag id: %w", err)
	}
	return id, nil
}
