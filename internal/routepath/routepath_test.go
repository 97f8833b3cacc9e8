package routepath

import "testing"

func TestTagsPage(t *testing.T) {
	t.Parallel()

	tests := map[int]string{
		-1: "/tags",
		0:  "/tags",
		1:  "/tags",
		2:  "/tags?page=2",
		13: "/tags?page=13",
	}
	for page, want := range tests {
		if got := TagsPage(page); got != want {
			t.Fatalf("TagsPage(%d) = %q, want %q", page, got, want)
		}
	}
}

func TestParsePage(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"":    1,
		"abc": 1,
		"0":   1,
		"-3":  1,
		"1":   1,
		"7":   7,
	}
	for raw, want := range tests {
		if got := ParsePage(raw); got != want {
			t.Fatalf("ParsePage(%q) = %d, want %d", raw, got, want)
		}
	}
}
