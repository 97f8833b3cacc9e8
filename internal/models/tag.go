package models

// Tag is a labeled category with the number of videos filed under it
type Tag struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Slug           string `json:"slug"`
	AmountOfVideos int    `json:"amountOfVideos"`
}

// TagPage is one page of the tag collection in json-server's pagination envelope.
// Prev and Next are nil on the first and last page respectively.
type TagPage struct {
	First int   `json:"first"`
	Prev  *int  `json:"prev"`
	Next  *int  `json:"next"`
	Last  int   `json:"last"`
	Pages int   `json:"pages"`
	Items int   `json:"items"`
	Data  []Tag `json:"data"`
}

// NewTagPage builds the envelope for page (1-based) of a collection with items entries split
// into pages of perPage.
func NewTagPage(page, perPage, items int, data []Tag) TagPage {
	if perPage < 1 {
		perPage = 1
	}
	pages := (items + perPage - 1) / perPage
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if data == nil {
		data = []Tag{}
	}
	p := TagPage{
		First: 1,
		Last:  pages,
		Pages: pages,
		Items: items,
		Data:  data,
	}
	if page > 1 {
		prev := min(page-1, pages)
		p.Prev = &prev
	}
	if page < pages {
		next := page + 1
		p.Next = &next
	}
	return p
}
