package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"tagboard/internal/routepath"
	"tagboard/internal/tagscreen"
)

// TableID is the element the event stream swaps table updates into.
const TableID = "tags-table"

// TableEvent is the SSE event name carrying a rendered Table.
const TableEvent = "table"

const scripts = `<script src="https://unpkg.com/htmx.org@2.0.4"></script>` +
	`<script src="https://unpkg.com/htmx-ext-sse@2.2.2/sse.js"></script>`

// PageOptions configures the full document.
type PageOptions struct {
	Title string
}

// Page renders the whole screen.
func Page(view tagscreen.View, opts PageOptions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := opts.Title
		if title == "" {
			title = "Tags"
		}

		h := newHTMLWriter(ctx, w)
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title>`)
		h.raw(scripts)
		h.raw(`</head><body class="py-6 space-y-8"><div>`)
		h.component(Header())
		h.component(Tabs("Tags"))
		h.raw(`</div><div><main class="max-w-6xl mx-auto space-y-5">`)

		h.raw(`<div class="flex px-4 items-center gap-3"><h1 class="text-xl font-bold">Tags</h1>`)
		h.raw(`<button type="button" class="button primary">Create new` + iconPlus + `</button></div>`)

		h.raw(`<div class="flex px-4 items-center justify-between">`)
		h.component(FilterInput(view.Filter))
		h.raw(`<button type="button" class="button">` + iconFileDown + `Export</button></div>`)

		h.raw(`<div`)
		h.attr("id", TableID)
		h.attr("hx-ext", "sse")
		h.attr("sse-connect", routepath.TagsEvents)
		h.attr("sse-swap", TableEvent)
		h.raw(`>`)
		h.component(Table(view))
		h.raw(`</div></main></div></body></html>`)
		return h.err
	})
}

// Header renders the application bar.
func Header() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		h.raw(`<header class="max-w-6xl mx-auto flex items-center justify-between px-4">`)
		h.raw(`<a class="brand"`)
		h.attr("href", routepath.Root)
		h.raw(`>tagboard</a></header>`)
		return h.err
	})
}

var tabs = []string{"Overview", "Videos", "Tags", "Settings"}

// Tabs renders the section navigation with active highlighted.
func Tabs(active string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		h.raw(`<nav class="tabs max-w-6xl mx-auto px-4">`)
		for _, tab := range tabs {
			if tab == active {
				h.raw(`<a class="tab active" aria-current="page"`)
				h.attr("href", routepath.Tags)
				h.raw(`>`)
			} else {
				h.raw(`<span class="tab">`)
			}
			h.text(tab)
			if tab == active {
				h.raw(`</a>`)
			} else {
				h.raw(`</span>`)
			}
		}
		h.raw(`</nav>`)
		return h.err
	})
}

// FilterInput renders the search box. Each keystroke posts the raw value; the
// table follows through the event stream once the value settles.
func FilterInput(raw string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		h.raw(`<form class="input filter" method="post"`)
		h.attr("action", routepath.TagsFilter)
		h.raw(`>` + iconSearch + `<input type="search" name="q" autocomplete="off" placeholder="Search tags..."`)
		h.attr("value", raw)
		h.attr("hx-post", routepath.TagsFilter)
		h.attr("hx-trigger", "input")
		h.attr("hx-swap", "none")
		h.raw(`></form>`)
		return h.err
	})
}

// Table renders the table region. Before any page arrived it renders nothing
// except an error banner when the first fetch failed.
func Table(view tagscreen.View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		if view.Status == tagscreen.StatusError {
			h.component(ErrorBanner(view.Err))
		}
		if !view.HasData() {
			return h.err
		}

		h.raw(`<table class="table"`)
		h.attr("data-status", string(view.Status))
		if view.Placeholder || view.Status == tagscreen.StatusRevalidating {
			h.raw(` aria-busy="true"`)
		}
		h.raw(`><thead><tr><th>Name</th><th>Amount of videos</th><th>Actions</th></tr></thead><tbody>`)
		for _, row := range view.Rows {
			h.raw(`<tr`)
			h.attr("data-tag-id", row.ID)
			h.raw(`><td><div class="flex flex-col gap-0.5"><span class="font-medium">`)
			h.text(row.Title)
			h.raw(`</span><span class="text-xs text-zinc-500">`)
			h.text(row.ID)
			h.raw(`</span></div></td><td class="text-zinc-300">`)
			h.text(row.Videos)
			h.raw(`</td><td class="text-right"><button type="button" class="button icon" aria-label="More actions">` + iconMore + `</button></td></tr>`)
		}
		h.raw(`</tbody></table>`)
		h.component(Pagination(*view.Pagination, len(view.Rows)))
		return h.err
	})
}

// ErrorBanner renders a fetch failure with a retry action.
func ErrorBanner(message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		h.raw(`<div class="alert error" role="alert"><span>Could not load tags: `)
		h.text(message)
		h.raw(`</span><form method="post"`)
		h.attr("action", routepath.TagsRetry)
		h.raw(`><button type="submit" class="button"`)
		h.attr("hx-post", routepath.TagsRetry)
		h.attr("hx-swap", "none")
		h.raw(`>Retry</button></form></div>`)
		return h.err
	})
}

// Pagination renders the pager for p with rows visible on the current page.
func Pagination(p tagscreen.Pagination, rows int) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newHTMLWriter(ctx, w)
		h.raw(`<nav class="pagination flex items-center justify-between" aria-label="Pagination">`)
		h.raw(`<span class="pagination-summary">Showing `)
		h.text(strconv.Itoa(rows))
		h.raw(` of <span data-items>`)
		h.text(humanize.Comma(int64(p.Items)))
		h.raw(`</span> items</span><div class="flex items-center gap-8">`)
		h.raw(`<span class="pagination-position">Page <span data-page>`)
		h.text(strconv.Itoa(p.Page))
		h.raw(`</span> of <span data-pages>`)
		h.text(strconv.Itoa(p.Pages))
		h.raw(`</span></span><div class="flex gap-1.5">`)

		prev := min(p.Page-1, p.Pages)
		pageLink(h, "First page", "first", 1, p.HasPrev)
		pageLink(h, "Previous page", "prev", prev, p.HasPrev)
		pageLink(h, "Next page", "next", p.Page+1, p.HasNext)
		pageLink(h, "Last page", "last", p.Pages, p.HasNext)
		h.raw(`</div></div></nav>`)
		return h.err
	})
}

func pageLink(h *htmlWriter, label, rel string, page int, enabled bool) {
	if !enabled {
		h.raw(`<span class="button size-icon" aria-disabled="true"`)
		h.attr("data-rel", rel)
		h.raw(`>`)
		h.text(label)
		h.raw(`</span>`)
		return
	}
	h.raw(`<a class="button size-icon"`)
	h.attr("href", routepath.TagsPage(page))
	h.attr("rel", rel)
	h.attr("data-rel", rel)
	h.raw(`>`)
	h.text(label)
	h.raw(`</a>`)
}
