package shell

import (
	"maragu.dev/gomponents"
	"maragu.dev/gomponents/html"

	"github.com/mrlokans/shelfront/internal/present"
	"github.com/mrlokans/shelfront/internal/section"
)

type option struct {
	value string
	label string
}

var statusOptions = []option{
	{present.FilterAll, "All"},
	{present.StatusUnread, "Unread"},
	{present.StatusReading, "Reading"},
	{present.StatusRead, "Read"},
}

func sortOptions(s section.Section) []option {
	opts := []option{
		{"title", "Title (A-Z)"},
		{"-title", "Title (Z-A)"},
	}
	switch s {
	case section.Ebooks, section.Comics:
		opts = append(opts, option{"author", "Author"})
	case section.Audiobooks:
		opts = append(opts, option{"author", "Author"}, option{"narrator", "Narrator"}, option{"-duration", "Longest"})
	}
	return append(opts,
		option{"-date", "Recently scanned"},
		option{"date", "Oldest scanned"},
		option{"-size", "Largest"},
		option{"size", "Smallest"},
	)
}

func (s *Shell) renderViewToggleLocked(mode section.ViewMode) {
	s.surface.Set(ViewToggleRegion, html.Div(
		html.Class("btn-group btn-group-sm"),
		html.Role("group"),
		gomponents.Attr("aria-label", "View mode"),
		viewButton(section.ViewList, "bi-list-ul", "List view", mode),
		viewButton(section.ViewGrid, "bi-grid-3x3-gap", "Grid view", mode),
	))
}

func viewButton(mode section.ViewMode, icon, label string, current section.ViewMode) gomponents.Node {
	class := "btn btn-outline-secondary view-toggle"
	active := mode == current
	if active {
		class += " active"
	}
	return html.Button(
		html.Type("button"),
		html.Class(class),
		gomponents.Attr("data-action", "setView"),
		gomponents.Attr("data-view", string(mode)),
		gomponents.Attr("aria-pressed", boolString(active)),
		gomponents.Attr("title", label),
		html.I(html.Class("bi "+icon)),
	)
}

func (s *Shell) renderSearchClearLocked() {
	class := "btn btn-link search-clear"
	if s.criteria.Search == "" {
		class += " d-none"
	}
	s.surface.Set(SearchClearRegion, html.Button(
		html.Type("button"),
		html.Class(class),
		gomponents.Attr("data-action", "clearSearch"),
		gomponents.Attr("aria-label", "Clear search"),
		html.I(html.Class("bi bi-x-circle")),
	))
}

func (s *Shell) renderFilterToggleLocked() {
	icon := "bi-funnel"
	if s.filtersOpen {
		icon = "bi-funnel-fill"
	}
	s.surface.Set(FilterToggleRegion, html.Button(
		html.Type("button"),
		html.Class("btn btn-sm btn-outline-secondary filter-toggle"),
		gomponents.Attr("data-action", "toggleFilters"),
		gomponents.Attr("aria-expanded", boolString(s.filtersOpen)),
		html.I(html.Class("bi "+icon)),
		gomponents.Text(" Filters"),
	))
}

func (s *Shell) renderFiltersLocked() {
	caps := s.m.Capabilities()
	class := "advanced-filters-body collapse"
	if s.filtersOpen {
		class += " show"
	}

	formats := []option{{present.FilterAll, "All formats"}}
	for _, f := range s.formats {
		formats = append(formats, option{f, f})
	}

	s.surface.Set(FiltersRegion, html.Div(
		html.Class(class),
		html.Div(
			html.Class("row g-2"),
			gomponents.If(caps.Sort, filterSelect("sort", "Sort by", sortOptions(s.m.Section()), s.criteria.Sort)),
			gomponents.If(caps.FormatFilter, filterSelect("format", "Format", formats, s.criteria.Format)),
			gomponents.If(caps.StatusFilter, filterSelect("status", "Status", statusOptions, s.criteria.Status)),
		),
	))
}

func filterSelect(name, label string, opts []option, current string) gomponents.Node {
	if current == "" {
		current = opts[0].value
	}
	nodes := make([]gomponents.Node, 0, len(opts))
	for _, o := range opts {
		nodes = append(nodes, html.Option(
			html.Value(o.value),
			gomponents.If(o.value == current, html.Selected()),
			gomponents.Text(o.label),
		))
	}
	id := "filter-" + name
	return html.Div(
		html.Class("col-auto"),
		html.Label(html.For(id), html.Class("form-label small"), gomponents.Text(label)),
		html.Select(
			html.ID(id),
			html.Name(name),
			html.Class("form-select form-select-sm"),
			gomponents.Attr("data-filter", name),
			gomponents.Group(nodes),
		),
	)
}

func (s *Shell) renderRefreshLocked() {
	icon := html.I(html.Class("bi bi-arrow-clockwise"))
	if s.refreshing {
		icon = html.Span(html.Class("spinner-border spinner-border-sm"), gomponents.Attr("aria-hidden", "true"))
	}
	s.surface.Set(RefreshRegion, html.Button(
		html.Type("button"),
		html.Class("btn btn-sm btn-outline-primary refresh"),
		gomponents.Attr("data-action", "refresh"),
		gomponents.If(s.refreshing, html.Disabled()),
		icon,
		gomponents.Text(" Refresh"),
	))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
