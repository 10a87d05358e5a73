package http

import (
	"encoding/json"

	"maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	"maragu.dev/gomponents/html"

	"github.com/mrlokans/shelfront/internal/auth"
	"github.com/mrlokans/shelfront/internal/dom"
	"github.com/mrlokans/shelfront/internal/page"
	"github.com/mrlokans/shelfront/internal/section"
	"github.com/mrlokans/shelfront/internal/shell"
)

const (
	htmxURL           = "https://unpkg.com/htmx.org@2.0.4"
	bootstrapCSSURL   = "https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css"
	bootstrapIconsURL = "https://cdn.jsdelivr.net/npm/bootstrap-icons@1.11.3/font/bootstrap-icons.min.css"
)

var navSections = []section.Section{section.Ebooks, section.Comics, section.Audiobooks, section.Series}

// regions maps container ids to their current inner HTML.
type regions map[string]string

func regionsOf(p dom.Patch) regions {
	r := make(regions, len(p.Fragments))
	for _, f := range p.Fragments {
		r[f.ID] = f.HTML
	}
	return r
}

// container renders an element whose content the page owns.
func (r regions) container(el func(...gomponents.Node) gomponents.Node, selector string, attrs ...gomponents.Node) gomponents.Node {
	id := selector[1:]
	return el(html.ID(id), gomponents.Group(attrs), gomponents.Raw(r[id]))
}

func eventsURL(p *page.Page) string {
	return "/pages/" + p.ID + "/events"
}

func csrfHeaders(token string) string {
	b, _ := json.Marshal(map[string]string{auth.CSRFTokenHeader: token})
	return string(b)
}

// pageLayout renders the full document of a freshly created page.
func pageLayout(p *page.Page, csrfToken string) gomponents.Node {
	cfg := p.Manager().Config()
	r := regionsOf(p.Doc.Snapshot())

	return html.Doctype(
		html.HTML(
			html.Lang("en"),
			html.Head(
				html.Meta(html.Charset("utf-8")),
				html.Meta(html.Name("viewport"), html.Content("width=device-width, initial-scale=1")),
				html.TitleEl(gomponents.Text(p.Section.Title()+" - Shelfront")),
				html.Link(html.Rel("stylesheet"), html.Href(bootstrapCSSURL)),
				html.Link(html.Rel("stylesheet"), html.Href(bootstrapIconsURL)),
				html.Link(html.Rel("stylesheet"), html.Href("/static/shell.css")),
				html.Script(html.Src(htmxURL)),
				html.Script(html.Src("/static/shell.js"), html.Defer()),
			),
			html.Body(
				gomponents.If(csrfToken != "", hx.Headers(csrfHeaders(csrfToken))),
				navbar(p.Section),
				html.Div(
					html.ID("app"),
					html.Class("container-fluid section-page"),
					gomponents.Attr("data-manager", p.GlobalName()),
					gomponents.Attr("data-section", string(p.Section)),
					gomponents.Attr("data-events", eventsURL(p)),
					toolbar(p, r, cfg),
					r.container(html.Div, shell.FiltersRegion, html.Class("advanced-filters")),
					r.container(html.Div, page.FeedbackRegion, html.Class("my-1"), gomponents.Attr("aria-live", "polite")),
					html.Div(
						html.Class("row split-pane"),
						r.container(html.Div, cfg.ListContainer, html.Class("col-lg-7 list-pane")),
						r.container(html.Div, cfg.DetailContainer, html.Class("col-lg-5 detail-pane")),
					),
					r.container(html.Div, section.ModalContainer, html.Class("modal-host")),
				),
				r.container(html.Div, dom.ToastRegion, html.Class("toast-stack"), gomponents.Attr("aria-live", "polite")),
			),
		),
	)
}

func navbar(current section.Section) gomponents.Node {
	links := make([]gomponents.Node, 0, len(navSections))
	for _, s := range navSections {
		class := "nav-link"
		if s == current {
			class += " active"
		}
		links = append(links, html.Li(
			html.Class("nav-item"),
			html.A(
				html.Class(class),
				html.Href("/"+string(s)),
				gomponents.If(s == current, gomponents.Attr("aria-current", "page")),
				html.I(html.Class("bi "+s.Icon())),
				gomponents.Text(" "+s.Title()),
			),
		))
	}
	return html.Nav(
		html.Class("navbar navbar-expand bg-body-tertiary mb-2"),
		html.Div(
			html.Class("container-fluid"),
			html.A(html.Class("navbar-brand"), html.Href("/"), gomponents.Text("Shelfront")),
			html.Ul(html.Class("navbar-nav"), gomponents.Group(links)),
		),
	)
}

func toolbar(p *page.Page, r regions, cfg section.Config) gomponents.Node {
	return html.Div(
		html.Class("d-flex flex-wrap align-items-center gap-2 toolbar"),
		html.H1(
			html.Class("h4 mb-0 me-2"),
			gomponents.Text(p.Section.Title()+" "),
			r.container(html.Span, cfg.CountBadge, html.Class("badge text-bg-secondary item-count")),
		),
		html.Div(
			html.Class("input-group input-group-sm search-group"),
			html.Input(
				html.ID(shell.SearchInput[1:]),
				html.Type("search"),
				html.Name("search"),
				html.Class("form-control"),
				html.Placeholder("Search "+p.Section.Key()+"..."),
				html.AutoComplete("off"),
				hx.Post(eventsURL(p)),
				hx.Trigger("input changed, search"),
				hx.Vals(`{"action": "search"}`),
				hx.Swap("none"),
				gomponents.Attr("hx-sync", "this:replace"),
			),
			r.container(html.Span, shell.SearchClearRegion),
		),
		r.container(html.Div, shell.ViewToggleRegion),
		r.container(html.Div, shell.FilterToggleRegion),
		r.container(html.Div, shell.RefreshRegion),
	)
}
