package section

import (
	"strconv"
	"strings"

	"maragu.dev/gomponents"
	"maragu.dev/gomponents/html"

	"github.com/mrlokans/shelfront/internal/entities"
	"github.com/mrlokans/shelfront/internal/present"
	"github.com/mrlokans/shelfront/internal/utils"
)

// Detail tabs.
const (
	TabInformation = "information"
	TabMetadata    = "metadata"
	TabFiles       = "files"
)

func validTab(tab string) bool {
	switch tab {
	case TabInformation, TabMetadata, TabFiles:
		return true
	}
	return false
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func idAttr(id int64) gomponents.Node {
	return gomponents.Attr("data-item-id", strconv.FormatInt(id, 10))
}

func action(name string) gomponents.Node {
	return gomponents.Attr("data-action", name)
}

func (m *Manager) renderListLocked() {
	if len(m.filtered) == 0 {
		if len(m.current) == 0 {
			present.ShowEmpty(m.env.Surface, m.cfg.ListContainer, "No "+m.section.Key()+" found.")
		} else {
			present.ShowEmpty(m.env.Surface, m.cfg.ListContainer, "No "+m.section.Key()+" match the current filters.")
		}
		return
	}

	var body gomponents.Node
	if m.mode == ViewGrid {
		cards := make([]gomponents.Node, 0, len(m.filtered))
		for _, it := range m.filtered {
			cards = append(cards, m.v.card(it, m.rowStateLocked(it.ID)))
		}
		body = html.Div(html.Class("item-grid"), gomponents.Group(cards))
	} else {
		headers := []gomponents.Node{html.Th(html.Class("col-expand"))}
		if !m.caps.Expand {
			headers = headers[:0]
		}
		for _, c := range m.v.columns() {
			headers = append(headers, html.Th(gomponents.Text(c)))
		}
		rows := make([]gomponents.Node, 0, len(m.filtered))
		for _, it := range m.filtered {
			rows = append(rows, m.v.row(it, m.rowStateLocked(it.ID)))
		}
		body = html.Table(
			html.Class("table table-hover item-table"),
			html.THead(html.Tr(gomponents.Group(headers))),
			html.TBody(gomponents.Group(rows)),
		)
	}

	m.env.Surface.Set(m.cfg.ListContainer, html.Div(
		html.Class("items-view view-"+string(m.mode)),
		gomponents.Attr("data-section", string(m.section)),
		body,
	))
}

func (m *Manager) rowStateLocked(id int64) rowState {
	return rowState{
		Selected: m.hasSelection && m.selectedID == id,
		Expanded: m.expanded[id],
	}
}

func (m *Manager) renderDetailLocked() {
	if m.detail == nil {
		return
	}
	m.env.Surface.Set(m.cfg.DetailContainer, html.Div(
		html.Class("detail-view"),
		gomponents.If(m.narrow, html.Button(
			html.Type("button"),
			html.Class("btn btn-link detail-back"),
			action("closeDetail"),
			html.I(html.Class("bi bi-arrow-left")),
			gomponents.Text(" Back"),
		)),
		m.v.renderDetail(m.detail),
	))
	if m.narrow {
		m.env.Surface.Trigger("promoteDetail", nil)
	}
}

// rowAttrs are the selection attributes shared by list rows and grid cards.
func rowAttrs(base string, item *entities.Item, st rowState) gomponents.Node {
	class := base
	if st.Selected {
		class += " selected"
	}
	return gomponents.Group{
		html.Class(class),
		idAttr(item.ID),
		action("select"),
		gomponents.Attr("data-activate", "activate"),
	}
}

func chevron(item *entities.Item, st rowState) gomponents.Node {
	icon := "bi-chevron-right"
	label := "Expand"
	if st.Expanded {
		icon = "bi-chevron-down"
		label = "Collapse"
	}
	return html.Td(
		html.Class("col-expand"),
		html.Button(
			html.Type("button"),
			html.Class("btn btn-sm btn-link expand-toggle"),
			action("expand"),
			idAttr(item.ID),
			gomponents.Attr("aria-expanded", strconv.FormatBool(st.Expanded)),
			gomponents.Attr("aria-label", label),
			html.I(html.Class("bi "+icon)),
		),
	)
}

// expansionRow wraps inline detail in a full-width table row.
func expansionRow(item *entities.Item, span int, content gomponents.Node) gomponents.Node {
	return html.Tr(
		html.Class("expansion-row"),
		gomponents.Attr("data-expansion-for", strconv.FormatInt(item.ID, 10)),
		html.Td(gomponents.Attr("colspan", strconv.Itoa(span)), content),
	)
}

func (m *Manager) cover(item *entities.Item, class string) gomponents.Node {
	if item.CoverURL != "" && m.env.CoverURL != nil {
		return html.Img(
			html.Class(class),
			html.Src(m.env.CoverURL(item.ID)),
			html.Alt(item.DisplayTitle()),
			gomponents.Attr("loading", "lazy"),
		)
	}
	return html.Div(
		html.Class(class+" cover-placeholder"),
		html.I(html.Class("bi "+m.section.Icon())),
	)
}

func statusBadges(item *entities.Item) gomponents.Node {
	switch {
	case item.Complete():
		return html.Span(html.Class("badge bg-success badge-read"), gomponents.Text("Read"))
	case item.IsReading || item.Progress() > 0:
		return html.Span(html.Class("badge bg-info badge-reading"), gomponents.Text("Reading "+present.FormatProgress(item.Progress())))
	}
	return nil
}

func formatBadge(item *entities.Item) gomponents.Node {
	if item.FileFormat == "" {
		return nil
	}
	return html.Span(html.Class("badge bg-secondary format-badge"), present.Text(item.FormatTag()))
}

func progressBar(item *entities.Item) gomponents.Node {
	p := item.Progress()
	if p <= 0 || item.Complete() {
		return nil
	}
	pct := strconv.FormatFloat(p, 'f', -1, 64)
	return html.Div(
		html.Class("progress reading-progress"),
		html.Div(
			html.Class("progress-bar"),
			html.Role("progressbar"),
			gomponents.Attr("style", "width: "+pct+"%"),
			gomponents.Attr("aria-valuenow", pct),
			gomponents.Attr("aria-valuemin", "0"),
			gomponents.Attr("aria-valuemax", "100"),
		),
	)
}

// field renders one label/value pair of a detail or expansion block. Empty
// values are skipped.
func field(label, value string) gomponents.Node {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return html.Div(
		html.Class("detail-field"),
		html.Span(html.Class("detail-label"), gomponents.Text(label)),
		html.Span(html.Class("detail-value"), present.Text(value)),
	)
}

func fields(nodes ...gomponents.Node) gomponents.Node {
	return html.Div(html.Class("detail-fields"), gomponents.Group(nodes))
}

func titleCell(item *entities.Item, subtitle string) gomponents.Node {
	return html.Div(
		html.Class("item-title-cell"),
		html.Strong(html.Class("item-title"), present.Text(item.DisplayTitle())),
		gomponents.If(subtitle != "", html.Small(html.Class("item-subtitle text-muted"), present.Text(subtitle))),
	)
}

func button(label, icon, act string, id int64, class string) gomponents.Node {
	return html.Button(
		html.Type("button"),
		html.Class("btn btn-sm "+class),
		action(act),
		idAttr(id),
		html.I(html.Class("bi "+icon)),
		gomponents.Text(" "+label),
	)
}

func readToggleButton(item *entities.Item, act string) gomponents.Node {
	if item.IsRead {
		return button("Mark unread", "bi-arrow-counterclockwise", act, item.ID, "btn-outline-secondary")
	}
	return button("Mark read", "bi-check2-circle", act, item.ID, "btn-outline-success")
}

func seriesLabel(item *entities.Item) string {
	if item.Series == "" {
		return ""
	}
	if item.SeriesPosition != nil {
		return item.Series + " #" + strconv.FormatFloat(*item.SeriesPosition, 'f', -1, 64)
	}
	return item.Series
}

func downloadName(item *entities.Item) string {
	return utils.DownloadName(item.DisplayTitle(), item.FileFormat)
}

// tabs renders the detail tab strip; the active tab is posted back.
func tabs(d *Detail, names ...string) gomponents.Node {
	items := make([]gomponents.Node, 0, len(names))
	for _, name := range names {
		class := "nav-link"
		if d.Tab == name {
			class += " active"
		}
		items = append(items, html.Li(
			html.Class("nav-item"),
			html.Button(
				html.Type("button"),
				html.Class(class),
				action("showTab"),
				gomponents.Attr("data-tab", name),
				idAttr(d.Item.ID),
				gomponents.Text(tabLabel(name)),
			),
		))
	}
	return html.Ul(html.Class("nav nav-tabs detail-tabs"), html.Role("tablist"), gomponents.Group(items))
}

func tabLabel(name string) string {
	switch name {
	case TabMetadata:
		return "Metadata"
	case TabFiles:
		return "Files"
	}
	return "Information"
}
