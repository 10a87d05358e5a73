package section

import (
	"context"
	"strconv"

	"maragu.dev/gomponents"
	"maragu.dev/gomponents/html"

	"github.com/mrlokans/shelfront/internal/backend"
	"github.com/mrlokans/shelfront/internal/entities"
	"github.com/mrlokans/shelfront/internal/errors"
	"github.com/mrlokans/shelfront/internal/present"
)

// books is the list/detail implementation shared by ebooks and comics.
type books struct {
	*Manager

	comics bool
	// companions is nil for sections without companion files.
	companions map[int64]*companionState
}

type companionState struct {
	loading bool
	files   []entities.CompanionFile
	err     error
}

func newBooks(s Section) *books {
	b := &books{comics: s == Comics}
	if s == Ebooks {
		b.companions = map[int64]*companionState{}
	}
	return b
}

// bind creates the base manager. v is the outermost manager type so that the
// base sees its optional hooks.
func (b *books) bind(s Section, cfg Config, env Env, v variant) error {
	m, err := newManager(s, cfg, env, v)
	if err != nil {
		return err
	}
	b.Manager = m
	return nil
}

func (b *books) capabilities() Capabilities {
	return Capabilities{Search: true, Sort: true, FormatFilter: true, StatusFilter: true, Expand: true}
}

func (b *books) match(item *entities.Item, c present.Criteria) bool {
	return present.Match(item, c)
}

func (b *books) value(item *entities.Item, field string) present.Sortable {
	return present.Value(item, field)
}

func (b *books) columns() []string {
	if b.comics {
		return []string{"", "Title", "Issue", "Pages", "Format", "Size", "Status"}
	}
	return []string{"", "Title", "Format", "Size", "Last scanned", "Status"}
}

func (b *books) row(item *entities.Item, st rowState) gomponents.Node {
	cells := []gomponents.Node{
		rowAttrs("item-row", item, st),
		chevron(item, st),
		html.Td(html.Class("col-cover"), b.cover(item, "cover-thumb")),
		html.Td(titleCell(item, b.subtitle(item))),
	}
	if b.comics {
		cells = append(cells,
			html.Td(present.Text(item.IssueNumber)),
			html.Td(gomponents.If(item.PageCount > 0, gomponents.Text(strconv.Itoa(item.PageCount)))),
		)
	}
	cells = append(cells,
		html.Td(formatBadge(item)),
		html.Td(gomponents.Text(present.FormatFileSize(item.FileSize))),
	)
	if !b.comics {
		cells = append(cells, html.Td(present.Text(b.env.Dates.Format(item.LastScanned))))
	}
	cells = append(cells, html.Td(statusBadges(item)))

	tr := html.Tr(cells...)
	if !st.Expanded {
		return tr
	}
	return gomponents.Group{tr, expansionRow(item, len(b.columns())+1, b.expansion(item))}
}

func (b *books) subtitle(item *entities.Item) string {
	if b.comics {
		return seriesLabel(item)
	}
	if s := seriesLabel(item); s != "" {
		return item.Author + " · " + s
	}
	return item.Author
}

// hasCompanions reports whether companion files can be shown.
func (b *books) hasCompanions() bool {
	return b.companions != nil && b.cfg.Endpoints.Has(EndpointCompanionFiles)
}

func (b *books) expansion(item *entities.Item) gomponents.Node {
	info := fields(
		field("Author", item.Author),
		field("Series", seriesLabel(item)),
		field("File", item.FilePath),
		field("Last scanned", b.env.Dates.Format(item.LastScanned)),
		gomponents.If(item.Progress() > 0, field("Progress", present.FormatProgress(item.Progress()))),
	)
	if !b.hasCompanions() {
		return html.Div(html.Class("row-expansion"), info)
	}
	return html.Div(
		html.Class("row-expansion"),
		info,
		html.H6(html.Class("mt-2"), gomponents.Text("Companion files")),
		b.companionPanel(item.ID),
	)
}

func (b *books) card(item *entities.Item, st rowState) gomponents.Node {
	return html.Div(
		rowAttrs("item-card", item, st),
		b.cover(item, "cover-card"),
		html.Div(
			html.Class("item-card-body"),
			titleCell(item, b.subtitle(item)),
			html.Div(html.Class("item-card-badges"), formatBadge(item), statusBadges(item)),
			progressBar(item),
		),
	)
}

func (b *books) renderDetail(d *Detail) gomponents.Node {
	item := d.Item
	names := []string{TabInformation, TabMetadata}
	if b.hasCompanions() {
		names = append(names, TabFiles)
	}

	var content gomponents.Node
	switch d.Tab {
	case TabMetadata:
		content = b.metadataTab(item)
	case TabFiles:
		if b.hasCompanions() {
			content = b.companionPanel(item.ID)
		} else {
			content = b.informationTab(item)
		}
	default:
		content = b.informationTab(item)
	}

	return html.Div(
		html.Class("item-detail"),
		gomponents.Attr("data-detail-kind", d.Kind),
		idAttr(item.ID),
		html.Div(
			html.Class("detail-header"),
			b.cover(item, "cover-detail"),
			html.Div(
				html.H2(html.Class("detail-title"), present.Text(item.DisplayTitle())),
				gomponents.If(item.Author != "", html.P(html.Class("detail-author"), present.Text(item.Author))),
				html.Div(html.Class("detail-badges"), formatBadge(item), statusBadges(item)),
				progressBar(item),
			),
		),
		html.Div(
			html.Class("detail-actions"),
			gomponents.If(b.cfg.Endpoints.Has(EndpointToggleRead), readToggleButton(item, "toggleRead")),
			gomponents.If(b.cfg.Endpoints.Has(EndpointDownload), button("Download", "bi-download", "download", item.ID, "btn-primary")),
		),
		tabs(d, names...),
		html.Div(html.Class("tab-content detail-tab-content"), content),
	)
}

func (b *books) informationTab(item *entities.Item) gomponents.Node {
	return html.Div(
		gomponents.If(item.Description != "", html.Div(html.Class("detail-description"), present.HTML(item.Description))),
		fields(
			field("Author", item.Author),
			field("Series", seriesLabel(item)),
			gomponents.If(b.comics, field("Issue", item.IssueNumber)),
			gomponents.If(b.comics && item.PageCount > 0, field("Pages", strconv.Itoa(item.PageCount))),
			field("Format", item.FormatTag()),
			field("Size", present.FormatFileSize(item.FileSize)),
			field("Last scanned", b.env.Dates.Format(item.LastScanned)),
			gomponents.If(item.Progress() > 0, field("Progress", present.FormatProgress(item.Progress()))),
		),
	)
}

func (b *books) metadataTab(item *entities.Item) gomponents.Node {
	return fields(
		field("Publisher", item.Publisher),
		field("Published", item.PublicationDate),
		field("ISBN", item.ISBN),
		field("Language", item.Language),
		gomponents.If(!b.comics && item.PageCount > 0, field("Pages", strconv.Itoa(item.PageCount))),
		field("File path", item.FilePath),
	)
}

func (b *books) decodeDetail(p backend.Payload) (*Detail, error) {
	return decodeItem(p, b.section.Singular())
}

// decodeItem reads the detail record under key.
func decodeItem(p backend.Payload, key string) (*Detail, error) {
	if !p.Has(key) {
		return nil, errors.Parse(errors.NotFoundf("response has no %q field", key))
	}
	var item entities.Item
	if err := p.Decode(key, &item); err != nil {
		return nil, err
	}
	return &Detail{Kind: key, Item: &item}, nil
}

func (b *books) toggleRead(ctx context.Context, id int64) error {
	return b.Manager.toggleRead(ctx, id, EndpointToggleRead, b.itemLocked)
}

func (b *books) download(id int64) error {
	item := b.Item(id)
	if item == nil {
		return errors.Validationf("no %s with id %d", b.section.Singular(), id)
	}
	return b.Manager.download(EndpointDownload, id, downloadName(item))
}

func (b *books) companionPanel(id int64) gomponents.Node {
	st := b.companions[id]
	switch {
	case st == nil || st.loading:
		return present.LoadingPanel("Loading companion files...")
	case st.err != nil:
		return present.ErrorPanel(st.err, present.ErrorOptions{RetryAction: "loadCompanionFiles", RetryItemID: id, LoginURL: b.env.LoginURL})
	case len(st.files) == 0:
		return present.EmptyPanel("No companion files.")
	}

	items := make([]gomponents.Node, 0, len(st.files))
	for _, f := range st.files {
		var link gomponents.Node
		if f.DownloadURL != "" {
			link = html.A(
				html.Class("btn btn-sm btn-link"),
				html.Href(b.env.PublicURL(f.DownloadURL)),
				gomponents.Attr("download", f.Name),
				html.I(html.Class("bi bi-download")),
			)
		}
		items = append(items, html.Li(
			html.Class("list-group-item companion-file"),
			html.Span(html.Class("companion-name"), present.Text(f.Name)),
			gomponents.If(f.FileType != "", html.Span(html.Class("badge bg-light text-dark"), present.Text(f.FileType))),
			html.Small(html.Class("text-muted"), gomponents.Text(present.FormatFileSize(f.FileSize))),
			link,
		))
	}
	return html.Ul(html.Class("list-group companion-files"), gomponents.Group(items))
}
