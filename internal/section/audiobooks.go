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

// ModalContainer receives the file info dialog.
const ModalContainer = "#modal"

// AudiobooksManager renders the detail pane straight from the list payload,
// which already carries the full record.
type AudiobooksManager struct {
	*Manager
}

func NewAudiobooksManager(cfg Config, env Env) (*AudiobooksManager, error) {
	a := &AudiobooksManager{}
	m, err := newManager(Audiobooks, cfg, env, a)
	if err != nil {
		return nil, err
	}
	a.Manager = m
	return a, nil
}

func (a *AudiobooksManager) capabilities() Capabilities {
	return Capabilities{Search: true, Sort: true, FormatFilter: true, StatusFilter: true, Expand: true, DetailFromCache: true}
}

func (a *AudiobooksManager) match(item *entities.Item, c present.Criteria) bool {
	if c.Search != "" && present.MatchSearch(c.Search, item.Narrator) {
		c.Search = ""
	}
	return present.Match(item, c)
}

func (a *AudiobooksManager) value(item *entities.Item, field string) present.Sortable {
	return present.Value(item, field)
}

func (a *AudiobooksManager) columns() []string {
	return []string{"", "Title", "Narrator", "Duration", "Size", "Status"}
}

func (a *AudiobooksManager) row(item *entities.Item, st rowState) gomponents.Node {
	tr := html.Tr(
		rowAttrs("item-row", item, st),
		chevron(item, st),
		html.Td(html.Class("col-cover"), a.cover(item, "cover-thumb")),
		html.Td(titleCell(item, item.Author)),
		html.Td(present.Text(item.Narrator)),
		html.Td(gomponents.Text(present.FormatDuration(item.Duration))),
		html.Td(gomponents.Text(present.FormatFileSize(item.FileSize))),
		html.Td(statusBadges(item)),
	)
	if !st.Expanded {
		return tr
	}
	return gomponents.Group{tr, expansionRow(item, len(a.columns())+1, a.technical(item))}
}

// technical is the expansion block with the audio stream properties.
func (a *AudiobooksManager) technical(item *entities.Item) gomponents.Node {
	return html.Div(
		html.Class("row-expansion audio-technical"),
		fields(
			gomponents.If(item.Bitrate > 0, field("Bitrate", strconv.Itoa(item.Bitrate)+" kbps")),
			gomponents.If(item.SampleRate > 0, field("Sample rate", strconv.Itoa(item.SampleRate)+" Hz")),
			gomponents.If(item.Channels > 0, field("Channels", channels(item.Channels))),
			gomponents.If(item.ChapterCount > 0, field("Chapters", strconv.Itoa(item.ChapterCount))),
			field("Format", item.FormatTag()),
		),
	)
}

func channels(n int) string {
	switch n {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	}
	return strconv.Itoa(n)
}

func (a *AudiobooksManager) card(item *entities.Item, st rowState) gomponents.Node {
	return html.Div(
		rowAttrs("item-card", item, st),
		a.cover(item, "cover-card"),
		html.Div(
			html.Class("item-card-body"),
			titleCell(item, item.Author),
			gomponents.If(item.Duration > 0, html.Small(html.Class("text-muted"), gomponents.Text(present.FormatDuration(item.Duration)))),
			html.Div(html.Class("item-card-badges"), formatBadge(item), statusBadges(item)),
			progressBar(item),
		),
	)
}

func (a *AudiobooksManager) renderDetail(d *Detail) gomponents.Node {
	item := d.Item
	return html.Div(
		html.Class("item-detail"),
		gomponents.Attr("data-detail-kind", d.Kind),
		idAttr(item.ID),
		html.Div(
			html.Class("detail-header"),
			a.cover(item, "cover-detail"),
			html.Div(
				html.H2(html.Class("detail-title"), present.Text(item.DisplayTitle())),
				gomponents.If(item.Author != "", html.P(html.Class("detail-author"), present.Text(item.Author))),
				gomponents.If(item.Narrator != "", html.P(html.Class("detail-narrator text-muted"), present.Text("Narrated by "+item.Narrator))),
				html.Div(html.Class("detail-badges"), formatBadge(item), statusBadges(item)),
				progressBar(item),
			),
		),
		html.Div(
			html.Class("detail-actions"),
			button("Play", "bi-play-fill", "play", item.ID, "btn-primary"),
			gomponents.If(a.cfg.Endpoints.Has(EndpointToggleRead), readToggleButton(item, "toggleRead")),
			gomponents.If(a.cfg.Endpoints.Has(EndpointDownload), button("Download", "bi-download", "download", item.ID, "btn-outline-primary")),
			button("File info", "bi-info-circle", "showFileInfo", item.ID, "btn-outline-secondary"),
		),
		gomponents.If(item.Description != "", html.Div(html.Class("detail-description"), present.HTML(item.Description))),
		fields(
			field("Series", seriesLabel(item)),
			field("Duration", present.FormatDuration(item.Duration)),
			field("Size", present.FormatFileSize(item.FileSize)),
			field("Last scanned", a.env.Dates.Format(item.LastScanned)),
			gomponents.If(item.Progress() > 0, field("Progress", present.FormatProgress(item.Progress()))),
		),
	)
}

// decodeDetail is only used if a detail endpoint is configured anyway.
func (a *AudiobooksManager) decodeDetail(p backend.Payload) (*Detail, error) {
	return decodeItem(p, Audiobooks.Singular())
}

func (a *AudiobooksManager) activate(ctx context.Context, id int64) error {
	return a.PlayAudiobook(ctx, id)
}

func (a *AudiobooksManager) ToggleRead(ctx context.Context, id int64) error {
	return a.Manager.toggleRead(ctx, id, EndpointToggleRead, a.itemLocked)
}

func (a *AudiobooksManager) Download(_ context.Context, id int64) error {
	item := a.Item(id)
	if item == nil {
		return errors.Validationf("no audiobook with id %d", id)
	}
	return a.Manager.download(EndpointDownload, id, downloadName(item))
}

// PlayAudiobook has no player behind it yet; it only announces the title.
func (a *AudiobooksManager) PlayAudiobook(_ context.Context, id int64) error {
	item := a.Item(id)
	if item == nil {
		return errors.Validationf("no audiobook with id %d", id)
	}
	a.toast(present.SeverityInfo, "Playing "+item.DisplayTitle())
	return nil
}

// ShowFileInfo opens a dialog built from the cached record.
func (a *AudiobooksManager) ShowFileInfo(_ context.Context, id int64) error {
	item := a.Item(id)
	if item == nil {
		return errors.Validationf("no audiobook with id %d", id)
	}

	a.env.Surface.Set(ModalContainer, html.Div(
		html.Class("modal-dialog file-info"),
		idAttr(item.ID),
		html.Div(
			html.Class("modal-content"),
			html.Div(
				html.Class("modal-header"),
				html.H5(html.Class("modal-title"), present.Text(item.DisplayTitle())),
				html.Button(
					html.Type("button"),
					html.Class("btn-close"),
					action("closeModal"),
					gomponents.Attr("aria-label", "Close"),
				),
			),
			html.Div(
				html.Class("modal-body"),
				fields(
					field("File path", item.FilePath),
					field("Format", item.FormatTag()),
					field("Size", present.FormatFileSize(item.FileSize)),
					field("Duration", present.FormatDuration(item.Duration)),
					gomponents.If(item.Bitrate > 0, field("Bitrate", strconv.Itoa(item.Bitrate)+" kbps")),
					gomponents.If(item.SampleRate > 0, field("Sample rate", strconv.Itoa(item.SampleRate)+" Hz")),
					gomponents.If(item.Channels > 0, field("Channels", channels(item.Channels))),
					gomponents.If(item.ChapterCount > 0, field("Chapters", strconv.Itoa(item.ChapterCount))),
					field("Last scanned", a.env.Dates.Format(item.LastScanned)),
				),
			),
		),
	))
	a.env.Surface.Trigger("showModal", map[string]string{"selector": ModalContainer})
	return nil
}

func (a *AudiobooksManager) CloseModal() {
	a.env.Surface.Trigger("hideModal", map[string]string{"selector": ModalContainer})
}

func (a *AudiobooksManager) Actions() map[string]Action {
	return mergeActions(a.Manager.Actions(), map[string]Action{
		"toggleRead":   withItem(a.ToggleRead),
		"download":     withItem(a.Download),
		"play":         withItem(a.PlayAudiobook),
		"showFileInfo": withItem(a.ShowFileInfo),
		"closeModal": func(context.Context, Args) error {
			a.CloseModal()
			return nil
		},
	})
}
