package section

import (
	"context"
	"strconv"
	"strings"

	"maragu.dev/gomponents"
	"maragu.dev/gomponents/html"

	"github.com/mrlokans/shelfront/internal/backend"
	"github.com/mrlokans/shelfront/internal/entities"
	"github.com/mrlokans/shelfront/internal/errors"
	"github.com/mrlokans/shelfront/internal/present"
	"github.com/mrlokans/shelfront/internal/utils"
)

// Detail kinds served by the series detail endpoint.
const (
	KindSeries = "series"
	KindBook   = "book"
)

// SeriesManager lists series rather than books. Expanding a row shows the
// series' books; the detail pane shows either a series or one of its books.
type SeriesManager struct {
	*Manager
}

func NewSeriesManager(cfg Config, env Env) (*SeriesManager, error) {
	s := &SeriesManager{}
	m, err := newManager(Series, cfg, env, s)
	if err != nil {
		return nil, err
	}
	s.Manager = m
	return s, nil
}

func (s *SeriesManager) capabilities() Capabilities {
	return Capabilities{Search: true, Sort: true, FormatFilter: true, StatusFilter: true, Expand: true}
}

// match searches the series name and authors, accepts a format when any book
// has it, and quantifies the status over the books.
func (s *SeriesManager) match(item *entities.Item, c present.Criteria) bool {
	names := append([]string{item.Name, item.Title, item.Author}, item.Authors...)
	if !present.MatchSearch(c.Search, names...) {
		return false
	}
	if f := strings.TrimSpace(c.Format); f != "" && !strings.EqualFold(f, present.FilterAll) {
		if !anyBook(item.Books, func(b *entities.Item) bool { return strings.EqualFold(b.FormatKey(), f) }) {
			return false
		}
	}
	return SeriesStatus(item, c.Status)
}

// SeriesStatus applies a status filter to a whole series: read when every
// book is read, unread when no book is read, reading when some book has
// progress and is not read yet.
func SeriesStatus(series *entities.Item, status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", present.FilterAll:
		return true
	case present.StatusRead:
		return len(series.Books) > 0 && !anyBook(series.Books, func(b *entities.Item) bool { return !b.IsRead })
	case present.StatusUnread:
		return !anyBook(series.Books, func(b *entities.Item) bool { return b.IsRead })
	case present.StatusReading:
		return anyBook(series.Books, func(b *entities.Item) bool { return b.Progress() > 0 && !b.IsRead })
	}
	return true
}

func anyBook(books []*entities.Item, fn func(*entities.Item) bool) bool {
	for _, b := range books {
		if b != nil && fn(b) {
			return true
		}
	}
	return false
}

// value sorts dates by the most recently scanned book and sizes by the
// series total.
func (s *SeriesManager) value(item *entities.Item, field string) present.Sortable {
	switch {
	case field == "title" || field == "name":
		return present.String(item.DisplayTitle())
	case present.IsDateField(field):
		if latest, ok := latestScan(item); ok {
			return present.Number(latest)
		}
	case present.IsSizeField(field):
		return present.Number(float64(seriesSize(item)))
	}
	return present.Value(item, field)
}

func latestScan(series *entities.Item) (float64, bool) {
	var latest float64
	found := false
	for _, b := range series.Books {
		if b == nil {
			continue
		}
		t, ok := present.ParseTime(b.LastScanned)
		if !ok {
			continue
		}
		if ms := float64(t.UnixMilli()); !found || ms > latest {
			latest, found = ms, true
		}
	}
	return latest, found
}

func seriesSize(series *entities.Item) int64 {
	if series.TotalSize > 0 || len(series.Books) == 0 {
		return series.TotalSize
	}
	var total int64
	for _, b := range series.Books {
		if b != nil {
			total += b.FileSize
		}
	}
	return total
}

func readCount(series *entities.Item) int {
	n := 0
	for _, b := range series.Books {
		if b != nil && b.IsRead {
			n++
		}
	}
	return n
}

func (s *SeriesManager) columns() []string {
	return []string{"", "Series", "Books", "Size", "Last scanned", "Status"}
}

func (s *SeriesManager) subtitle(item *entities.Item) string {
	return strings.Join(item.AuthorList(), ", ")
}

func (s *SeriesManager) lastScanned(item *entities.Item) string {
	latest := ""
	var best float64
	for _, b := range item.Books {
		if b == nil {
			continue
		}
		if t, ok := present.ParseTime(b.LastScanned); ok {
			if ms := float64(t.UnixMilli()); latest == "" || ms > best {
				latest, best = b.LastScanned, ms
			}
		}
	}
	if latest == "" {
		latest = item.LastScanned
	}
	return s.env.Dates.Format(latest)
}

func (s *SeriesManager) row(item *entities.Item, st rowState) gomponents.Node {
	tr := html.Tr(
		rowAttrs("item-row series-row", item, st),
		chevron(item, st),
		html.Td(html.Class("col-cover"), s.cover(item, "cover-thumb")),
		html.Td(titleCell(item, s.subtitle(item))),
		html.Td(gomponents.Text(strconv.Itoa(len(item.Books)))),
		html.Td(gomponents.Text(present.FormatFileSize(seriesSize(item)))),
		html.Td(present.Text(s.lastScanned(item))),
		html.Td(seriesBadge(item)),
	)
	if !st.Expanded {
		return tr
	}
	return gomponents.Group{tr, expansionRow(item, len(s.columns())+1, s.bookList(item))}
}

func seriesBadge(item *entities.Item) gomponents.Node {
	total := len(item.Books)
	read := readCount(item)
	switch {
	case total > 0 && read == total:
		return html.Span(html.Class("badge bg-success badge-read"), gomponents.Text("Read"))
	case SeriesStatus(item, present.StatusReading):
		return html.Span(html.Class("badge bg-info badge-reading"), gomponents.Text("Reading"))
	case read > 0:
		return html.Span(html.Class("badge bg-secondary"), gomponents.Text(strconv.Itoa(read)+"/"+strconv.Itoa(total)+" read"))
	}
	return nil
}

// bookList renders the nested books of a series. Clicking a book opens it in
// the detail pane.
func (s *SeriesManager) bookList(series *entities.Item) gomponents.Node {
	if len(series.Books) == 0 {
		return present.EmptyPanel("This series has no books.")
	}
	rows := make([]gomponents.Node, 0, len(series.Books))
	for _, b := range series.Books {
		if b == nil {
			continue
		}
		rows = append(rows, html.Tr(
			html.Class("series-book-row"),
			idAttr(b.ID),
			action("selectBook"),
			html.Td(html.Class("col-position"), present.Text(position(b))),
			html.Td(titleCell(b, b.Author)),
			html.Td(formatBadge(b)),
			html.Td(gomponents.Text(present.FormatFileSize(b.FileSize))),
			html.Td(statusBadges(b)),
			html.Td(
				html.Class("text-end"),
				gomponents.If(s.cfg.Endpoints.Has(EndpointToggleRead), readToggleButton(b, "toggleBookRead")),
				gomponents.If(s.cfg.Endpoints.Has(EndpointBookDownload), button("", "bi-download", "downloadBook", b.ID, "btn-link")),
			),
		))
	}
	return html.Table(
		html.Class("table table-sm series-books"),
		html.TBody(gomponents.Group(rows)),
	)
}

func position(b *entities.Item) string {
	if b.SeriesPosition == nil {
		return ""
	}
	return "#" + strconv.FormatFloat(*b.SeriesPosition, 'f', -1, 64)
}

func (s *SeriesManager) card(item *entities.Item, st rowState) gomponents.Node {
	return html.Div(
		rowAttrs("item-card series-card", item, st),
		s.cover(item, "cover-card"),
		html.Div(
			html.Class("item-card-body"),
			titleCell(item, s.subtitle(item)),
			html.Small(html.Class("text-muted"), gomponents.Text(strconv.Itoa(len(item.Books))+" books")),
			html.Div(html.Class("item-card-badges"), seriesBadge(item)),
		),
	)
}

func (s *SeriesManager) renderDetail(d *Detail) gomponents.Node {
	if d.Kind == KindBook {
		return s.bookDetail(d)
	}
	item := d.Item
	return html.Div(
		html.Class("item-detail series-detail"),
		gomponents.Attr("data-detail-kind", d.Kind),
		idAttr(item.ID),
		html.Div(
			html.Class("detail-header"),
			s.cover(item, "cover-detail"),
			html.Div(
				html.H2(html.Class("detail-title"), present.Text(item.DisplayTitle())),
				gomponents.If(s.subtitle(item) != "", html.P(html.Class("detail-author"), present.Text(s.subtitle(item)))),
				html.Div(html.Class("detail-badges"), seriesBadge(item)),
			),
		),
		html.Div(
			html.Class("detail-actions"),
			gomponents.If(s.cfg.Endpoints.Has(EndpointMarkRead), button("Mark all read", "bi-check2-all", "markSeriesRead", item.ID, "btn-outline-success")),
			gomponents.If(s.cfg.Endpoints.Has(EndpointDownload), button("Download series", "bi-download", "downloadSeries", item.ID, "btn-primary")),
		),
		fields(
			field("Books", strconv.Itoa(len(item.Books))),
			field("Read", strconv.Itoa(readCount(item))),
			field("Total size", present.FormatFileSize(seriesSize(item))),
			field("Last scanned", s.lastScanned(item)),
		),
		gomponents.If(item.Description != "", html.Div(html.Class("detail-description"), present.HTML(item.Description))),
		s.bookList(item),
	)
}

// bookDetail renders a single book opened from a series.
func (s *SeriesManager) bookDetail(d *Detail) gomponents.Node {
	book := d.Item
	var back gomponents.Node
	if parent := s.seriesOfLocked(book.ID); parent != nil {
		back = html.Button(
			html.Type("button"),
			html.Class("btn btn-sm btn-link series-back"),
			action("loadDetail"),
			idAttr(parent.ID),
			html.I(html.Class("bi bi-arrow-left")),
			present.Text(" "+parent.DisplayTitle()),
		)
	}
	return html.Div(
		html.Class("item-detail book-detail"),
		gomponents.Attr("data-detail-kind", d.Kind),
		idAttr(book.ID),
		back,
		html.Div(
			html.Class("detail-header"),
			s.cover(book, "cover-detail"),
			html.Div(
				html.H2(html.Class("detail-title"), present.Text(book.DisplayTitle())),
				gomponents.If(book.Author != "", html.P(html.Class("detail-author"), present.Text(book.Author))),
				html.Div(html.Class("detail-badges"), formatBadge(book), statusBadges(book)),
				progressBar(book),
			),
		),
		html.Div(
			html.Class("detail-actions"),
			gomponents.If(s.cfg.Endpoints.Has(EndpointToggleRead), readToggleButton(book, "toggleBookRead")),
			gomponents.If(s.cfg.Endpoints.Has(EndpointBookDownload), button("Download", "bi-download", "downloadBook", book.ID, "btn-primary")),
		),
		gomponents.If(book.Description != "", html.Div(html.Class("detail-description"), present.HTML(book.Description))),
		fields(
			field("Series", seriesLabel(book)),
			field("Format", book.FormatTag()),
			field("Size", present.FormatFileSize(book.FileSize)),
			field("Last scanned", s.env.Dates.Format(book.LastScanned)),
			gomponents.If(book.Progress() > 0, field("Progress", present.FormatProgress(book.Progress()))),
			field("File path", book.FilePath),
		),
	)
}

// decodeDetail prefers the series record when a response carries both.
func (s *SeriesManager) decodeDetail(p backend.Payload) (*Detail, error) {
	if p.Has(KindSeries) {
		return decodeItem(p, KindSeries)
	}
	if p.Has(KindBook) {
		return decodeItem(p, KindBook)
	}
	return nil, errors.Parse(errors.NotFoundf("response has neither a %q nor a %q field", KindSeries, KindBook))
}

func (s *SeriesManager) activate(ctx context.Context, id int64) error {
	return s.ToggleExpand(ctx, id)
}

// findBookLocked returns the cached book with id from any series.
func (s *SeriesManager) findBookLocked(id int64) *entities.Item {
	if parent := s.seriesOfLocked(id); parent != nil {
		return parent.FindBook(id)
	}
	return nil
}

func (s *SeriesManager) seriesOfLocked(bookID int64) *entities.Item {
	for _, series := range s.current {
		if series.FindBook(bookID) != nil {
			return series
		}
	}
	return nil
}

func (s *SeriesManager) bookExists(id int64) (*entities.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.findBookLocked(id)
	return b, b != nil
}

// MarkSeriesRead marks every book of a series read on the service, then in
// the cache.
func (s *SeriesManager) MarkSeriesRead(ctx context.Context, id int64) error {
	if s.Item(id) == nil {
		return errors.Validationf("no series with id %d", id)
	}
	url, ok := s.cfg.Endpoints.URL(EndpointMarkRead, id)
	if !ok {
		return errors.Validation("marking a series read is not available here")
	}

	_, err := s.post(ctx, url, map[string]bool{"is_read": true})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.logger.Warn("mark series read failed", "id", id, "error", err)
		s.toast(present.SeverityError, "Could not mark series as read: "+err.Error())
		return nil
	}

	if series := s.itemLocked(id); series != nil {
		for _, b := range series.Books {
			if b != nil {
				b.SetRead(true)
			}
		}
	}
	s.patchDetailLocked(func(d *Detail) bool {
		switch {
		case d.Kind == KindSeries && d.Item.ID == id:
			for _, b := range d.Item.Books {
				if b != nil {
					b.SetRead(true)
				}
			}
			return true
		case d.Kind == KindBook:
			if series := s.itemLocked(id); series != nil && series.FindBook(d.Item.ID) != nil {
				d.Item.SetRead(true)
				return true
			}
		}
		return false
	})
	s.applyFilterLocked()
	s.renderListLocked()
	s.updateCountLocked()
	s.toast(present.SeveritySuccess, "Series marked as read")
	return nil
}

// ToggleBookReadStatus flips the read flag of one book of a series.
func (s *SeriesManager) ToggleBookReadStatus(ctx context.Context, bookID int64) error {
	if _, ok := s.bookExists(bookID); !ok {
		return errors.Validationf("no book with id %d", bookID)
	}
	return s.toggleRead(ctx, bookID, EndpointToggleRead, s.findBookLocked)
}

func (s *SeriesManager) DownloadSeries(_ context.Context, id int64) error {
	series := s.Item(id)
	if series == nil {
		return errors.Validationf("no series with id %d", id)
	}
	return s.download(EndpointDownload, id, utils.DownloadName(series.DisplayTitle(), "zip"))
}

func (s *SeriesManager) DownloadBook(_ context.Context, bookID int64) error {
	book, ok := s.bookExists(bookID)
	if !ok {
		return errors.Validationf("no book with id %d", bookID)
	}
	return s.download(EndpointBookDownload, bookID, downloadName(book))
}

// SelectBook opens a nested book in the detail pane. The series selection is
// left alone.
func (s *SeriesManager) SelectBook(ctx context.Context, bookID int64) error {
	if _, ok := s.bookExists(bookID); !ok {
		return errors.Validationf("no book with id %d", bookID)
	}
	url, ok := s.cfg.Endpoints.URL(EndpointBookDetail, bookID)
	if !ok {
		return errors.Validation("book details are not available here")
	}
	s.fetchDetail(ctx, url, "selectBook", bookID)
	return nil
}

func (s *SeriesManager) Actions() map[string]Action {
	return mergeActions(s.Manager.Actions(), map[string]Action{
		"markSeriesRead": withItem(s.MarkSeriesRead),
		"toggleBookRead": withItem(s.ToggleBookReadStatus),
		"downloadSeries": withItem(s.DownloadSeries),
		"downloadBook":   withItem(s.DownloadBook),
		"selectBook":     withItem(s.SelectBook),
	})
}
