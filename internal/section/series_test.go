package section

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelfront/internal/dom"
	"github.com/mrlokans/shelfront/internal/entities"
	"github.com/mrlokans/shelfront/internal/errors"
	"github.com/mrlokans/shelfront/internal/present"
)

const seriesList = `{"success": true, "series": [
	{"id": 10, "name": "Dune Saga", "authors": ["Frank Herbert"], "total_size": 3000, "books": [
		{"id": 101, "title": "Dune", "file_format": "epub", "file_size": 1000, "is_read": true, "series_position": 1, "last_scanned": "2024-01-05T10:00:00Z"},
		{"id": 102, "title": "Dune Messiah", "file_format": "epub", "file_size": 2000, "is_read": true, "series_position": 2, "last_scanned": "2024-03-01T10:00:00Z"}
	]},
	{"id": 20, "name": "Foundation", "authors": ["Isaac Asimov"], "books": [
		{"id": 201, "title": "Foundation", "file_format": "pdf", "file_size": 500, "is_read": false, "reading_progress": 40, "last_scanned": "2023-06-01T10:00:00Z"},
		{"id": 202, "title": "Foundation and Empire", "file_format": "pdf", "file_size": 700, "is_read": false, "last_scanned": "2024-06-01T10:00:00Z"}
	]},
	{"id": 30, "name": "Empty", "books": []}
]}`

func loadedSeries(t *testing.T) (*SeriesManager, *fakeBackend, *dom.Document) {
	t.Helper()
	fb := newFakeBackend().on("/series/ajax/list/", seriesList)
	doc := dom.New()
	m, err := NewSeriesManager(DefaultConfig(Series), testEnv(fb, doc))
	require.NoError(t, err)
	m.Load(context.Background())
	require.Equal(t, StateReady, m.State())
	return m, fb, doc
}

func TestSeries_StatusFilterFollowsBooks(t *testing.T) {
	m, _, doc := loadedSeries(t)
	read := present.Criteria{Status: present.StatusRead}

	m.Filter(read)
	assert.Equal(t, []string{"10"}, rowIDs(t, doc))

	m.Item(10).Books[1].SetRead(false)
	m.Filter(read)
	assert.Empty(t, rowIDs(t, doc))
	assert.Equal(t, "0", doc.HTML("#item-count"))
}

func TestSeriesStatus(t *testing.T) {
	book := func(read bool, progress float64) *entities.Item {
		b := &entities.Item{IsRead: read}
		if progress > 0 {
			b.ReadingProgress = &progress
		}
		return b
	}
	allRead := &entities.Item{Books: []*entities.Item{book(true, 0), book(true, 100)}}
	someRead := &entities.Item{Books: []*entities.Item{book(true, 0), book(false, 0)}}
	noneRead := &entities.Item{Books: []*entities.Item{book(false, 0), book(false, 0)}}
	reading := &entities.Item{Books: []*entities.Item{book(false, 25), book(false, 0)}}
	readWithProgress := &entities.Item{Books: []*entities.Item{book(true, 50)}}
	empty := &entities.Item{}

	tests := []struct {
		name   string
		series *entities.Item
		status string
		want   bool
	}{
		{"all read is read", allRead, present.StatusRead, true},
		{"some read is not read", someRead, present.StatusRead, false},
		{"some read is not unread", someRead, present.StatusUnread, false},
		{"none read is unread", noneRead, present.StatusUnread, true},
		{"all read is not unread", allRead, present.StatusUnread, false},
		{"partial progress is reading", reading, present.StatusReading, true},
		{"no progress is not reading", noneRead, present.StatusReading, false},
		{"read books are not reading", readWithProgress, present.StatusReading, false},
		{"empty series is not read", empty, present.StatusRead, false},
		{"empty series is unread", empty, present.StatusUnread, true},
		{"all matches everything", someRead, present.FilterAll, true},
		{"no status matches everything", empty, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SeriesStatus(tt.series, tt.status))
		})
	}
}

func TestSeries_FilterAndSort(t *testing.T) {
	m, _, doc := loadedSeries(t)

	assert.Equal(t, []string{"10", "30", "20"}, rowIDs(t, doc), "sorted by name")

	tests := []struct {
		name     string
		criteria present.Criteria
		want     []string
	}{
		{"unread", present.Criteria{Status: present.StatusUnread}, []string{"30", "20"}},
		{"reading", present.Criteria{Status: present.StatusReading}, []string{"20"}},
		{"author search", present.Criteria{Search: "asimov"}, []string{"20"}},
		{"name search", present.Criteria{Search: "saga"}, []string{"10"}},
		{"format of any book", present.Criteria{Format: "PDF"}, []string{"20"}},
		{"latest scan descending", present.Criteria{Sort: "-date"}, []string{"20", "10", "30"}},
		{"total size ascending", present.Criteria{Sort: "size"}, []string{"30", "20", "10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.Filter(tt.criteria)
			assert.Equal(t, tt.want, rowIDs(t, doc))
		})
	}
}

func TestSeries_ExpandShowsBooks(t *testing.T) {
	m, _, doc := loadedSeries(t)

	require.NoError(t, m.OnItemActivate(context.Background(), 10))

	books := parse(t, doc.HTML("#items-list")).Find("tr.series-book-row")
	require.Equal(t, 2, books.Length())
	assert.Equal(t, "101", books.First().AttrOr("data-item-id", ""))
	assert.Equal(t, "selectBook", books.First().AttrOr("data-action", ""))
	assert.Equal(t, []int64{10}, m.ExpandedIDs())
}

func TestSeries_DetailPrefersSeries(t *testing.T) {
	m, fb, doc := loadedSeries(t)
	fb.on("/series/ajax/detail/20/", `{"success": true,
		"series": {"id": 20, "name": "Foundation", "books": [{"id": 201, "title": "Foundation"}, {"id": 202, "title": "Foundation and Empire"}]},
		"book": {"id": 201, "title": "Foundation"}}`)

	require.NoError(t, m.Select(context.Background(), 20))

	d := m.Detail()
	require.NotNil(t, d)
	assert.Equal(t, KindSeries, d.Kind)
	detail := parse(t, doc.HTML("#detail-pane"))
	assert.Equal(t, "series", detail.Find(".item-detail").AttrOr("data-detail-kind", ""))
	assert.Equal(t, 2, detail.Find("tr.series-book-row").Length())
}

func TestSeries_SelectBook(t *testing.T) {
	m, fb, doc := loadedSeries(t)
	fb.on("/ebooks/ajax/detail/201/", `{"success": true, "book": {"id": 201, "title": "Foundation", "series": "Foundation", "series_position": 1}}`)

	require.NoError(t, m.SelectBook(context.Background(), 201))

	assert.Equal(t, KindBook, m.Detail().Kind)
	detail := parse(t, doc.HTML("#detail-pane"))
	back := detail.Find(".series-back")
	require.Equal(t, 1, back.Length())
	assert.Equal(t, "loadDetail", back.AttrOr("data-action", ""))
	assert.Equal(t, "20", back.AttrOr("data-item-id", ""))
	assert.Equal(t, 1, detail.Find(`[data-action="toggleBookRead"]`).Length())

	err := m.SelectBook(context.Background(), 999)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestSeries_DetailWithoutKnownKey(t *testing.T) {
	m, fb, doc := loadedSeries(t)
	fb.on("/series/ajax/detail/30/", `{"success": true, "ebook": {"id": 30}}`)

	require.NoError(t, m.Select(context.Background(), 30))

	assert.Equal(t, 1, parse(t, doc.HTML("#detail-pane")).Find(".state-error").Length())
}

func TestSeries_ToggleBookReadPatchesSeriesDetail(t *testing.T) {
	m, fb, doc := loadedSeries(t)
	fb.on("/series/ajax/detail/20/", `{"success": true, "series": {"id": 20, "name": "Foundation", "books": [{"id": 201, "title": "Foundation", "is_read": false}]}}`)
	fb.on("/ebooks/ajax/toggle_read/201/", `{"success": true, "is_read": true}`)
	ctx := context.Background()

	require.NoError(t, m.Select(ctx, 20))
	require.NoError(t, m.ToggleBookReadStatus(ctx, 201))

	assert.True(t, m.Item(20).FindBook(201).IsRead)
	assert.True(t, m.Detail().Item.FindBook(201).IsRead)
	assert.Equal(t, 20, int(m.Detail().Item.ID), "the series itself is untouched")
	assert.Contains(t, doc.HTML("#detail-pane"), "Mark unread")

	err := m.ToggleBookReadStatus(ctx, 999)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestSeries_MarkSeriesRead(t *testing.T) {
	m, fb, doc := loadedSeries(t)
	fb.on("/series/ajax/mark_read/20/", `{"success": true, "updated": 2}`)

	require.NoError(t, m.MarkSeriesRead(context.Background(), 20))

	for _, b := range m.Item(20).Books {
		assert.True(t, b.IsRead)
	}
	m.Filter(present.Criteria{Status: present.StatusRead})
	assert.Equal(t, []string{"10", "20"}, rowIDs(t, doc))
	require.Len(t, doc.Toasts(), 1)
	assert.Equal(t, present.SeveritySuccess, doc.Toasts()[0].Severity)
}

func TestSeries_MarkSeriesReadFailure(t *testing.T) {
	m, fb, doc := loadedSeries(t)
	fb.fail("/series/ajax/mark_read/20/", errors.HTTPStatus(500, ""))

	require.NoError(t, m.MarkSeriesRead(context.Background(), 20))

	for _, b := range m.Item(20).Books {
		assert.False(t, b.IsRead)
	}
	require.Len(t, doc.Toasts(), 1)
	assert.Equal(t, present.SeverityError, doc.Toasts()[0].Severity)
}

func TestSeries_Downloads(t *testing.T) {
	m, _, doc := loadedSeries(t)
	ctx := context.Background()
	doc.Flush()

	require.NoError(t, m.DownloadSeries(ctx, 10))
	payload, ok := trigger(doc.Flush(), "download")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"url": "/series/ajax/download/10/", "filename": "Dune Saga.zip"}, payload)

	require.NoError(t, m.DownloadBook(ctx, 102))
	payload, ok = trigger(doc.Flush(), "download")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"url": "/ebooks/ajax/download/102/", "filename": "Dune Messiah.epub"}, payload)
}
