package section

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelfront/internal/dom"
	"github.com/mrlokans/shelfront/internal/errors"
	"github.com/mrlokans/shelfront/internal/present"
)

func TestToggleRead_HappyPath(t *testing.T) {
	m, fb, doc := loadedEbooks(t, s1List)
	fb.on("/ebooks/ajax/toggle_read/1/", `{"success": true, "is_read": true}`)

	require.NoError(t, m.ToggleRead(context.Background(), 1))

	assert.True(t, m.Item(1).IsRead)
	row := parse(t, doc.HTML("#items-list")).Find(`tr[data-item-id="1"]`)
	assert.Equal(t, 1, row.Find(".badge-read").Length())

	toasts := doc.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, present.SeveritySuccess, toasts[0].Severity)
	assert.Equal(t, "Marked as read", toasts[0].Message)

	calls := fb.callsTo("/ebooks/ajax/toggle_read/1/")
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, map[string]bool{"is_read": true}, calls[0].Body)
}

func TestToggleRead_Failure(t *testing.T) {
	m, fb, doc := loadedEbooks(t, s1List)
	fb.fail("/ebooks/ajax/toggle_read/1/", errors.HTTPStatus(http.StatusInternalServerError, "boom"))
	doc.Flush()

	require.NoError(t, m.ToggleRead(context.Background(), 1))

	assert.False(t, m.Item(1).IsRead)
	row := parse(t, doc.HTML("#items-list")).Find(`tr[data-item-id="1"]`)
	assert.Equal(t, 0, row.Find(".badge-read").Length())

	toasts := doc.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, present.SeverityError, toasts[0].Severity)

	p := doc.Flush()
	_, listTouched := p.Fragment("items-list")
	assert.False(t, listTouched, "a failed mutation leaves the pane intact")
}

func TestToggleRead_ServerValueWins(t *testing.T) {
	m, fb, _ := loadedEbooks(t, s1List)
	// The service reports the item was already read; the client asked for
	// unread.
	fb.on("/ebooks/ajax/toggle_read/2/", `{"success": true, "is_read": true}`)

	require.NoError(t, m.ToggleRead(context.Background(), 2))
	assert.True(t, m.Item(2).IsRead)

	fb.on("/ebooks/ajax/toggle_read/1/", `{"success": true}`)
	require.NoError(t, m.ToggleRead(context.Background(), 1))
	assert.True(t, m.Item(1).IsRead, "without is_read in the reply the flag flips")
}

func TestToggleRead_ApplicationErrorKeepsCache(t *testing.T) {
	m, fb, doc := loadedEbooks(t, s1List)
	fb.fail("/ebooks/ajax/toggle_read/2/", errors.Application("Book is locked"))

	require.NoError(t, m.ToggleRead(context.Background(), 2))

	assert.True(t, m.Item(2).IsRead)
	require.Len(t, doc.Toasts(), 1)
	assert.Contains(t, doc.Toasts()[0].Message, "Book is locked")
}

func TestToggleRead_PatchesDetailAndRefilters(t *testing.T) {
	m, fb, doc := loadedEbooks(t, s1List)
	fb.on("/ebooks/ajax/detail/1/", `{"success": true, "ebook": {"id": 1, "title": "Foundation", "is_read": false}}`)
	fb.on("/ebooks/ajax/toggle_read/1/", `{"success": true, "is_read": true}`)
	ctx := context.Background()

	m.Filter(present.Criteria{Status: present.StatusUnread})
	require.NoError(t, m.Select(ctx, 1))
	assert.Contains(t, doc.HTML("#detail-pane"), "Mark read")

	require.NoError(t, m.ToggleRead(ctx, 1))

	assert.Contains(t, doc.HTML("#detail-pane"), "Mark unread")
	assert.Empty(t, m.Filtered(), "the item no longer matches the unread filter")
	assert.Equal(t, "0", doc.HTML("#item-count"))
}

func TestToggleRead_UnknownItem(t *testing.T) {
	m, fb, _ := loadedEbooks(t, s1List)

	err := m.ToggleRead(context.Background(), 9)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Empty(t, fb.callsTo("/ebooks/ajax/toggle_read/9/"))
}

func TestDownload_TriggersBrowserDownload(t *testing.T) {
	m, _, doc := loadedEbooks(t, s1List)
	doc.Flush()

	require.NoError(t, m.Download(context.Background(), 1))

	payload, ok := trigger(doc.Flush(), "download")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"url": "/ebooks/ajax/download/1/", "filename": "Foundation.epub"}, payload)
}

func TestDownload_UsesPublicURL(t *testing.T) {
	fb := newFakeBackend().on("/ebooks/ajax/list/", s1List)
	doc := dom.New()
	env := testEnv(fb, doc)
	env.PublicURL = func(p string) string { return "https://library.example.com" + p }
	m, err := NewEbooksManager(DefaultConfig(Ebooks), env)
	require.NoError(t, err)
	m.Load(context.Background())

	require.NoError(t, m.Download(context.Background(), 2))

	payload, _ := trigger(doc.Flush(), "download")
	assert.Equal(t, "https://library.example.com/ebooks/ajax/download/2/", payload.(map[string]string)["url"])
}

func TestDownload_Unavailable(t *testing.T) {
	fb := newFakeBackend().on("/ebooks/ajax/list/", s1List)
	doc := dom.New()
	cfg := DefaultConfig(Ebooks)
	cfg.Endpoints.Download = ""
	m, err := NewEbooksManager(cfg, testEnv(fb, doc))
	require.NoError(t, err)
	m.Load(context.Background())

	err = m.Download(context.Background(), 1)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestLoadCompanionFiles_FailureRendersRetry(t *testing.T) {
	m, fb, doc := loadedEbooks(t, s1List)
	fb.fail("/ebooks/ajax/companion_files/1/", errors.HTTPStatus(http.StatusBadGateway, ""))
	ctx := context.Background()

	require.NoError(t, m.ToggleExpand(ctx, 1))

	expansion := parse(t, doc.HTML("#items-list")).Find(`tr.expansion-row[data-expansion-for="1"]`)
	retry := expansion.Find(`.state-error button[data-action="loadCompanionFiles"]`)
	require.Equal(t, 1, retry.Length())
	assert.Equal(t, "1", retry.AttrOr("data-item-id", ""))
}

func TestEbooksActions(t *testing.T) {
	m, _, _ := loadedEbooks(t, s1List)
	actions := m.Actions()

	for _, name := range []string{"load", "select", "expand", "toggleRead", "download", "loadCompanionFiles"} {
		assert.Contains(t, actions, name)
	}
}

func TestComicsManager(t *testing.T) {
	fb := newFakeBackend().
		on("/comics/ajax/list/", `{"success": true, "comics": [
			{"id": 5, "title": "Saga", "series": "Saga", "issue_number": "12", "page_count": 32, "file_format": "cbz"},
			{"id": 6, "title": "Maus", "issue_number": "1", "file_format": "cbr", "is_read": true}
		]}`).
		on("/comics/ajax/detail/5/", `{"success": true, "comic": {"id": 5, "title": "Saga", "issue_number": "12", "page_count": 32}}`).
		on("/comics/ajax/toggle_read/5/", `{"success": true, "is_read": true}`)
	doc := dom.New()
	m, err := NewComicsManager(DefaultConfig(Comics), testEnv(fb, doc))
	require.NoError(t, err)
	ctx := context.Background()

	m.Load(ctx)
	require.Equal(t, StateReady, m.State())

	list := parse(t, doc.HTML("#items-list"))
	assert.Contains(t, list.Find("thead").Text(), "Issue")
	assert.Equal(t, []string{"6", "5"}, rowIDs(t, doc))

	m.Filter(present.Criteria{Format: "cbz"})
	assert.Equal(t, []string{"5"}, rowIDs(t, doc))

	require.NoError(t, m.Select(ctx, 5))
	detail := parse(t, doc.HTML("#detail-pane"))
	assert.Equal(t, "comic", detail.Find(".item-detail").AttrOr("data-detail-kind", ""))
	assert.Contains(t, detail.Text(), "32")
	assert.Equal(t, 0, detail.Find(`[data-tab="files"]`).Length(), "comics have no companion files")

	require.NoError(t, m.ToggleRead(ctx, 5))
	assert.True(t, m.Item(5).IsRead)
	assert.NotContains(t, m.Actions(), "loadCompanionFiles")
}

func TestLoadCompanionFiles_RerendersFilesTab(t *testing.T) {
	m, fb, doc := loadedEbooks(t, s1List)
	fb.on("/ebooks/ajax/detail/1/", `{"success": true, "ebook": {"id": 1, "title": "Foundation"}}`).
		on("/ebooks/ajax/companion_files/1/", `{"success": true, "companion_files": [{"name": "cover.jpg", "file_type": "image"}]}`).
		on("/ebooks/ajax/companion_files/1/", `{"success": true, "companion_files": [{"name": "cover.jpg"}, {"name": "extras.zip"}]}`)
	ctx := context.Background()

	require.NoError(t, m.Select(ctx, 1))
	require.NoError(t, m.ShowTab(ctx, TabFiles))

	files := parse(t, doc.HTML("#detail-pane")).Find(".companion-file .companion-name")
	require.Equal(t, 1, files.Length())
	assert.Equal(t, "cover.jpg", files.Text())

	require.NoError(t, m.LoadCompanionFiles(ctx, 1))

	files = parse(t, doc.HTML("#detail-pane")).Find(".companion-file .companion-name")
	assert.Equal(t, 2, files.Length())
	assert.Equal(t, "extras.zip", files.Last().Text())
}

func TestCompanionFiles_WithoutEndpoint(t *testing.T) {
	fb := newFakeBackend().
		on("/ebooks/ajax/list/", s1List).
		on("/ebooks/ajax/detail/1/", `{"success": true, "ebook": {"id": 1, "title": "Foundation"}}`)
	doc := dom.New()
	cfg := DefaultConfig(Ebooks)
	cfg.Endpoints.CompanionFiles = ""
	m, err := NewEbooksManager(cfg, testEnv(fb, doc))
	require.NoError(t, err)
	ctx := context.Background()
	m.Load(ctx)

	require.NoError(t, m.ToggleExpand(ctx, 1))

	expansion := parse(t, doc.HTML("#items-list")).Find(`tr.expansion-row[data-expansion-for="1"]`)
	require.Equal(t, 1, expansion.Length())
	assert.Equal(t, 0, expansion.Find(".state-loading").Length())
	assert.NotContains(t, expansion.Text(), "Companion files")

	require.NoError(t, m.Select(ctx, 1))
	tabs := parse(t, doc.HTML("#detail-pane")).Find(".detail-tabs button")
	assert.Equal(t, 2, tabs.Length())
	assert.Empty(t, fb.callsTo("/ebooks/ajax/companion_files/1/"))
}

func TestCompanionFiles_RefetchedAfterReload(t *testing.T) {
	m, fb, doc := loadedEbooks(t, s1List)
	fb.on("/ebooks/ajax/companion_files/1/", `{"success": true, "companion_files": [{"name": "old.jpg"}]}`).
		on("/ebooks/ajax/companion_files/1/", `{"success": true, "companion_files": [{"name": "new.jpg"}]}`)
	ctx := context.Background()
	expansion := func() string {
		return parse(t, doc.HTML("#items-list")).Find(`tr.expansion-row[data-expansion-for="1"] .companion-name`).Text()
	}

	require.NoError(t, m.ToggleExpand(ctx, 1))
	assert.Equal(t, "old.jpg", expansion())
	require.NoError(t, m.ToggleExpand(ctx, 1))

	m.Load(ctx)
	require.NoError(t, m.ToggleExpand(ctx, 1))

	assert.Equal(t, "new.jpg", expansion())
	assert.Len(t, fb.callsTo("/ebooks/ajax/companion_files/1/"), 2)
}

func TestCompanionFiles_ExpandedRowRefreshesOnReload(t *testing.T) {
	m, fb, doc := loadedEbooks(t, s1List)
	fb.on("/ebooks/ajax/companion_files/1/", `{"success": true, "companion_files": [{"name": "old.jpg"}]}`).
		on("/ebooks/ajax/companion_files/1/", `{"success": true, "companion_files": [{"name": "new.jpg"}]}`)
	ctx := context.Background()

	require.NoError(t, m.ToggleExpand(ctx, 1))
	m.Load(ctx)

	assert.Equal(t, []int64{1}, m.ExpandedIDs())
	names := parse(t, doc.HTML("#items-list")).Find(`tr.expansion-row[data-expansion-for="1"] .companion-name`)
	require.Equal(t, 1, names.Length())
	assert.Equal(t, "new.jpg", names.Text())
}
