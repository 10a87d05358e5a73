package section

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelfront/internal/backend"
	"github.com/mrlokans/shelfront/internal/dom"
	"github.com/mrlokans/shelfront/internal/errors"
)

type call struct {
	URL    string
	Method string
	Body   any
}

type reply struct {
	body string
	err  error
}

// fakeBackend answers requests from canned replies per URL. The last reply
// queued for a URL repeats.
type fakeBackend struct {
	mu      sync.Mutex
	replies map[string][]reply
	calls   []call

	// wait runs before the n-th request (0-based) is answered.
	wait func(n int)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{replies: map[string][]reply{}}
}

func (f *fakeBackend) on(url, body string) *fakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[url] = append(f.replies[url], reply{body: body})
	return f
}

func (f *fakeBackend) fail(url string, err error) *fakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[url] = append(f.replies[url], reply{err: err})
	return f
}

func (f *fakeBackend) Request(_ context.Context, url string, opts *backend.Options) (backend.Payload, error) {
	f.mu.Lock()
	n := len(f.calls)
	c := call{URL: url, Method: http.MethodGet}
	if opts != nil {
		if opts.Method != "" {
			c.Method = opts.Method
		}
		c.Body = opts.Body
	}
	f.calls = append(f.calls, c)

	queue := f.replies[url]
	var r reply
	found := len(queue) > 0
	if found {
		r = queue[0]
		if len(queue) > 1 {
			f.replies[url] = queue[1:]
		}
	}
	wait := f.wait
	f.mu.Unlock()

	if wait != nil {
		wait(n)
	}
	if !found {
		return nil, errors.HTTPStatus(http.StatusNotFound, "no route for "+url)
	}
	if r.err != nil {
		return nil, r.err
	}
	var p backend.Payload
	if err := json.Unmarshal([]byte(r.body), &p); err != nil {
		return nil, errors.Parse(err)
	}
	return p, nil
}

func (f *fakeBackend) callsTo(url string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.URL == url {
			out = append(out, c)
		}
	}
	return out
}

func testEnv(client backend.Requester, doc *dom.Document) Env {
	return Env{
		Client:   client,
		Surface:  doc,
		LoginURL: "/accounts/login/",
		CoverURL: func(id int64) string { return "/covers/" + itoa(int(id)) },
	}
}

func parse(t *testing.T, fragment string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	require.NoError(t, err)
	return doc
}

func rowIDs(t *testing.T, doc *dom.Document) []string {
	t.Helper()
	var ids []string
	parse(t, doc.HTML("#items-list")).Find("tr.item-row").Each(func(_ int, s *goquery.Selection) {
		ids = append(ids, s.AttrOr("data-item-id", ""))
	})
	return ids
}

func trigger(p dom.Patch, name string) (any, bool) {
	for _, t := range p.Triggers {
		if t.Name == name {
			return t.Payload, true
		}
	}
	return nil, false
}

const s1List = `{"success": true, "ebooks": [
	{"id": 1, "title": "Foundation", "author": "Asimov", "file_format": "epub", "file_size": 1024, "is_read": false},
	{"id": 2, "title": "Dune", "author": "Herbert", "file_format": "pdf", "file_size": 2048, "is_read": true}
]}`

const threeEbooks = `{"success": true, "ebooks": [
	{"id": 1, "title": "Alpha", "author": "A", "file_format": "epub", "is_read": false},
	{"id": 2, "title": "Beta", "author": "B", "file_format": "epub", "is_read": false},
	{"id": 3, "title": "Gamma", "author": "C", "file_format": "pdf", "is_read": true}
]}`

func loadedEbooks(t *testing.T, list string) (*EbooksManager, *fakeBackend, *dom.Document) {
	t.Helper()
	fb := newFakeBackend().on("/ebooks/ajax/list/", list)
	doc := dom.New()
	m, err := NewEbooksManager(DefaultConfig(Ebooks), testEnv(fb, doc))
	require.NoError(t, err)
	m.Load(context.Background())
	require.Equal(t, StateReady, m.State())
	return m, fb, doc
}
