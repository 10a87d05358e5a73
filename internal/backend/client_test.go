package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelfront/internal/errors"
)

type recorded struct {
	Method      string
	Path        string
	CSRF        string
	ContentType string
	Body        string
	Cookies     []*http.Cookie
}

type fakeService struct {
	mu       sync.Mutex
	requests []recorded
	mux      *http.ServeMux
}

func newFakeService(t *testing.T) (*fakeService, *httptest.Server) {
	t.Helper()
	f := &fakeService{mux: http.NewServeMux()}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recorded{
			Method:      r.Method,
			Path:        r.URL.Path,
			CSRF:        r.Header.Get(CSRFHeader),
			ContentType: r.Header.Get("Content-Type"),
			Body:        string(body),
			Cookies:     r.Cookies(),
		})
		f.mu.Unlock()
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeService) last(path string) recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Path == path {
			return f.requests[i]
		}
	}
	return recorded{}
}

func (f *fakeService) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func bootstrapForm(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><body><form><input type="hidden" name="csrfmiddlewaretoken" value="`+token+`"></form></body></html>`)
	}
}

func TestClient_Request_SendsCSRFOnPost(t *testing.T) {
	svc, srv := newFakeService(t)
	svc.mux.HandleFunc("/library/", bootstrapForm("form-token"))
	svc.mux.HandleFunc("/ebooks/1/toggle_read/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "is_read": true})
	})

	client, err := NewClient(Config{BaseURL: srv.URL, BootstrapPath: "/library/"})
	require.NoError(t, err)

	payload, err := client.Request(context.Background(), "/ebooks/1/toggle_read/", &Options{Method: http.MethodPost, Body: map[string]bool{"is_read": true}})
	require.NoError(t, err)

	isRead, ok := payload.Bool("is_read")
	require.True(t, ok)
	assert.True(t, isRead)

	req := svc.last("/ebooks/1/toggle_read/")
	assert.Equal(t, "form-token", req.CSRF)
	assert.Equal(t, "application/json", req.ContentType)
	assert.JSONEq(t, `{"is_read":true}`, req.Body)
}

func TestClient_Request_CachesToken(t *testing.T) {
	svc, srv := newFakeService(t)
	svc.mux.HandleFunc("/library/", bootstrapForm("tok"))
	svc.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	client, err := NewClient(Config{BaseURL: srv.URL, BootstrapPath: "/library/"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := client.Request(context.Background(), "/api/", &Options{Method: http.MethodPost})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, svc.count("/library/"))
}

func TestClient_Request_FallsBackToCookieThenMeta(t *testing.T) {
	t.Run("cookie", func(t *testing.T) {
		svc, srv := newFakeService(t)
		svc.mux.HandleFunc("/library/", func(w http.ResponseWriter, r *http.Request) {
			http.SetCookie(w, &http.Cookie{Name: CSRFCookie, Value: "cookie-token", Path: "/"})
			_, _ = io.WriteString(w, `<html><head><meta name="csrf-token" content="meta-token"></head></html>`)
		})
		svc.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		})

		client, err := NewClient(Config{BaseURL: srv.URL, BootstrapPath: "/library/"})
		require.NoError(t, err)
		_, err = client.Request(context.Background(), "/api/", &Options{Method: http.MethodPost})
		require.NoError(t, err)

		assert.Equal(t, "cookie-token", svc.last("/api/").CSRF)
	})

	t.Run("meta", func(t *testing.T) {
		svc, srv := newFakeService(t)
		svc.mux.HandleFunc("/library/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<html><head><meta name="csrf-token" content="meta-token"></head></html>`)
		})
		svc.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		})

		client, err := NewClient(Config{BaseURL: srv.URL, BootstrapPath: "/library/"})
		require.NoError(t, err)
		_, err = client.Request(context.Background(), "/api/", &Options{Method: http.MethodPost})
		require.NoError(t, err)

		assert.Equal(t, "meta-token", svc.last("/api/").CSRF)
	})
}

func TestClient_Request_NonGetWithoutTokenFails(t *testing.T) {
	svc, srv := newFakeService(t)
	svc.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Request(context.Background(), "/api/", &Options{Method: http.MethodPost})
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, 0, svc.count("/api/"))

	_, err = client.Request(context.Background(), "/api/", nil)
	assert.NoError(t, err)
	assert.Empty(t, svc.last("/api/").CSRF)
}

func TestClient_Request_EveryNonGetCarriesToken(t *testing.T) {
	svc, srv := newFakeService(t)
	svc.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	client, err := NewClient(Config{BaseURL: srv.URL, Tokens: StaticSource("static")})
	require.NoError(t, err)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		_, err := client.Request(context.Background(), "/api/", &Options{Method: method})
		require.NoError(t, err)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	require.Len(t, svc.requests, 4)
	for _, r := range svc.requests {
		assert.NotEmpty(t, r.CSRF, r.Method)
	}
}

func TestClient_Request_ErrorKinds(t *testing.T) {
	svc, srv := newFakeService(t)
	svc.mux.HandleFunc("/status/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	svc.mux.HandleFunc("/garbage/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>not json</html>")
	})
	svc.mux.HandleFunc("/array/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "null")
	})
	svc.mux.HandleFunc("/app/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "Authentication required"})
	})

	client, err := NewClient(Config{BaseURL: srv.URL, Tokens: StaticSource("t")})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Request(ctx, "/status/", nil)
	assert.Equal(t, errors.CodeHTTPStatus, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "500")

	_, err = client.Request(ctx, "/garbage/", nil)
	assert.Equal(t, errors.CodeParse, errors.CodeOf(err))

	_, err = client.Request(ctx, "/array/", nil)
	assert.Equal(t, errors.CodeParse, errors.CodeOf(err))

	_, err = client.Request(ctx, "/app/", nil)
	assert.Equal(t, errors.CodeApplication, errors.CodeOf(err))
	assert.True(t, errors.IsAuthentication(err))

	srv.Close()
	_, err = client.Request(ctx, "/status/", nil)
	assert.Equal(t, errors.CodeNetwork, errors.CodeOf(err))
}

func TestClient_Request_ForbiddenInvalidatesToken(t *testing.T) {
	svc, srv := newFakeService(t)
	svc.mux.HandleFunc("/library/", bootstrapForm("tok"))
	svc.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "CSRF verification failed", http.StatusForbidden)
	})

	client, err := NewClient(Config{BaseURL: srv.URL, BootstrapPath: "/library/"})
	require.NoError(t, err)

	_, err = client.Request(context.Background(), "/api/", &Options{Method: http.MethodPost})
	require.Error(t, err)
	_, err = client.Request(context.Background(), "/api/", &Options{Method: http.MethodPost})
	require.Error(t, err)

	assert.Equal(t, 2, svc.count("/library/"))
	assert.Equal(t, 2, svc.count("/api/"))
}

func TestClient_Request_Multipart(t *testing.T) {
	svc, srv := newFakeService(t)
	svc.mux.HandleFunc("/upload/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	client, err := NewClient(Config{BaseURL: srv.URL, Tokens: StaticSource("t")})
	require.NoError(t, err)

	_, err = client.Request(context.Background(), "/upload/", &Options{
		Method:    http.MethodPost,
		Multipart: &Multipart{Fields: map[string]string{"title": "Dune"}},
	})
	require.NoError(t, err)

	req := svc.last("/upload/")
	assert.True(t, strings.HasPrefix(req.ContentType, "multipart/form-data"))
	assert.Contains(t, req.Body, "Dune")
}

func TestClient_ForwardsCookies(t *testing.T) {
	svc, srv := newFakeService(t)
	svc.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	client, err := NewClient(Config{
		BaseURL: srv.URL,
		Tokens:  StaticSource("t"),
		Cookies: []*http.Cookie{{Name: "sessionid", Value: "abc"}},
	})
	require.NoError(t, err)

	_, err = client.Request(context.Background(), "/api/", nil)
	require.NoError(t, err)

	var names []string
	for _, c := range svc.last("/api/").Cookies {
		names = append(names, c.Name+"="+c.Value)
	}
	assert.Contains(t, names, "sessionid=abc")
}

func TestPayload(t *testing.T) {
	var p Payload
	require.NoError(t, json.Unmarshal([]byte(`{"success":true,"ebooks":[{"id":1}],"message":"ok","book":null}`), &p))

	assert.True(t, p.Success())
	assert.True(t, p.Has("ebooks"))
	assert.False(t, p.Has("book"))
	assert.Equal(t, "ok", p.Message())

	var items []map[string]any
	require.NoError(t, p.Decode("ebooks", &items))
	assert.Len(t, items, 1)

	err := p.Decode("comics", &items)
	assert.Equal(t, errors.CodeParse, errors.CodeOf(err))
}
