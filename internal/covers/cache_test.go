package covers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelfront/internal/errors"
)

func imageServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("fake image data"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewCache(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "covers")

	cache, err := NewCache(cacheDir)
	require.NoError(t, err)
	assert.Equal(t, cacheDir, cache.CacheDir())

	_, err = os.Stat(cacheDir)
	assert.NoError(t, err, "cache directory should be created")
}

func TestGet_EmptyURL(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	path, err := cache.Get(context.Background(), nil, "ebooks", 1, "")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.False(t, cache.Has("ebooks", 1, ""))
}

func TestGet_FetchesOnce(t *testing.T) {
	var hits atomic.Int32
	server := imageServer(t, &hits)
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path1, err := cache.Get(ctx, server.Client(), "ebooks", 1, server.URL+"/cover.jpg")
	require.NoError(t, err)
	require.NotEmpty(t, path1)

	data, err := os.ReadFile(path1)
	require.NoError(t, err)
	assert.Equal(t, "fake image data", string(data))
	assert.True(t, cache.Has("ebooks", 1, server.URL+"/cover.jpg"))

	path2, err := cache.Get(ctx, server.Client(), "ebooks", 1, server.URL+"/cover.jpg")
	require.NoError(t, err)
	assert.Equal(t, path1, path2)
	assert.Equal(t, int32(1), hits.Load(), "second call is served from disk")
}

func TestGet_ForwardsClientCookies(t *testing.T) {
	var cookie string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sessionid"); err == nil {
			cookie = c.Value
		}
		_, _ = w.Write([]byte("img"))
	}))
	defer server.Close()

	client := server.Client()
	client.Transport = cookieTransport{next: client.Transport, value: "abc"}

	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), client, "comics", 7, server.URL+"/c.jpg")
	require.NoError(t, err)
	assert.Equal(t, "abc", cookie)
}

type cookieTransport struct {
	next  http.RoundTripper
	value string
}

func (c cookieTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.AddCookie(&http.Cookie{Name: "sessionid", Value: c.value})
	return c.next.RoundTrip(r)
}

func TestGet_FetchError(t *testing.T) {
	var hits atomic.Int32
	server := imageServer(t, &hits)
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), server.Client(), "ebooks", 1, server.URL+"/missing.jpg")
	require.Error(t, err)
	assert.Equal(t, errors.CodeHTTPStatus, errors.CodeOf(err))
	assert.False(t, cache.Has("ebooks", 1, server.URL+"/missing.jpg"))
}

func TestInvalidate(t *testing.T) {
	var hits atomic.Int32
	server := imageServer(t, &hits)
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	path, err := cache.Get(ctx, server.Client(), "ebooks", 1, server.URL+"/cover.jpg")
	require.NoError(t, err)
	other, err := cache.Get(ctx, server.Client(), "comics", 1, server.URL+"/cover.jpg")
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate("ebooks", 1))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "cached file should be deleted after invalidation")
	_, err = os.Stat(other)
	assert.NoError(t, err, "other sections keep their covers")
}

func TestCoverFilename(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	name := cache.coverFilename("ebooks", 1, "https://example.com/cover.jpg")
	assert.Equal(t, name, cache.coverFilename("ebooks", 1, "https://example.com/cover.jpg"))
	assert.NotEqual(t, name, cache.coverFilename("ebooks", 1, "https://example.com/other.jpg"))
	assert.NotEqual(t, name, cache.coverFilename("ebooks", 2, "https://example.com/cover.jpg"))
	assert.NotEqual(t, name, cache.coverFilename("comics", 1, "https://example.com/cover.jpg"))
}
