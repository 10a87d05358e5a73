package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/mrlokans/shelfront/internal/errors"
)

const (
	CSRFHeader    = "X-CSRFToken"
	CSRFCookie    = "csrftoken"
	CSRFFormField = "csrfmiddlewaretoken"
	CSRFMetaName  = "csrf-token"
)

// ErrNoToken is returned when no source yields a CSRF token.
var ErrNoToken = errors.Validation("no CSRF token available")

// TokenSource yields the same-origin CSRF token of the library service.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticSource always returns the same token.
type StaticSource string

func (s StaticSource) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// BootstrapPage is an HTML page of the library service that carries the
// token in a form field or meta tag. It is fetched once until Reset.
type BootstrapPage struct {
	Client *http.Client
	URL    string

	mu  sync.Mutex
	doc *goquery.Document
}

func (b *BootstrapPage) Document(ctx context.Context) (*goquery.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.doc != nil {
		return b.doc, nil
	}
	if b.URL == "" {
		return nil, ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.HTTPStatus(resp.StatusCode, "")
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errors.Parse(err)
	}
	b.doc = doc
	return doc, nil
}

func (b *BootstrapPage) Reset() {
	b.mu.Lock()
	b.doc = nil
	b.mu.Unlock()
}

// FormFieldSource reads the hidden csrfmiddlewaretoken input.
type FormFieldSource struct {
	Page *BootstrapPage
}

func (s FormFieldSource) Token(ctx context.Context) (string, error) {
	doc, err := s.Page.Document(ctx)
	if err != nil {
		return "", err
	}
	v, _ := doc.Find(`input[name="` + CSRFFormField + `"]`).First().Attr("value")
	if v = strings.TrimSpace(v); v == "" {
		return "", ErrNoToken
	}
	return v, nil
}

// MetaSource reads <meta name="csrf-token" content="...">.
type MetaSource struct {
	Page *BootstrapPage
}

func (s MetaSource) Token(ctx context.Context) (string, error) {
	doc, err := s.Page.Document(ctx)
	if err != nil {
		return "", err
	}
	v, _ := doc.Find(`meta[name="` + CSRFMetaName + `"]`).First().Attr("content")
	if v = strings.TrimSpace(v); v == "" {
		return "", ErrNoToken
	}
	return v, nil
}

// CookieSource reads the csrftoken cookie the service set for URL.
type CookieSource struct {
	Jar http.CookieJar
	URL *url.URL
}

func (s CookieSource) Token(context.Context) (string, error) {
	if s.Jar == nil || s.URL == nil {
		return "", ErrNoToken
	}
	for _, c := range s.Jar.Cookies(s.URL) {
		if c.Name == CSRFCookie && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", ErrNoToken
}

// ChainSource tries each source in order and returns the first token.
type ChainSource []TokenSource

func (c ChainSource) Token(ctx context.Context) (string, error) {
	var errs []error
	for _, src := range c {
		token, err := src.Token(ctx)
		if err == nil && token != "" {
			return token, nil
		}
		if err != nil && !errors.Is(err, ErrNoToken) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return "", errors.Join(append([]error{ErrNoToken}, errs...)...)
	}
	return "", ErrNoToken
}

// CachedSource remembers the token until Invalidate.
type CachedSource struct {
	Source TokenSource
	// OnInvalidate runs after the cached token is dropped.
	OnInvalidate func()

	mu    sync.Mutex
	token string
}

func (c *CachedSource) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}
	token, err := c.Source.Token(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

// Cached returns the token without fetching.
func (c *CachedSource) Cached() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	if c.OnInvalidate != nil {
		c.OnInvalidate()
	}
}
