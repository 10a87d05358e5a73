// Package backend is the HTTP client for the library service's JSON API.
// Every request carries the visitor's cookies and, when one is known, the
// service's CSRF token. Responses use the {"success": bool, ...} envelope.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/mrlokans/shelfront/internal/errors"
)

const (
	maxResponseBytes = 16 << 20
	// Requests themselves have no deadline.
	tlsHandshakeTimeout = 10 * time.Second
)

// Requester is the part of Client the section managers use.
type Requester interface {
	Request(ctx context.Context, rawURL string, opts *Options) (Payload, error)
}

// Multipart is a form body sent as multipart/form-data.
type Multipart struct {
	Fields map[string]string
	Files  []MultipartFile
}

type MultipartFile struct {
	Field    string
	Filename string
	Content  []byte
}

// Options mirror the subset of fetch options the managers need.
type Options struct {
	Method    string
	Body      any
	Multipart *Multipart
	Header    http.Header
}

type Config struct {
	// BaseURL resolves relative endpoint paths.
	BaseURL string
	// BootstrapPath is an HTML page carrying the CSRF form field or meta tag.
	BootstrapPath string
	// Cookies are the visitor's cookies for the library service.
	Cookies []*http.Cookie
	// RequestsPerSecond limits outbound calls; zero disables the limit.
	RequestsPerSecond float64
	// Tokens overrides the default form field, cookie, meta chain.
	Tokens    TokenSource
	Transport http.RoundTripper
	Logger    *slog.Logger
}

type Client struct {
	httpClient *http.Client
	base       *url.URL
	tokens     *CachedSource
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", cfg.BaseURL, err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if len(cfg.Cookies) > 0 && base.Host != "" {
		jar.SetCookies(base, cfg.Cookies)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSHandshakeTimeout: tlsHandshakeTimeout,
			MaxIdleConnsPerHost: 4,
		}
	}
	httpClient := &http.Client{Jar: jar, Transport: transport}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		httpClient: httpClient,
		base:       base,
		logger:     logger.With("component", "backend"),
	}

	source := cfg.Tokens
	var page *BootstrapPage
	if source == nil {
		page = &BootstrapPage{Client: httpClient, URL: c.Resolve(cfg.BootstrapPath)}
		source = ChainSource{
			FormFieldSource{Page: page},
			CookieSource{Jar: jar, URL: base},
			MetaSource{Page: page},
		}
	}
	c.tokens = &CachedSource{Source: source}
	if page != nil {
		c.tokens.OnInvalidate = page.Reset
	}

	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return c, nil
}

// Resolve turns an endpoint path into an absolute URL on the service.
func (c *Client) Resolve(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.base.ResolveReference(u).String()
}

// Jar exposes the page's cookie jar.
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// HTTPClient exposes the underlying client, for fetching non-JSON resources
// such as covers with the same cookies.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Request issues one JSON request and returns the decoded envelope. Errors are
// kinded: NETWORK, HTTP_STATUS, PARSE, APPLICATION, or VALIDATION when a
// state-changing request cannot obtain a CSRF token.
func (c *Client) Request(ctx context.Context, rawURL string, opts *Options) (Payload, error) {
	if opts == nil {
		opts = &Options{}
	}
	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}

	body, contentType, err := encodeBody(opts)
	if err != nil {
		return nil, errors.Validationf("invalid request body: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Resolve(rawURL), body)
	if err != nil {
		return nil, errors.Validationf("invalid request: %v", err)
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	token, tokenErr := c.tokens.Token(ctx)
	switch {
	case tokenErr == nil:
		req.Header.Set(CSRFHeader, token)
	case safeMethod(method):
		c.logger.Debug("no CSRF token for safe request", "url", req.URL.String(), "error", tokenErr)
	default:
		return nil, tokenErr
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Network(err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Network(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Network(err)
	}

	c.logger.Debug("backend request",
		"method", method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusForbidden {
			c.tokens.Invalidate()
		}
		return nil, errors.HTTPStatus(resp.StatusCode, string(data))
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Parse(err)
	}
	if payload == nil {
		return nil, errors.Parse(fmt.Errorf("response is not a JSON object"))
	}
	if !payload.Success() {
		return nil, errors.Application(payload.Message())
	}
	return payload, nil
}

func encodeBody(opts *Options) (io.Reader, string, error) {
	if opts.Multipart != nil {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range opts.Multipart.Fields {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", err
			}
		}
		for _, f := range opts.Multipart.Files {
			part, err := w.CreateFormFile(f.Field, f.Filename)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write(f.Content); err != nil {
				return nil, "", err
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return &buf, w.FormDataContentType(), nil
	}

	if opts.Body == nil {
		return nil, "application/json", nil
	}
	data, err := json.Marshal(opts.Body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(data), "application/json", nil
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
