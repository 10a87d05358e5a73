package entrypoint

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfront/internal/auth"
	"github.com/mrlokans/shelfront/internal/backend"
	"github.com/mrlokans/shelfront/internal/config"
	"github.com/mrlokans/shelfront/internal/covers"
	"github.com/mrlokans/shelfront/internal/page"
	"github.com/mrlokans/shelfront/internal/present"
	"github.com/mrlokans/shelfront/internal/section"
	"github.com/mrlokans/shelfront/internal/tasks"
)

// pageFactory assembles the collaborators of a new page. Each page gets its
// own backend client carrying the visitor's cookies.
type pageFactory struct {
	cfg      *config.Config
	sessions *auth.SessionManager
	covers   *covers.Cache
	tasks    *tasks.Client
	logger   *slog.Logger
}

func (f *pageFactory) Options(c *gin.Context, s section.Section) (page.Options, error) {
	secCfg, err := sectionConfig(s, f.cfg.Sections[string(s)])
	if err != nil {
		return page.Options{}, err
	}

	client, err := backend.NewClient(backend.Config{
		BaseURL:           f.cfg.Backend.URL,
		BootstrapPath:     f.cfg.Backend.BootstrapPath,
		Cookies:           f.cfg.Backend.ForwardCookies(c.Request),
		RequestsPerSecond: f.cfg.Backend.RequestsPerSecond,
		Logger:            f.logger,
	})
	if err != nil {
		return page.Options{}, err
	}

	opts := page.Options{
		Section: s,
		Config:  secCfg,
		Env: section.Env{
			Client:        client,
			Dates:         present.NewDateFormat(f.cfg.UI.DateLayout, f.cfg.UI.Timezone),
			LoginURL:      publicURL(f.cfg.Backend.Public())(f.cfg.Backend.LoginURL),
			PublicURL:     publicURL(f.cfg.Backend.Public()),
			ToastDuration: f.cfg.UI.ToastDuration,
		},
		Storage:         f.sessions.Storage(),
		SearchDebounce:  f.cfg.UI.SearchDebounce,
		RefreshWatchdog: f.cfg.UI.RefreshWatchdog,
		Covers:          f.covers,
		HTTPClient:      client.HTTPClient(),
		Resolve:         client.Resolve,
		Logger:          f.logger,
	}
	if f.tasks != nil {
		opts.WarmCovers = f.tasks.WarmCovers
	}
	return opts, nil
}

// sectionConfig applies endpoint overrides to a section's defaults.
func sectionConfig(s section.Section, o config.Endpoints) (section.Config, error) {
	cfg := section.DefaultConfig(s)
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.APIEndpoint, o.API)
	override(&cfg.DetailEndpoint, o.Detail)
	override(&cfg.Endpoints.ToggleRead, o.ToggleRead)
	override(&cfg.Endpoints.Download, o.Download)
	override(&cfg.Endpoints.CompanionFiles, o.CompanionFiles)
	override(&cfg.Endpoints.MarkRead, o.MarkRead)
	override(&cfg.Endpoints.BookDetail, o.BookDetail)
	override(&cfg.Endpoints.BookDownload, o.BookDownload)

	if err := cfg.Validate(); err != nil {
		return section.Config{}, err
	}
	return cfg, nil
}

// publicURL resolves service paths against the service's browser-facing
// URL. Absolute URLs and an unparsable base pass through unchanged.
func publicURL(base string) func(string) string {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil || u.Host == "" {
		return func(p string) string { return p }
	}
	return func(p string) string {
		if p == "" {
			return p
		}
		ref, err := url.Parse(p)
		if err != nil || ref.IsAbs() {
			return p
		}
		return u.ResolveReference(ref).String()
	}
}
