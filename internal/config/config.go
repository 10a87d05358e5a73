package config

import (
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Backend
		Sections map[string]Endpoints
		Database
		Session
		Pages
		UI
		Covers
		Tasks
		Log
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Backend struct {
		URL string
		// PublicURL is the library service as the browser sees it. Downloads
		// and login links point there.
		PublicURL         string
		BootstrapPath     string
		RequestsPerSecond float64
		// Cookies forwarded from the visitor to the library service.
		Cookies  []string
		LoginURL string
	}
	// Endpoints override a section's default service endpoints. Empty values
	// keep the default.
	Endpoints struct {
		API            string
		Detail         string
		ToggleRead     string
		Download       string
		CompanionFiles string
		MarkRead       string
		BookDetail     string
		BookDownload   string
	}
	Database struct {
		Path string
	}
	Session struct {
		Secret        string
		Lifetime      time.Duration
		SecureCookies bool // Set to false for local dev without HTTPS
	}
	Pages struct {
		IdleTimeout     time.Duration
		SweepSchedule   string // Cron format
		EventsPerSecond float64
	}
	UI struct {
		ToastDuration   time.Duration
		RefreshWatchdog time.Duration
		SearchDebounce  time.Duration
		DateLayout      string
		Timezone        string
	}
	Covers struct {
		CacheDir string
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Log struct {
		Level  string
		Format string // "text" or "json"
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)

	v.SetDefault("backend_url", "http://localhost:8000")
	v.SetDefault("backend_public_url", "")
	v.SetDefault("backend_bootstrap_path", "/ebooks/")
	v.SetDefault("backend_rps", 10)
	v.SetDefault("backend_cookies", "sessionid,csrftoken")
	v.SetDefault("login_url", "/accounts/login/")

	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("session_secret", "") // Auto-generated if empty
	v.SetDefault("session_lifetime", "720h")
	v.SetDefault("secure_cookies", true)

	v.SetDefault("page_idle_timeout", "30m")
	v.SetDefault("page_sweep_schedule", "*/5 * * * *")
	v.SetDefault("page_events_per_second", 20)

	v.SetDefault("toast_duration", "5s")
	v.SetDefault("refresh_watchdog", "1s")
	v.SetDefault("search_debounce", "300ms")
	v.SetDefault("date_layout", "")
	v.SetDefault("timezone", "")

	v.SetDefault("cover_cache_dir", DefaultCoverCacheDir)

	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	sections := make(map[string]Endpoints, len(SectionNames))
	for _, name := range SectionNames {
		sections[name] = sectionEndpoints(v, name)
	}

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Backend: Backend{
			URL:               v.GetString("BACKEND_URL"),
			PublicURL:         v.GetString("BACKEND_PUBLIC_URL"),
			BootstrapPath:     v.GetString("BACKEND_BOOTSTRAP_PATH"),
			RequestsPerSecond: v.GetFloat64("BACKEND_RPS"),
			Cookies:           splitList(v.GetString("BACKEND_COOKIES")),
			LoginURL:          v.GetString("LOGIN_URL"),
		},
		Sections: sections,
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Session: Session{
			Secret:        v.GetString("SESSION_SECRET"),
			Lifetime:      v.GetDuration("SESSION_LIFETIME"),
			SecureCookies: v.GetBool("SECURE_COOKIES"),
		},
		Pages: Pages{
			IdleTimeout:     v.GetDuration("PAGE_IDLE_TIMEOUT"),
			SweepSchedule:   v.GetString("PAGE_SWEEP_SCHEDULE"),
			EventsPerSecond: v.GetFloat64("PAGE_EVENTS_PER_SECOND"),
		},
		UI: UI{
			ToastDuration:   v.GetDuration("TOAST_DURATION"),
			RefreshWatchdog: v.GetDuration("REFRESH_WATCHDOG"),
			SearchDebounce:  v.GetDuration("SEARCH_DEBOUNCE"),
			DateLayout:      v.GetString("DATE_LAYOUT"),
			Timezone:        v.GetString("TIMEZONE"),
		},
		Covers: Covers{
			CacheDir: v.GetString("COVER_CACHE_DIR"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

// sectionEndpoints reads EBOOKS_API, EBOOKS_DETAIL, EBOOKS_TOGGLE_READ and so
// on for one section.
func sectionEndpoints(v *viper.Viper, name string) Endpoints {
	prefix := strings.ToUpper(name) + "_"
	return Endpoints{
		API:            v.GetString(prefix + "API"),
		Detail:         v.GetString(prefix + "DETAIL"),
		ToggleRead:     v.GetString(prefix + "TOGGLE_READ"),
		Download:       v.GetString(prefix + "DOWNLOAD"),
		CompanionFiles: v.GetString(prefix + "COMPANION_FILES"),
		MarkRead:       v.GetString(prefix + "MARK_READ"),
		BookDetail:     v.GetString(prefix + "BOOK_DETAIL"),
		BookDownload:   v.GetString(prefix + "BOOK_DOWNLOAD"),
	}
}

// ForwardCookies picks the configured backend cookies out of a request.
func (b Backend) ForwardCookies(r *http.Request) []*http.Cookie {
	var out []*http.Cookie
	for _, name := range b.Cookies {
		if c, err := r.Cookie(name); err == nil {
			out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	return out
}

// Public returns the service's browser-facing base URL.
func (b Backend) Public() string {
	if b.PublicURL != "" {
		return b.PublicURL
	}
	return b.URL
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
