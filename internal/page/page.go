// Package page wires one browser tab: a section manager, the split-pane
// shell around it and the document both render into. Pages live in a
// Registry keyed by id and owned by the visitor that opened them.
package page

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/mrlokans/shelfront/internal/covers"
	"github.com/mrlokans/shelfront/internal/dom"
	"github.com/mrlokans/shelfront/internal/entities"
	"github.com/mrlokans/shelfront/internal/errors"
	"github.com/mrlokans/shelfront/internal/present"
	"github.com/mrlokans/shelfront/internal/section"
	"github.com/mrlokans/shelfront/internal/shell"
)

// FeedbackRegion shows validation failures next to the toolbar.
const FeedbackRegion = "#action-feedback"

// DefaultCoverDebounce delays cover warm-up after a load, so a burst of
// refreshes schedules one batch.
const DefaultCoverDebounce = 2 * time.Second

type Options struct {
	Section section.Section
	Config  section.Config
	// Env supplies the backend client, dates, login URL, public URL and toast
	// duration. Surface, CoverURL and OnLoaded are set by the page.
	Env     section.Env
	Storage shell.Storage

	SearchDebounce  time.Duration
	RefreshWatchdog time.Duration

	// Covers, when set, serves item covers through the page.
	Covers *covers.Cache
	// HTTPClient fetches covers with the visitor's backend cookies.
	HTTPClient *http.Client
	// Resolve turns a cover path from the service into an absolute URL.
	Resolve func(ref string) string
	// WarmCovers schedules background cover fetches after a load.
	WarmCovers    func(ctx context.Context, pageID string, itemIDs []int64) error
	CoverDebounce time.Duration

	Logger *slog.Logger
}

type Page struct {
	ID      string
	Owner   string
	Section section.Section

	Doc   *dom.Document
	Shell *shell.Shell

	ctrl    section.Controller
	m       *section.Manager
	actions map[string]section.Action
	logger  *slog.Logger

	covers     *covers.Cache
	httpClient *http.Client
	resolve    func(string) string
	warmCovers func(ctx context.Context, pageID string, itemIDs []int64) error
	warm       *present.Debouncer

	mu          sync.Mutex
	lastSeen    time.Time
	feedback    bool
	pendingWarm []int64
}

func newPage(id, owner string, opts Options, now time.Time) (*Page, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("page", id, "section", string(opts.Section))

	p := &Page{
		ID:         id,
		Owner:      owner,
		Section:    opts.Section,
		Doc:        dom.New(dom.WithToastDuration(opts.Env.ToastDuration), dom.WithLogger(logger)),
		logger:     logger,
		covers:     opts.Covers,
		httpClient: opts.HTTPClient,
		resolve:    opts.Resolve,
		warmCovers: opts.WarmCovers,
		lastSeen:   now,
	}
	if p.resolve == nil {
		p.resolve = func(ref string) string { return ref }
	}

	env := opts.Env
	env.Surface = p.Doc
	env.Logger = logger
	env.OnLoaded = p.onLoaded
	if p.covers != nil {
		env.CoverURL = p.CoverPath
	}

	ctrl, err := newController(opts.Section, opts.Config, env)
	if err != nil {
		return nil, err
	}
	p.ctrl = ctrl
	p.m = ctrl.Base()
	p.actions = ctrl.Actions()

	p.Shell = shell.New(shell.Options{
		Manager:  p.m,
		Surface:  p.Doc,
		Storage:  opts.Storage,
		Debounce: opts.SearchDebounce,
		Watchdog: opts.RefreshWatchdog,
		Logger:   logger,
	})

	if p.warmCovers != nil {
		wait := opts.CoverDebounce
		if wait <= 0 {
			wait = DefaultCoverDebounce
		}
		p.warm = present.Debounce(wait, p.flushWarmups)
	}
	return p, nil
}

func newController(s section.Section, cfg section.Config, env section.Env) (section.Controller, error) {
	switch s {
	case section.Ebooks:
		m, err := section.NewEbooksManager(cfg, env)
		if err != nil {
			return nil, err
		}
		return m, nil
	case section.Comics:
		m, err := section.NewComicsManager(cfg, env)
		if err != nil {
			return nil, err
		}
		return m, nil
	case section.Audiobooks:
		m, err := section.NewAudiobooksManager(cfg, env)
		if err != nil {
			return nil, err
		}
		return m, nil
	case section.Series:
		m, err := section.NewSeriesManager(cfg, env)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, errors.Validationf("unknown section %q", s)
}

// Manager is the page's active section manager.
func (p *Page) Manager() *section.Manager {
	return p.m
}

// Controller is the specialized manager, for section-specific operations.
func (p *Page) Controller() section.Controller {
	return p.ctrl
}

// GlobalName is the name templates use to address the page's manager.
func (p *Page) GlobalName() string {
	return p.Section.GlobalName()
}

// Start applies the visitor's stored view preference and renders the
// toolbar and a loading panel. The list itself is loaded by the first
// "load" event.
func (p *Page) Start(ctx context.Context) {
	p.Shell.RestoreView(ctx)
	p.Shell.RenderToolbar()
	present.ShowLoading(p.Doc, p.m.Config().ListContainer, "Loading "+p.Section.Key()+"...")
	present.ShowEmpty(p.Doc, p.m.Config().DetailContainer, "Select an item to see its details.")
	p.Doc.Set(FeedbackRegion, nil)
}

// Dispatch runs one event. Validation failures are rendered into
// FeedbackRegion and returned; every other failure has already been
// rendered by the manager and is not returned.
func (p *Page) Dispatch(ctx context.Context, ev Event) error {
	p.touch(time.Now())

	if err := p.dispatch(ctx, ev); err != nil {
		if errors.Is(err, errors.ErrValidation) {
			p.showFeedback(err)
			return err
		}
		p.logger.Error("event failed", "action", ev.Action, "error", err)
		present.ShowToast(p.Doc, present.SeverityError, "Something went wrong. Please try again.", 0)
		return nil
	}
	p.clearFeedback()
	return nil
}

func (p *Page) dispatch(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	name, err := actionName(p.Section, ev.Action)
	if err != nil {
		return err
	}

	switch name {
	case "setView":
		if ev.View == "" {
			return errors.ValidationWithDetails("choose a view", map[string]string{"View": "is required"})
		}
		p.Shell.SetView(ctx, section.ParseViewMode(ev.View))
		return nil
	case "toggleView":
		p.Shell.ToggleView(ctx)
		return nil
	case "search":
		p.Shell.SearchChanged(ctx, ev.Search)
		return nil
	case "clearSearch":
		p.Shell.ClearSearch(ctx)
		return nil
	case "filter":
		p.Shell.FilterChanged(ctx, present.Criteria{
			Search: ev.Search,
			Sort:   ev.Sort,
			Format: ev.Format,
			Status: ev.Status,
		})
		return nil
	case "toggleFilters":
		p.Shell.ToggleFilters()
		return nil
	case "refresh":
		p.Shell.Refresh(ctx, ev.Scroll)
		return nil
	case "saveScroll":
		p.Shell.SaveScroll(ctx, ev.Scroll)
		return nil
	case "key":
		_, err := p.Shell.HandleKey(ctx, shell.Key{
			Key:         ev.Key,
			Ctrl:        ev.Ctrl,
			Meta:        ev.Meta,
			InTextField: ev.InTextField,
			ScrollTop:   ev.Scroll,
		})
		return err
	case "viewport":
		p.m.SetNarrow(ev.Narrow)
		return nil
	case "dismissToast":
		if ev.Severity == "" {
			return errors.ValidationWithDetails("invalid event", map[string]string{"Severity": "is required"})
		}
		p.Doc.DismissToast(present.Severity(ev.Severity))
		return nil
	}

	action, ok := p.actions[name]
	if !ok {
		return errors.ValidationWithDetails("unknown action", map[string]string{"Action": name + " is not available on this page"})
	}
	args, err := ev.Args()
	if err != nil {
		return err
	}
	return action(ctx, args)
}

// Flush returns the document changes since the previous Flush.
func (p *Page) Flush() dom.Patch {
	return p.Doc.Flush()
}

// LastSeen is when the page last received an event.
func (p *Page) LastSeen() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSeen
}

func (p *Page) touch(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if now.After(p.lastSeen) {
		p.lastSeen = now
	}
}

// Close stops background work owned by the page.
func (p *Page) Close() {
	if p.warm != nil {
		p.warm.Stop()
	}
}

// CoverPath is the frontend URL of an item's cover.
func (p *Page) CoverPath(id int64) string {
	return "/pages/" + p.ID + "/covers/" + strconv.FormatInt(id, 10)
}

// Cover returns the local file holding the cover of item id, fetching it if
// needed. Items without a cover are NOT_FOUND.
func (p *Page) Cover(ctx context.Context, id int64) (string, error) {
	if p.covers == nil {
		return "", errors.NotFoundf("covers are disabled")
	}
	item := p.m.Item(id)
	if item == nil || item.CoverURL == "" {
		return "", errors.NotFoundf("no cover for item %d", id)
	}
	path, err := p.covers.Get(ctx, p.httpClient, string(p.Section), id, p.resolve(item.CoverURL))
	if err != nil {
		return "", fmt.Errorf("cover %d: %w", id, err)
	}
	return path, nil
}

func (p *Page) onLoaded(_ section.Section, items []*entities.Item) {
	p.Shell.SetFormats(items)
	if p.warm == nil || p.covers == nil {
		return
	}

	var ids []int64
	for _, it := range items {
		if it.CoverURL != "" && !p.covers.Has(string(p.Section), it.ID, p.resolve(it.CoverURL)) {
			ids = append(ids, it.ID)
		}
	}
	if len(ids) == 0 {
		return
	}

	p.mu.Lock()
	p.pendingWarm = ids
	p.mu.Unlock()
	p.warm.Call()
}

func (p *Page) flushWarmups() {
	p.mu.Lock()
	ids := slices.Clone(p.pendingWarm)
	p.pendingWarm = nil
	p.mu.Unlock()

	if len(ids) == 0 {
		return
	}
	if err := p.warmCovers(context.Background(), p.ID, ids); err != nil {
		p.logger.Warn("cover warm-up not scheduled", "error", err)
		return
	}
	p.logger.Debug("cover warm-up scheduled", "count", len(ids))
}
