// Package shell implements the split-pane scaffolding around a section
// manager: the view toggle, search and filter controls, refresh, keyboard
// shortcuts and scroll restoration.
package shell

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mrlokans/shelfront/internal/entities"
	"github.com/mrlokans/shelfront/internal/present"
	"github.com/mrlokans/shelfront/internal/section"
)

// Toolbar regions and the search input, all rendered by the page layout.
const (
	ViewToggleRegion   = "#view-toggle"
	SearchClearRegion  = "#search-clear"
	FilterToggleRegion = "#filter-toggle"
	FiltersRegion      = "#advanced-filters"
	RefreshRegion      = "#refresh-button"
	SearchInput        = "#search-input"
)

const (
	DefaultWatchdog = time.Second
	DefaultDebounce = 300 * time.Millisecond
)

type Options struct {
	Manager *section.Manager
	Surface present.Surface
	Storage Storage

	// Debounce is the quiet period before a search is applied.
	Debounce time.Duration
	// Watchdog restores the refresh button if a reload takes longer.
	Watchdog time.Duration
	Logger   *slog.Logger
}

type Shell struct {
	mu sync.Mutex

	m        *section.Manager
	surface  present.Surface
	storage  Storage
	debounce time.Duration
	watchdog time.Duration
	logger   *slog.Logger

	criteria    present.Criteria
	filtersOpen bool
	refreshing  bool
	refreshSeq  uint64
	searchSeq   uint64
	formats     []string
}

func New(opts Options) *Shell {
	if opts.Storage == nil {
		opts.Storage = NewMemoryStorage()
	}
	if opts.Watchdog <= 0 {
		opts.Watchdog = DefaultWatchdog
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Shell{
		m:        opts.Manager,
		surface:  opts.Surface,
		storage:  opts.Storage,
		debounce: opts.Debounce,
		watchdog: opts.Watchdog,
		logger:   opts.Logger.With("component", "shell"),
	}
}

func (s *Shell) Criteria() present.Criteria {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criteria
}

// RestoreView applies the stored view preference before the first render.
func (s *Shell) RestoreView(ctx context.Context) section.ViewMode {
	mode := section.ParseViewMode(s.storage.GetString(ctx, PreferredViewKey))
	s.m.SetMode(mode)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderViewToggleLocked(mode)
	return mode
}

// SetView switches between list and grid and remembers the choice.
func (s *Shell) SetView(ctx context.Context, mode section.ViewMode) {
	s.storage.PutString(ctx, PreferredViewKey, string(mode))
	s.m.RenderList(mode)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderViewToggleLocked(mode)
}

// ToggleView flips the current view mode.
func (s *Shell) ToggleView(ctx context.Context) section.ViewMode {
	mode := section.ViewGrid
	if s.m.Mode() == section.ViewGrid {
		mode = section.ViewList
	}
	s.SetView(ctx, mode)
	return mode
}

// SearchChanged records the search term and re-filters once no newer term
// has arrived for the debounce period. It reports whether this call applied
// the filter.
func (s *Shell) SearchChanged(ctx context.Context, term string) bool {
	s.mu.Lock()
	s.searchSeq++
	seq := s.searchSeq
	s.criteria.Search = term
	s.renderSearchClearLocked()
	s.mu.Unlock()

	if s.debounce > 0 {
		t := time.NewTimer(s.debounce)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return false
		}
	}

	s.mu.Lock()
	if seq != s.searchSeq {
		s.mu.Unlock()
		return false
	}
	c := s.criteria
	s.mu.Unlock()

	s.m.Filter(c)
	return true
}

// ClearSearch empties the search box, refocuses it and re-filters.
func (s *Shell) ClearSearch(context.Context) {
	s.mu.Lock()
	s.searchSeq++
	s.criteria.Search = ""
	s.renderSearchClearLocked()
	c := s.criteria
	s.mu.Unlock()

	s.surface.Trigger("clearSearch", map[string]string{"selector": SearchInput})
	s.m.Filter(c)
}

// FilterChanged applies new sort, format and status values. The search term
// is applied immediately as well.
func (s *Shell) FilterChanged(_ context.Context, c present.Criteria) {
	s.mu.Lock()
	s.searchSeq++
	s.criteria = c
	s.renderSearchClearLocked()
	s.renderFiltersLocked()
	s.mu.Unlock()

	s.m.Filter(c)
}

// ToggleFilters opens or closes the advanced filter pane.
func (s *Shell) ToggleFilters() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filtersOpen = !s.filtersOpen
	s.renderFilterToggleLocked()
	s.renderFiltersLocked()
	return s.filtersOpen
}

// Refresh reloads the collection. scrollTop, when positive, is restored
// after the reload. The refresh button comes back when the load finishes or
// the watchdog fires, whichever is first.
func (s *Shell) Refresh(ctx context.Context, scrollTop int) {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return
	}
	s.refreshing = true
	s.refreshSeq++
	seq := s.refreshSeq
	s.renderRefreshLocked()
	s.mu.Unlock()

	s.surface.Trigger("refreshStarted", map[string]int64{"timeout": s.watchdog.Milliseconds()})
	if scrollTop > 0 {
		s.SaveScroll(ctx, scrollTop)
	}

	watchdog := time.AfterFunc(s.watchdog, func() {
		if s.endRefresh(seq) {
			s.logger.Warn("refresh still running after watchdog", "timeout", s.watchdog)
		}
	})
	s.m.Load(ctx)
	watchdog.Stop()
	s.endRefresh(seq)
	s.ConsumeScroll(ctx)
}

// Refreshing reports whether the refresh button is in its busy state.
func (s *Shell) Refreshing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshing
}

func (s *Shell) endRefresh(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.refreshing || seq != s.refreshSeq {
		return false
	}
	s.refreshing = false
	s.renderRefreshLocked()
	return true
}

// ScrollToSelected asks the browser to bring the selected row into view.
func (s *Shell) ScrollToSelected() {
	id, ok := s.m.SelectedID()
	if !ok {
		return
	}
	s.surface.Trigger("scrollToSelected", map[string]any{
		"container": s.m.Config().ListContainer,
		"id":        id,
	})
}

// SaveScroll remembers the list scroll offset for the next reload.
func (s *Shell) SaveScroll(ctx context.Context, top int) {
	s.storage.PutInt(ctx, ScrollKey, top)
}

// ConsumeScroll restores a remembered scroll offset once.
func (s *Shell) ConsumeScroll(ctx context.Context) (int, bool) {
	top, ok := s.storage.PopInt(ctx, ScrollKey)
	if !ok {
		return 0, false
	}
	s.surface.Trigger("restoreScroll", map[string]any{
		"container": s.m.Config().ListContainer,
		"top":       top,
	})
	return top, true
}

// SetFormats offers the formats present in items in the format filter.
func (s *Shell) SetFormats(items []*entities.Item) {
	seen := map[string]bool{}
	var formats []string
	add := func(it *entities.Item) {
		if k := it.FormatKey(); k != "" && !seen[k] {
			seen[k] = true
			formats = append(formats, k)
		}
	}
	for _, it := range items {
		if it == nil {
			continue
		}
		add(it)
		for _, b := range it.Books {
			if b != nil {
				add(b)
			}
		}
	}
	slices.Sort(formats)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.formats = formats
	s.renderFiltersLocked()
}

// RenderToolbar renders every toolbar region.
func (s *Shell) RenderToolbar() {
	mode := s.m.Mode()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderViewToggleLocked(mode)
	s.renderSearchClearLocked()
	s.renderFilterToggleLocked()
	s.renderFiltersLocked()
	s.renderRefreshLocked()
}
