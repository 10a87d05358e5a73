// Package section implements the section managers: one object per page that
// binds a list and detail pane to a remote collection of ebooks, comics,
// audiobooks or series.
//
// A manager's state changes only under its mutex and only inside the reply
// handler of a request; network I/O happens outside the lock. Two overlapping
// requests resolve latest-arrival-wins. Errors never escape a manager: list
// and detail failures become error panels, mutation failures become toasts.
// Only VALIDATION errors are returned, so the caller can show them next to
// the control that caused them.
package section

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"maragu.dev/gomponents"

	"github.com/mrlokans/shelfront/internal/backend"
	"github.com/mrlokans/shelfront/internal/entities"
	"github.com/mrlokans/shelfront/internal/errors"
	"github.com/mrlokans/shelfront/internal/present"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
	StateDetailLoading
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateDetailLoading:
		return "detail-loading"
	}
	return "unknown"
}

type ViewMode string

const (
	ViewList ViewMode = "list"
	ViewGrid ViewMode = "grid"
)

// ParseViewMode returns ViewList for anything but "grid".
func ParseViewMode(s string) ViewMode {
	if ViewMode(strings.ToLower(strings.TrimSpace(s))) == ViewGrid {
		return ViewGrid
	}
	return ViewList
}

// Capabilities describe which shell controls and behaviours a section uses.
type Capabilities struct {
	Search          bool
	Sort            bool
	FormatFilter    bool
	StatusFilter    bool
	Expand          bool
	DetailFromCache bool
}

// Env carries a manager's collaborators.
type Env struct {
	Client  backend.Requester
	Surface present.Surface
	Dates   present.DateFormat

	// LoginURL is linked from error panels on authentication failures.
	LoginURL string
	// PublicURL maps a service path to the URL the browser should fetch.
	PublicURL func(path string) string
	// CoverURL returns the cover image URL for an item with a cover.
	CoverURL func(id int64) string

	ToastDuration time.Duration
	Logger        *slog.Logger

	// OnLoaded runs after every successful list load, outside the lock.
	OnLoaded func(s Section, items []*entities.Item)
}

// Args are the arguments of an action posted by the page.
type Args struct {
	ItemID  int64
	HasItem bool
	Tab     string
}

// Action is one entry of a manager's action table.
type Action func(ctx context.Context, args Args) error

// Controller is implemented by every specialized manager.
type Controller interface {
	Base() *Manager
	Actions() map[string]Action
}

// Detail is the record shown in the detail pane.
type Detail struct {
	// Kind is the response field that carried the record: the section's
	// singular name, "series" or "book".
	Kind string
	Item *entities.Item
	Tab  string
}

// variant is what a specialized manager supplies to the base lifecycle.
type variant interface {
	capabilities() Capabilities
	match(item *entities.Item, c present.Criteria) bool
	value(item *entities.Item, field string) present.Sortable
	columns() []string
	row(item *entities.Item, st rowState) gomponents.Node
	card(item *entities.Item, st rowState) gomponents.Node
	renderDetail(d *Detail) gomponents.Node
	decodeDetail(p backend.Payload) (*Detail, error)
}

// activator is implemented by variants with a non-default OnItemActivate.
type activator interface {
	activate(ctx context.Context, id int64) error
}

// expandLoader is implemented by variants that load data on first expand.
type expandLoader interface {
	onExpand(ctx context.Context, id int64)
}

// tabLoader is implemented by variants that load data when a detail tab opens.
type tabLoader interface {
	onTab(ctx context.Context, d *Detail)
}

// reloader is implemented by variants that cache per-item data beside the
// list. resetLocked runs under the lock before a new list is stored;
// reloaded runs after the lock is released.
type reloader interface {
	resetLocked()
	reloaded(ctx context.Context)
}

type rowState struct {
	Selected bool
	Expanded bool
}

// Manager implements the lifecycle shared by every section.
type Manager struct {
	mu sync.Mutex

	section Section
	cfg     Config
	env     Env
	logger  *slog.Logger
	v       variant
	caps    Capabilities

	state    State
	current  []*entities.Item
	filtered []*entities.Item
	criteria present.Criteria

	selectedID   int64
	hasSelection bool
	expanded     map[int64]bool

	mode   ViewMode
	narrow bool
	detail *Detail
}

func newManager(s Section, cfg Config, env Env, v variant) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	caps := v.capabilities()
	if !caps.DetailFromCache && cfg.DetailEndpoint == "" {
		return nil, errors.ValidationWithDetails("invalid section configuration", map[string]string{
			"DetailEndpoint": "is required",
		})
	}
	if env.Client == nil || env.Surface == nil {
		return nil, errors.Validation("section manager needs a client and a surface")
	}
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	if env.Dates.Layout == "" {
		env.Dates = present.DefaultDates
	}
	if env.PublicURL == nil {
		env.PublicURL = func(p string) string { return p }
	}

	return &Manager{
		section:  s,
		cfg:      cfg,
		env:      env,
		logger:   env.Logger.With("section", string(s)),
		v:        v,
		caps:     caps,
		expanded: map[int64]bool{},
		mode:     ViewList,
	}, nil
}

func (m *Manager) Base() *Manager { return m }

func (m *Manager) Section() Section { return m.section }

func (m *Manager) Config() Config { return m.cfg }

func (m *Manager) Capabilities() Capabilities { return m.caps }

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns a copy of the loaded collection.
func (m *Manager) Current() []*entities.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.current)
}

// Filtered returns a copy of the visible collection in display order.
func (m *Manager) Filtered() []*entities.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.filtered)
}

func (m *Manager) SelectedID() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedID, m.hasSelection
}

// ExpandedIDs returns the expanded rows in ascending id order.
func (m *Manager) ExpandedIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.expanded))
	for id := range m.expanded {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Item returns the cached record with id, or nil.
func (m *Manager) Item(id int64) *entities.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemLocked(id)
}

func (m *Manager) Criteria() present.Criteria {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.criteria
}

func (m *Manager) Mode() ViewMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Detail returns the record currently shown in the detail pane.
func (m *Manager) Detail() *Detail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detail
}

// SetNarrow records whether the viewport is too narrow for two panes.
func (m *Manager) SetNarrow(narrow bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.narrow = narrow
}

// Load fetches the collection and renders it. A failure replaces the list
// with an error panel offering a retry.
func (m *Manager) Load(ctx context.Context) {
	m.mu.Lock()
	m.state = StateLoading
	present.ShowLoading(m.env.Surface, m.cfg.ListContainer, "Loading "+m.section.Key()+"...")
	m.mu.Unlock()

	payload, err := m.env.Client.Request(ctx, m.cfg.APIEndpoint, nil)
	var items []*entities.Item
	if err == nil {
		err = payload.Decode(m.section.Key(), &items)
	}

	m.mu.Lock()
	if err != nil {
		m.state = StateFailed
		m.logger.Warn("list load failed", "error", err)
		present.ShowError(m.env.Surface, m.cfg.ListContainer, err, m.errorOptions("load", 0))
		m.mu.Unlock()
		return
	}

	items = slices.DeleteFunc(items, func(it *entities.Item) bool { return it == nil })
	r, resets := m.v.(reloader)
	if resets {
		r.resetLocked()
	}
	m.current = items
	m.applyFilterLocked()
	m.renderListLocked()
	m.updateCountLocked()
	m.state = StateReady
	hook := m.env.OnLoaded
	loaded := slices.Clone(items)
	m.mu.Unlock()

	m.logger.Debug("list loaded", "count", len(loaded))
	if resets {
		r.reloaded(ctx)
	}
	if hook != nil {
		hook(m.section, loaded)
	}
}

// Filter recomputes the visible collection, re-renders it and updates the
// count badge.
func (m *Manager) Filter(c present.Criteria) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.criteria = c
	m.applyFilterLocked()
	m.renderListLocked()
	m.updateCountLocked()
}

// RenderList renders the list or grid variant. An empty mode keeps the
// current one.
func (m *Manager) RenderList(mode ViewMode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mode != "" {
		m.mode = mode
	}
	m.renderListLocked()
}

// SetMode changes the view mode without rendering, for use before the first
// load.
func (m *Manager) SetMode(mode ViewMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

// UpdateItemCount re-renders the count badge.
func (m *Manager) UpdateItemCount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCountLocked()
}

// Select marks id as the selected row and loads its detail. Only visible
// rows can be selected.
func (m *Manager) Select(ctx context.Context, id int64) error {
	m.mu.Lock()
	if m.itemLocked(id) == nil {
		m.mu.Unlock()
		return errors.Validationf("no %s with id %d", m.section.Singular(), id)
	}
	if !m.visibleLocked(id) {
		m.mu.Unlock()
		return errors.ValidationWithDetails("item is hidden by the current filters", map[string]string{
			"ItemID": fmt.Sprintf("%s %d does not match the search or filters", m.section.Singular(), id),
		})
	}
	m.selectedID, m.hasSelection = id, true
	m.renderListLocked()
	m.mu.Unlock()

	return m.LoadDetail(ctx, id)
}

// LoadDetail renders the detail pane for id, from the cache or the detail
// endpoint.
func (m *Manager) LoadDetail(ctx context.Context, id int64) error {
	m.mu.Lock()
	item := m.itemLocked(id)
	if item == nil {
		m.mu.Unlock()
		return errors.Validationf("no %s with id %d", m.section.Singular(), id)
	}

	if m.caps.DetailFromCache {
		m.detail = &Detail{Kind: m.section.Singular(), Item: item, Tab: TabInformation}
		m.renderDetailLocked()
		m.mu.Unlock()
		return nil
	}

	url, _ := m.cfg.DetailURL(id)
	m.mu.Unlock()

	m.fetchDetail(ctx, url, "loadDetail", id)
	return nil
}

// fetchDetail loads a detail record from url. retryAction and retryID are
// offered on the error panel. The list state is left alone unless the list
// is Ready.
func (m *Manager) fetchDetail(ctx context.Context, url, retryAction string, retryID int64) {
	m.mu.Lock()
	if m.state == StateReady {
		m.state = StateDetailLoading
	}
	present.ShowLoading(m.env.Surface, m.cfg.DetailContainer, "Loading details...")
	m.mu.Unlock()

	payload, err := m.env.Client.Request(ctx, url, nil)
	var d *Detail
	if err == nil {
		d, err = m.v.decodeDetail(payload)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateDetailLoading {
		m.state = StateReady
	}
	if err != nil {
		m.logger.Warn("detail load failed", "url", url, "error", err)
		present.ShowError(m.env.Surface, m.cfg.DetailContainer, err, m.errorOptions(retryAction, retryID))
		return
	}
	if d.Tab == "" {
		d.Tab = TabInformation
	}
	m.detail = d
	m.renderDetailLocked()
}

// OnItemActivate handles a double click on a row, or Enter on the selected
// row. It does nothing
// unless the section defines an activation.
func (m *Manager) OnItemActivate(ctx context.Context, id int64) error {
	if a, ok := m.v.(activator); ok {
		return a.activate(ctx, id)
	}
	return nil
}

// ToggleExpand shows or hides the inline detail of a row.
func (m *Manager) ToggleExpand(ctx context.Context, id int64) error {
	if !m.caps.Expand {
		return errors.Validation("rows of this section cannot be expanded")
	}

	m.mu.Lock()
	if m.itemLocked(id) == nil {
		m.mu.Unlock()
		return errors.Validationf("no %s with id %d", m.section.Singular(), id)
	}
	expanding := !m.expanded[id]
	if expanding {
		m.expanded[id] = true
	} else {
		delete(m.expanded, id)
	}
	m.renderListLocked()
	m.mu.Unlock()

	if expanding {
		if l, ok := m.v.(expandLoader); ok {
			l.onExpand(ctx, id)
		}
	}
	return nil
}

// SelectAdjacent moves the selection by delta rows within the visible
// collection, clamped at both ends. With nothing selected the first row is
// selected.
func (m *Manager) SelectAdjacent(ctx context.Context, delta int) error {
	m.mu.Lock()
	if len(m.filtered) == 0 {
		m.mu.Unlock()
		return nil
	}

	target := 0
	if m.hasSelection {
		idx := slices.IndexFunc(m.filtered, func(it *entities.Item) bool { return it.ID == m.selectedID })
		if idx >= 0 {
			target = min(max(idx+delta, 0), len(m.filtered)-1)
		}
	}
	id := m.filtered[target].ID
	unchanged := m.hasSelection && id == m.selectedID
	m.mu.Unlock()

	if unchanged {
		return nil
	}
	return m.Select(ctx, id)
}

// ShowTab switches the detail pane's tab.
func (m *Manager) ShowTab(ctx context.Context, tab string) error {
	if !validTab(tab) {
		return errors.ValidationWithDetails("unknown tab", map[string]string{"tab": "must be one of information metadata files"})
	}

	m.mu.Lock()
	if m.detail == nil {
		m.mu.Unlock()
		return errors.Validation("nothing is selected")
	}
	m.detail.Tab = tab
	d := m.detail
	m.renderDetailLocked()
	m.mu.Unlock()

	if l, ok := m.v.(tabLoader); ok {
		l.onTab(ctx, d)
	}
	return nil
}

// CloseDetail returns from the full-width detail view on narrow screens.
func (m *Manager) CloseDetail() {
	m.env.Surface.Trigger("demoteDetail", nil)
}

// Actions returns the base action table. Specialized managers extend it.
func (m *Manager) Actions() map[string]Action {
	return map[string]Action{
		"load":  func(ctx context.Context, _ Args) error { m.Load(ctx); return nil },
		"retry": func(ctx context.Context, _ Args) error { m.Load(ctx); return nil },
		"select": withItem(func(ctx context.Context, id int64) error {
			return m.Select(ctx, id)
		}),
		"loadDetail": withItem(func(ctx context.Context, id int64) error {
			return m.LoadDetail(ctx, id)
		}),
		"activate": withItem(func(ctx context.Context, id int64) error {
			return m.OnItemActivate(ctx, id)
		}),
		"expand": withItem(func(ctx context.Context, id int64) error {
			return m.ToggleExpand(ctx, id)
		}),
		"showTab": func(ctx context.Context, a Args) error {
			return m.ShowTab(ctx, a.Tab)
		},
		"closeDetail": func(context.Context, Args) error {
			m.CloseDetail()
			return nil
		},
		"updateCount": func(context.Context, Args) error {
			m.UpdateItemCount()
			return nil
		},
	}
}

func withItem(fn func(ctx context.Context, id int64) error) Action {
	return func(ctx context.Context, a Args) error {
		if !a.HasItem {
			return errors.ValidationWithDetails("this action needs an item", map[string]string{"item_id": "is required"})
		}
		return fn(ctx, a.ItemID)
	}
}

func mergeActions(base map[string]Action, extra map[string]Action) map[string]Action {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

func (m *Manager) itemLocked(id int64) *entities.Item {
	for _, it := range m.current {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (m *Manager) visibleLocked(id int64) bool {
	return slices.ContainsFunc(m.filtered, func(it *entities.Item) bool { return it.ID == id })
}

// applyFilterLocked recomputes filtered and drops selection and expansion
// state for rows that are no longer visible.
func (m *Manager) applyFilterLocked() {
	m.filtered = present.FilterAndSortWith(m.current, m.criteria, m.v.match, m.v.value)

	visible := make(map[int64]bool, len(m.filtered))
	for _, it := range m.filtered {
		visible[it.ID] = true
	}
	if m.hasSelection && !visible[m.selectedID] {
		m.selectedID, m.hasSelection = 0, false
	}
	for id := range m.expanded {
		if !visible[id] {
			delete(m.expanded, id)
		}
	}
}

func (m *Manager) updateCountLocked() {
	m.env.Surface.Set(m.cfg.CountBadge, gomponents.Text(itoa(len(m.filtered))))
	m.env.Surface.Trigger("pulseCount", map[string]string{"selector": m.cfg.CountBadge})
}

func (m *Manager) errorOptions(retryAction string, retryID int64) present.ErrorOptions {
	return present.ErrorOptions{RetryAction: retryAction, RetryItemID: retryID, LoginURL: m.env.LoginURL}
}

func (m *Manager) toast(sev present.Severity, msg string) {
	present.ShowToast(m.env.Surface, sev, msg, m.env.ToastDuration)
}

// post issues a state-changing request.
func (m *Manager) post(ctx context.Context, url string, body any) (backend.Payload, error) {
	return m.env.Client.Request(ctx, url, &backend.Options{Method: http.MethodPost, Body: body})
}

// toggleRead flips the read flag of the item find returns, once the service
// confirms. The cache is untouched when the request fails. A series shown in
// the detail pane gets its copy of the book patched too.
func (m *Manager) toggleRead(ctx context.Context, id int64, endpoint Endpoint, find func(id int64) *entities.Item) error {
	m.mu.Lock()
	item := find(id)
	if item == nil {
		m.mu.Unlock()
		return errors.Validationf("no %s with id %d", m.section.Singular(), id)
	}
	prev := item.IsRead
	url, ok := m.cfg.Endpoints.URL(endpoint, id)
	m.mu.Unlock()
	if !ok {
		return errors.Validation("changing the read status is not available here")
	}

	payload, err := m.post(ctx, url, map[string]bool{"is_read": !prev})

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.logger.Warn("toggle read failed", "id", id, "error", err)
		m.toast(present.SeverityError, "Could not update read status: "+err.Error())
		return nil
	}

	isRead, ok := payload.Bool("is_read")
	if !ok {
		isRead = !prev
	}
	if item := find(id); item != nil {
		item.SetRead(isRead)
	}
	m.patchDetailLocked(func(d *Detail) bool {
		target := d.Item
		if d.Kind == "series" {
			target = d.Item.FindBook(id)
		} else if target.ID != id {
			target = nil
		}
		if target == nil {
			return false
		}
		target.SetRead(isRead)
		return true
	})
	m.applyFilterLocked()
	m.renderListLocked()
	m.updateCountLocked()

	if isRead {
		m.toast(present.SeveritySuccess, "Marked as read")
	} else {
		m.toast(present.SeveritySuccess, "Marked as unread")
	}
	return nil
}

// download asks the browser to fetch the endpoint's file for id, suggesting
// name as the file name.
func (m *Manager) download(endpoint Endpoint, id int64, name string) error {
	url, ok := m.cfg.Endpoints.URL(endpoint, id)
	if !ok {
		return errors.Validation("downloads are not available here")
	}
	present.DownloadFile(m.env.Surface, m.env.PublicURL(url), name)
	return nil
}

// patchDetailLocked applies fn to the shown detail and re-renders it when fn
// reports a change.
func (m *Manager) patchDetailLocked(fn func(d *Detail) bool) {
	if m.detail == nil || m.detail.Item == nil {
		return
	}
	if fn(m.detail) {
		m.renderDetailLocked()
	}
}
