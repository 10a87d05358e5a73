// Package dom models one browser tab as seen by the server: the rendered
// content of each container, the visible toasts and the client-side effects
// queued since the last response.
package dom

import (
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"maragu.dev/gomponents"

	"github.com/mrlokans/shelfront/internal/present"
)

// ToastRegion is the container toasts are rendered into.
const ToastRegion = "#toasts"

var severityOrder = []present.Severity{
	present.SeverityError,
	present.SeverityWarning,
	present.SeveritySuccess,
	present.SeverityInfo,
}

// Document implements present.Surface.
type Document struct {
	mu sync.Mutex

	now           func() time.Time
	toastDuration time.Duration
	logger        *slog.Logger

	content map[string]string
	dirty   []string

	toasts      map[present.Severity]present.Toast
	toastsDirty bool

	triggers     map[string]any
	triggerOrder []string
}

type Option func(*Document)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Document) { d.now = now }
}

// WithToastDuration sets the lifetime of toasts pushed with a zero duration.
func WithToastDuration(dur time.Duration) Option {
	return func(d *Document) {
		if dur > 0 {
			d.toastDuration = dur
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Document) { d.logger = logger }
}

func New(opts ...Option) *Document {
	d := &Document{
		now:           time.Now,
		toastDuration: present.DefaultToastDuration,
		logger:        slog.Default(),
		content:       map[string]string{},
		toasts:        map[present.Severity]present.Toast{},
		triggers:      map[string]any{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Set renders node into the container named by an "#id" selector.
func (d *Document) Set(selector string, node gomponents.Node) {
	if !validSelector(selector) {
		d.logger.Warn("ignoring render into unsupported selector", "selector", selector)
		return
	}

	var b strings.Builder
	if node != nil {
		if err := node.Render(&b); err != nil {
			d.logger.Error("render failed", "selector", selector, "error", err)
			return
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.content[selector] = b.String()
	if !slices.Contains(d.dirty, selector) {
		d.dirty = append(d.dirty, selector)
	}
}

// HTML returns the current content of a container.
func (d *Document) HTML(selector string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.content[selector]
}

// PushToast shows a toast, replacing any visible toast of the same severity.
func (d *Document) PushToast(severity present.Severity, message string, duration time.Duration) {
	if duration <= 0 {
		duration = d.toastDuration
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.toasts[severity] = present.Toast{
		Severity:  severity,
		Message:   message,
		ExpiresAt: d.now().Add(duration),
	}
	d.toastsDirty = true
}

func (d *Document) DismissToast(severity present.Severity) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.toasts[severity]; ok {
		delete(d.toasts, severity)
		d.toastsDirty = true
	}
}

// Toasts returns the unexpired toasts in display order.
func (d *Document) Toasts() []present.Toast {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expireLocked()
	return d.toastsLocked()
}

// Trigger queues a client-side effect for the next response. A later
// trigger with the same name replaces the payload.
func (d *Document) Trigger(name string, payload any) {
	if payload == nil {
		payload = true
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.triggers[name]; !ok {
		d.triggerOrder = append(d.triggerOrder, name)
	}
	d.triggers[name] = payload
}

// Flush returns everything that changed since the previous Flush.
func (d *Document) Flush() Patch {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.expireLocked()

	var p Patch
	for _, sel := range d.dirty {
		p.Fragments = append(p.Fragments, Fragment{ID: strings.TrimPrefix(sel, "#"), HTML: d.content[sel]})
	}
	if d.toastsDirty {
		p.Fragments = append(p.Fragments, d.toastFragmentLocked())
	}
	for _, name := range d.triggerOrder {
		p.Triggers = append(p.Triggers, Trigger{Name: name, Payload: d.triggers[name]})
	}

	d.dirty = nil
	d.toastsDirty = false
	d.triggers = map[string]any{}
	d.triggerOrder = nil
	return p
}

// Snapshot returns the full current content, for the initial page render.
// Pending changes are marked clean.
func (d *Document) Snapshot() Patch {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.expireLocked()

	var p Patch
	for sel, html := range d.content {
		p.Fragments = append(p.Fragments, Fragment{ID: strings.TrimPrefix(sel, "#"), HTML: html})
	}
	slices.SortFunc(p.Fragments, func(a, b Fragment) int { return strings.Compare(a.ID, b.ID) })
	p.Fragments = append(p.Fragments, d.toastFragmentLocked())

	d.dirty = nil
	d.toastsDirty = false
	return p
}

func (d *Document) expireLocked() {
	now := d.now()
	for sev, t := range d.toasts {
		if !now.Before(t.ExpiresAt) {
			delete(d.toasts, sev)
			d.toastsDirty = true
		}
	}
}

func (d *Document) toastsLocked() []present.Toast {
	out := make([]present.Toast, 0, len(d.toasts))
	for _, sev := range severityOrder {
		if t, ok := d.toasts[sev]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (d *Document) toastFragmentLocked() Fragment {
	var b strings.Builder
	_ = present.ToastStack(d.toastsLocked(), d.now()).Render(&b)
	return Fragment{ID: strings.TrimPrefix(ToastRegion, "#"), HTML: b.String()}
}

func validSelector(sel string) bool {
	if len(sel) < 2 || sel[0] != '#' {
		return false
	}
	return !strings.ContainsAny(sel[1:], " .>[]:#,")
}

// Fragment is the new inner HTML of one container.
type Fragment struct {
	ID   string
	HTML string
}

type Trigger struct {
	Name    string
	Payload any
}

// Patch is one response worth of DOM changes.
type Patch struct {
	Fragments []Fragment
	Triggers  []Trigger
}

func (p Patch) Empty() bool {
	return len(p.Fragments) == 0 && len(p.Triggers) == 0
}

// Fragment returns the fragment for a container id, if present.
func (p Patch) Fragment(id string) (Fragment, bool) {
	id = strings.TrimPrefix(id, "#")
	for _, f := range p.Fragments {
		if f.ID == id {
			return f, true
		}
	}
	return Fragment{}, false
}

// Render writes every fragment as an out-of-band swap.
func (p Patch) Render(w io.Writer) error {
	for _, f := range p.Fragments {
		if _, err := io.WriteString(w, `<div id="`+present.Escape(f.ID)+`" hx-swap-oob="innerHTML">`+f.HTML+"</div>\n"); err != nil {
			return err
		}
	}
	return nil
}

// TriggerHeader encodes the triggers for the HX-Trigger response header.
// It returns "" when there are none.
func (p Patch) TriggerHeader() (string, error) {
	if len(p.Triggers) == 0 {
		return "", nil
	}
	m := make(map[string]any, len(p.Triggers))
	for _, t := range p.Triggers {
		m[t.Name] = t.Payload
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
