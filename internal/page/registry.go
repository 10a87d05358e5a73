package page

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/mrlokans/shelfront/internal/errors"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Registry holds the live pages of every visitor.
type Registry struct {
	mu     sync.RWMutex
	pages  map[string]*Page
	now    func() time.Time
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		pages:  make(map[string]*Page),
		now:    time.Now,
		logger: logger,
	}
}

// Create builds and registers a page for owner and renders its initial
// state.
func (r *Registry) Create(ctx context.Context, owner string, opts Options) (*Page, error) {
	id, err := gonanoid.Generate(idAlphabet, 16)
	if err != nil {
		return nil, err
	}
	p, err := newPage("pg-"+id, owner, opts, r.now())
	if err != nil {
		return nil, err
	}
	p.Start(ctx)

	r.mu.Lock()
	r.pages[p.ID] = p
	r.mu.Unlock()

	r.logger.Debug("page created", "page", p.ID, "section", string(p.Section))
	return p, nil
}

// Get returns page id if owner opened it. Pages of other visitors are
// reported as missing.
func (r *Registry) Get(id, owner string) (*Page, error) {
	r.mu.RLock()
	p, ok := r.pages[id]
	r.mu.RUnlock()

	if !ok || p.Owner != owner {
		return nil, errors.NotFoundf("page %s not found", id)
	}
	return p, nil
}

// Len is the number of live pages.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}

// Sweep drops pages idle for longer than maxIdle and returns how many were
// dropped.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*Page
	for id, p := range r.pages {
		if p.LastSeen().Before(cutoff) {
			stale = append(stale, p)
			delete(r.pages, id)
		}
	}
	r.mu.Unlock()

	for _, p := range stale {
		p.Close()
	}
	return len(stale)
}

// WarmCover fetches one cover of a live page into the cover cache. Pages
// that expired meanwhile and items without covers are skipped.
func (r *Registry) WarmCover(ctx context.Context, pageID string, itemID int64) error {
	r.mu.RLock()
	p, ok := r.pages[pageID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	if _, err := p.Cover(ctx, itemID); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// Close stops every page.
func (r *Registry) Close() {
	r.mu.Lock()
	pages := r.pages
	r.pages = make(map[string]*Page)
	r.mu.Unlock()

	for _, p := range pages {
		p.Close()
	}
}
