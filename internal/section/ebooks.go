package section

import (
	"context"
	"slices"

	"github.com/mrlokans/shelfront/internal/entities"
	"github.com/mrlokans/shelfront/internal/errors"
)

// EbooksManager adds read toggling, downloads and lazily loaded companion
// files to the base lifecycle. The detail pane has Information, Metadata and
// Files tabs.
type EbooksManager struct {
	*books
}

func NewEbooksManager(cfg Config, env Env) (*EbooksManager, error) {
	e := &EbooksManager{books: newBooks(Ebooks)}
	if err := e.bind(Ebooks, cfg, env, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *EbooksManager) ToggleRead(ctx context.Context, id int64) error {
	return e.books.toggleRead(ctx, id)
}

func (e *EbooksManager) Download(_ context.Context, id int64) error {
	return e.books.download(id)
}

// LoadCompanionFiles fetches the files stored next to an ebook and renders
// them into its expansion row and Files tab. A load already in flight is not
// repeated.
func (e *EbooksManager) LoadCompanionFiles(ctx context.Context, id int64) error {
	url, ok := e.cfg.Endpoints.URL(EndpointCompanionFiles, id)
	if !ok {
		return errors.Validation("companion files are not available here")
	}

	e.mu.Lock()
	if e.itemLocked(id) == nil {
		e.mu.Unlock()
		return errors.Validationf("no ebook with id %d", id)
	}
	if st := e.companions[id]; st != nil && st.loading {
		e.mu.Unlock()
		return nil
	}
	e.companions[id] = &companionState{loading: true}
	e.rerenderCompanionsLocked(id)
	e.mu.Unlock()

	payload, err := e.env.Client.Request(ctx, url, nil)
	var files []entities.CompanionFile
	if err == nil {
		err = payload.Decode("companion_files", &files)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.logger.Warn("companion files load failed", "id", id, "error", err)
	}
	e.companions[id] = &companionState{files: files, err: err}
	e.rerenderCompanionsLocked(id)
	return nil
}

func (e *EbooksManager) rerenderCompanionsLocked(id int64) {
	if e.expanded[id] {
		e.renderListLocked()
	}
	if d := e.Manager.detail; d != nil && d.Item.ID == id && d.Tab == TabFiles {
		e.renderDetailLocked()
	}
}

// resetLocked drops companion files fetched for the previous list.
func (e *EbooksManager) resetLocked() {
	clear(e.companions)
}

// reloaded refetches companion files that are on screen after a reload.
func (e *EbooksManager) reloaded(ctx context.Context) {
	if !e.cfg.Endpoints.Has(EndpointCompanionFiles) {
		return
	}

	e.mu.Lock()
	var ids []int64
	for id := range e.expanded {
		ids = append(ids, id)
	}
	if d := e.Manager.detail; d != nil && d.Tab == TabFiles && e.itemLocked(d.Item.ID) != nil && !e.expanded[d.Item.ID] {
		ids = append(ids, d.Item.ID)
	}
	e.mu.Unlock()

	slices.Sort(ids)
	for _, id := range ids {
		_ = e.LoadCompanionFiles(ctx, id)
	}
}

func (e *EbooksManager) onExpand(ctx context.Context, id int64) {
	e.mu.Lock()
	loaded := e.companions[id] != nil
	e.mu.Unlock()

	if !loaded && e.cfg.Endpoints.Has(EndpointCompanionFiles) {
		_ = e.LoadCompanionFiles(ctx, id)
	}
}

func (e *EbooksManager) onTab(ctx context.Context, d *Detail) {
	if d.Tab != TabFiles {
		return
	}
	e.mu.Lock()
	loaded := e.companions[d.Item.ID] != nil
	e.mu.Unlock()

	if !loaded && e.cfg.Endpoints.Has(EndpointCompanionFiles) {
		_ = e.LoadCompanionFiles(ctx, d.Item.ID)
	}
}

func (e *EbooksManager) Actions() map[string]Action {
	return mergeActions(e.Manager.Actions(), map[string]Action{
		"toggleRead":         withItem(e.ToggleRead),
		"download":           withItem(e.Download),
		"loadCompanionFiles": withItem(e.LoadCompanionFiles),
	})
}
