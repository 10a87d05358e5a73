package page

import (
	"context"

	"github.com/mrlokans/shelfront/internal/section"
)

// The functions below keep the old page-level helpers working. Each one
// forwards to the page's active manager or shell.

// SelectItem selects an item on the page's manager.
func SelectItem(ctx context.Context, p *Page, id int64) error {
	return p.Manager().Select(ctx, id)
}

// OnItemActivate activates an item on the page's manager.
func OnItemActivate(ctx context.Context, p *Page, id int64) error {
	return p.Manager().OnItemActivate(ctx, id)
}

// UpdateItemCount rewrites the count badge of the page's manager.
func UpdateItemCount(p *Page) {
	p.Manager().UpdateItemCount()
}

// ToggleView flips between list and grid view and returns the new mode.
func ToggleView(ctx context.Context, p *Page) section.ViewMode {
	return p.Shell.ToggleView(ctx)
}
