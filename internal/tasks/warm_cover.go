package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
)

// WarmCoverTask fetches one item's cover into the cover cache ahead of the
// browser asking for it.
type WarmCoverTask struct {
	PageID string `json:"page_id"`
	ItemID int64  `json:"item_id"`
}

// Config returns the queue configuration for cover warm-up tasks.
func (t WarmCoverTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "warm_cover",
		MaxAttempts: 2,
		Backoff:     10 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   time.Hour,
			OnlyFailed: true,
		},
	}
}

// CoverWarmer fetches the cover of an item shown on a live page. It returns
// nil when the page or the item is gone.
type CoverWarmer interface {
	WarmCover(ctx context.Context, pageID string, itemID int64) error
}

// WarmCoverProcessor creates a processor function for WarmCoverTask.
func WarmCoverProcessor(warmer CoverWarmer) backlite.QueueProcessor[WarmCoverTask] {
	return func(ctx context.Context, task WarmCoverTask) error {
		if warmer == nil {
			return fmt.Errorf("cover warmer not configured")
		}
		if err := warmer.WarmCover(ctx, task.PageID, task.ItemID); err != nil {
			return fmt.Errorf("warm cover %d on page %s: %w", task.ItemID, task.PageID, err)
		}
		return nil
	}
}

// NewWarmCoverQueue creates a backlite queue for cover warm-up tasks.
func NewWarmCoverQueue(warmer CoverWarmer) backlite.Queue {
	return backlite.NewQueue(WarmCoverProcessor(warmer))
}

// WarmCovers enqueues a warm-up for each item of a page.
func (c *Client) WarmCovers(ctx context.Context, pageID string, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	batch := make([]backlite.Task, 0, len(itemIDs))
	for _, id := range itemIDs {
		batch = append(batch, WarmCoverTask{PageID: pageID, ItemID: id})
	}
	if _, err := c.Add(batch...).Ctx(ctx).Save(); err != nil {
		return fmt.Errorf("enqueue cover warm-up: %w", err)
	}
	return nil
}
