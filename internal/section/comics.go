package section

import "context"

// ComicsManager has the ebooks shape with comic fields (issue number, page
// count) and no companion files.
type ComicsManager struct {
	*books
}

func NewComicsManager(cfg Config, env Env) (*ComicsManager, error) {
	c := &ComicsManager{books: newBooks(Comics)}
	if err := c.bind(Comics, cfg, env, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ComicsManager) ToggleRead(ctx context.Context, id int64) error {
	return c.books.toggleRead(ctx, id)
}

func (c *ComicsManager) Download(_ context.Context, id int64) error {
	return c.books.download(id)
}

func (c *ComicsManager) Actions() map[string]Action {
	return mergeActions(c.Manager.Actions(), map[string]Action{
		"toggleRead": withItem(c.ToggleRead),
		"download":   withItem(c.Download),
	})
}
