package shell

import (
	"context"
	"strings"

	"github.com/mrlokans/shelfront/internal/section"
)

// Key is a keydown reported by the browser.
type Key struct {
	Key         string
	Ctrl        bool
	Meta        bool
	InTextField bool
	ScrollTop   int
}

func (k Key) command() bool {
	return k.Ctrl || k.Meta
}

// HandleKey runs the shortcut bound to k. Keys typed into text fields are
// ignored. Enter activates the selected row and Escape leaves the
// full-width detail view. It reports whether k was bound.
func (s *Shell) HandleKey(ctx context.Context, k Key) (bool, error) {
	if k.InTextField {
		return false, nil
	}

	if k.command() {
		switch strings.ToLower(k.Key) {
		case "f":
			s.surface.Trigger("focusSearch", map[string]string{"selector": SearchInput})
			return true, nil
		case "r":
			s.Refresh(ctx, k.ScrollTop)
			return true, nil
		case "1":
			s.SetView(ctx, section.ViewList)
			return true, nil
		case "2":
			s.SetView(ctx, section.ViewGrid)
			return true, nil
		}
		return false, nil
	}

	switch k.Key {
	case "ArrowDown":
		return true, s.moveSelection(ctx, 1)
	case "ArrowUp":
		return true, s.moveSelection(ctx, -1)
	case "Enter":
		id, ok := s.m.SelectedID()
		if !ok {
			return false, nil
		}
		return true, s.m.OnItemActivate(ctx, id)
	case "Escape":
		s.m.CloseDetail()
		return true, nil
	}
	return false, nil
}

func (s *Shell) moveSelection(ctx context.Context, delta int) error {
	before, hadSelection := s.m.SelectedID()
	if err := s.m.SelectAdjacent(ctx, delta); err != nil {
		return err
	}
	if after, ok := s.m.SelectedID(); ok && (!hadSelection || after != before) {
		s.ScrollToSelected()
	}
	return nil
}
