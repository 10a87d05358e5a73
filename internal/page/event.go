package page

import (
	"strconv"
	"strings"

	"github.com/mrlokans/shelfront/internal/errors"
	"github.com/mrlokans/shelfront/internal/section"
)

// Event is one user action posted by the page's delegation root. Fields are
// filled from the acting element's data attributes and the toolbar controls.
type Event struct {
	Action string `form:"action" validate:"required,max=64"`
	ItemID string `form:"item_id" validate:"omitempty,numeric,max=19"`
	Tab    string `form:"tab" validate:"omitempty,alpha,max=32"`
	View   string `form:"view" validate:"omitempty,oneof=list grid"`

	Search string `form:"search" validate:"max=200"`
	Sort   string `form:"sort" validate:"max=32"`
	Format string `form:"format" validate:"max=16"`
	Status string `form:"status" validate:"omitempty,oneof=all unread reading read"`

	Key         string `form:"key" validate:"max=32"`
	Ctrl        bool   `form:"ctrl"`
	Meta        bool   `form:"meta"`
	InTextField bool   `form:"in_text_field"`

	Scroll   int    `form:"scroll" validate:"min=0"`
	Narrow   bool   `form:"narrow"`
	Severity string `form:"severity" validate:"omitempty,oneof=success error warning info"`
}

// Validate checks the event's shape. Whether the action exists is decided by
// the page.
func (e Event) Validate() error {
	if err := section.Validator().Struct(e); err != nil {
		return section.ValidationError("invalid event", err)
	}
	return nil
}

// Args converts the item and tab fields into manager action arguments.
func (e Event) Args() (section.Args, error) {
	args := section.Args{Tab: e.Tab}
	if e.ItemID == "" {
		return args, nil
	}
	id, err := strconv.ParseInt(e.ItemID, 10, 64)
	if err != nil {
		return args, errors.ValidationWithDetails("invalid event", map[string]string{"ItemID": "must be a number"})
	}
	args.ItemID, args.HasItem = id, true
	return args, nil
}

// Names the compatibility shim accepts for the base operations.
var legacyActions = map[string]string{
	"selectItem":      "select",
	"onItemActivate":  "activate",
	"updateItemCount": "updateCount",
}

// actionName strips a manager global name prefix ("ebookManager.toggleRead")
// and maps legacy names. A prefix naming another section's manager is an
// error: that manager does not exist on this page.
func actionName(s section.Section, action string) (string, error) {
	if global, name, ok := strings.Cut(action, "."); ok {
		if global != s.GlobalName() {
			return "", errors.ValidationWithDetails("no such manager on this page", map[string]string{"Action": global + " is not available"})
		}
		action = name
	}
	if name, ok := legacyActions[action]; ok {
		return name, nil
	}
	return action, nil
}
