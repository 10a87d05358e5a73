package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfront/internal/auth"
	"github.com/mrlokans/shelfront/internal/database"
	"github.com/mrlokans/shelfront/internal/page"
	"github.com/mrlokans/shelfront/internal/section"
)

// PageFactory builds the options of a new page for the visitor making
// request c.
type PageFactory func(c *gin.Context, s section.Section) (page.Options, error)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Pages       *page.Registry
	NewPage     PageFactory
	Database    *database.Database
	Sessions    *auth.SessionManager
	EventLimits *auth.EventLimiter

	// CSRF protection; disabled when the key is empty.
	CSRFKey       []byte
	SecureCookies bool

	// BackendPublicURL is allowed as an image and link origin.
	BackendPublicURL string

	// Application info
	Version string
}
