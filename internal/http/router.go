package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfront/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware(cfg.BackendPublicURL))

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFKey) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFKey, cfg.SecureCookies))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	if cfg.Sessions != nil {
		router.Use(cfg.Sessions.SessionLoadSave())
	}

	router.StaticFS("/static", staticFS())

	health := NewHealthController(cfg.Database, cfg.Pages, cfg.Version)
	pages := NewPagesController(cfg.Pages, cfg.NewPage, cfg.Sessions)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Page endpoints
	pageRoutes := router.Group("/pages/:pageID")
	if cfg.EventLimits != nil {
		pageRoutes.POST("/events", cfg.EventLimits.Middleware(), pages.Event)
	} else {
		pageRoutes.POST("/events", pages.Event)
	}
	pageRoutes.GET("/covers/:id", pages.Cover)

	// UI routes
	router.GET("/", pages.Index)
	router.GET("/:section", pages.Show)

	return router
}
