// Package auth holds the request-level protections of the frontend: visitor
// sessions (scs over SQLite), CSRF protection for the event endpoint,
// security headers and per-visitor event rate limiting.
//
// Visitors are anonymous. The library service authenticates them through its
// own cookies, which the frontend forwards; this package only identifies a
// browser well enough to own its pages and remember its view preferences.
//
//	sessions, _ := auth.NewSessionManager(sqlDB, cfg.Session)
//	router.Use(auth.SecurityHeadersMiddleware(cfg.Backend.PublicURL))
//	router.Use(auth.CSRFMiddleware(key, cfg.Session.SecureCookies))
//	router.Use(sessions.SessionLoadSave())
package auth
