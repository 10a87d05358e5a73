package auth

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Origins the page layout loads htmx and the stylesheets from.
const (
	scriptCDN = "https://unpkg.com"
	styleCDN  = "https://cdn.jsdelivr.net"
)

// SecurityHeadersMiddleware adds security headers to all responses.
// backendPublicURL, when set, is allowed as an image source so covers the
// service links to directly still load.
func SecurityHeadersMiddleware(backendPublicURL string) gin.HandlerFunc {
	imgSrc := "'self' data:"
	if origin := extractOrigin(backendPublicURL); origin != "" {
		imgSrc += " " + origin
	}

	csp := "default-src 'self'; " +
		"script-src 'self' " + scriptCDN + "; " +
		"style-src 'self' 'unsafe-inline' " + styleCDN + "; " +
		"img-src " + imgSrc + "; " +
		"font-src 'self' " + styleCDN + "; " +
		"connect-src 'self'; " +
		"frame-ancestors 'none'; " +
		"form-action 'self'"

	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", csp)
		c.Header("Permissions-Policy",
			"accelerometer=(), "+
				"camera=(), "+
				"geolocation=(), "+
				"gyroscope=(), "+
				"magnetometer=(), "+
				"microphone=(), "+
				"payment=(), "+
				"usb=()")

		c.Next()
	}
}

// extractOrigin extracts the origin (scheme + host) from a URL for CSP.
func extractOrigin(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}

	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + parsed.Host
}

// StrictTransportSecurityMiddleware adds HSTS header for HTTPS-only access.
// Only enable this when serving over HTTPS, as it will break HTTP access.
func StrictTransportSecurityMiddleware(maxAge int) gin.HandlerFunc {
	value := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains"
	return func(c *gin.Context) {
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			c.Header("Strict-Transport-Security", value)
		}
		c.Next()
	}
}
