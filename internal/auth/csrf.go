package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"golang.org/x/crypto/hkdf"
)

// CSRFTokenHeader is the header htmx sends the token in.
const CSRFTokenHeader = "X-CSRF-Token"

const csrfKeyInfo = "shelfront csrf v1"

// DeriveCSRFKey expands the session secret into a 32-byte CSRF key. Hex
// secrets are decoded first. An empty secret yields a random key, which
// invalidates tokens on restart.
func DeriveCSRFKey(secret string) ([]byte, error) {
	ikm := []byte(secret)
	if decoded, err := hex.DecodeString(secret); err == nil && len(decoded) > 0 {
		ikm = decoded
	}
	if len(ikm) == 0 {
		ikm = make([]byte, 32)
		if _, err := rand.Read(ikm); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, []byte(csrfKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive csrf key: %w", err)
	}
	return key, nil
}

// CSRFMiddleware creates a Gin middleware for CSRF protection. Safe methods
// pass through and receive a token for the page layout.
func CSRFMiddleware(key []byte, secure bool) gin.HandlerFunc {
	opts := []csrf.Option{
		csrf.Secure(secure),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.Path("/"),
		csrf.RequestHeader(CSRFTokenHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	}
	csrfProtect := csrf.Protect(key, opts...)

	return func(c *gin.Context) {
		r := c.Request
		if !secure {
			// gorilla/csrf assumes TLS and checks the Referer otherwise.
			r = csrf.PlaintextHTTPRequest(r)
		}
		passed := false
		handler := csrfProtect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Set("csrf_token", csrf.Token(r))
			c.Request = r
			c.Next()
		}))

		handler.ServeHTTP(c.Writer, r)
		if !passed {
			c.Abort()
		}
	}
}

// csrfErrorHandler answers htmx requests with a reload hint and everything
// else with a plain 403.
func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusForbidden)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"CSRF token invalid or missing"}`))
		return
	}
	http.Error(w, "Session expired. Reload the page and try again.", http.StatusForbidden)
}

// GetCSRFToken retrieves the CSRF token from the Gin context.
func GetCSRFToken(c *gin.Context) string {
	if token, exists := c.Get("csrf_token"); exists {
		if t, ok := token.(string); ok {
			return t
		}
	}
	return ""
}
