package auth

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/mrlokans/shelfront/internal/config"
	"github.com/mrlokans/shelfront/internal/shell"
)

// SessionKeyVisitor holds the visitor's stable id. Pages are owned by it.
const SessionKeyVisitor = "visitor_id"

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a configured session manager. The sessions table
// must already exist; database.NewDatabase migrates it.
func NewSessionManager(sqlDB *sql.DB, cfg config.Session) (*SessionManager, error) {
	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	sm.Lifetime = cfg.Lifetime
	sm.IdleTimeout = cfg.Lifetime / 2

	sm.Cookie.Name = "shelfront_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	sm.Cookie.Persist = true

	return &SessionManager{SessionManager: sm}, nil
}

// VisitorID returns the visitor's id, assigning one on first use.
func (sm *SessionManager) VisitorID(ctx context.Context) (string, error) {
	if id := sm.GetString(ctx, SessionKeyVisitor); id != "" {
		return id, nil
	}
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	sm.Put(ctx, SessionKeyVisitor, id)
	return id, nil
}

// Storage exposes the session as the shell's per-visitor storage. Values
// are saved with the response of the request that carries ctx.
func (sm *SessionManager) Storage() shell.Storage {
	return sessionStorage{sm: sm}
}

type sessionStorage struct {
	sm *SessionManager
}

func (s sessionStorage) GetString(ctx context.Context, key string) string {
	return s.sm.SessionManager.GetString(ctx, key)
}

func (s sessionStorage) PutString(ctx context.Context, key, value string) {
	s.sm.Put(ctx, key, value)
}

func (s sessionStorage) PutInt(ctx context.Context, key string, value int) {
	s.sm.Put(ctx, key, value)
}

func (s sessionStorage) PopInt(ctx context.Context, key string) (int, bool) {
	if !s.sm.Exists(ctx, key) {
		return 0, false
	}
	return s.sm.SessionManager.PopInt(ctx, key), true
}
