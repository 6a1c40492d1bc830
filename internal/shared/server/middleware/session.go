package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobmate-backend/internal/shared/auth"
	"jobmate-backend/internal/shared/server/respond"
	"jobmate-backend/internal/shared/storage/db"
	"jobmate-backend/internal/shared/telemetry"
)

const (
	sessionKey   = "dbSession"
	sessionIDKey = "sessionId"
)

// SessionAcquirer is implemented by *db.Provider.
type SessionAcquirer interface {
	Acquire(ctx context.Context) (*db.Session, error)
}

// DBSession checks out a session for the rest of the chain and releases it
// when the chain returns, whether it finished, aborted or panicked.
func DBSession(p SessionAcquirer) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := p.Acquire(c.Request.Context())
		if err != nil {
			telemetry.Error("db.session_acquire_failed", map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      err,
			})
			status := http.StatusInternalServerError
			if errors.Is(err, db.ErrPoolExhausted) {
				status = http.StatusServiceUnavailable
			}
			respond.Error(c, status, "Database unavailable")
			return
		}
		defer func() {
			if err := s.Close(); err != nil {
				telemetry.Warn("db.session_release_failed", map[string]any{
					"session_id": s.ID,
					"error":      err,
				})
			}
		}()

		c.Set(sessionKey, s)
		c.Set(sessionIDKey, s.ID)
		c.Next()
	}
}

// Scope is what an authenticated, database-backed handler works with.
type Scope struct {
	Claims  auth.Claims
	Session *db.Session
}

// ScopeFromContext collects the claims and session resolved by RequireAuth
// and DBSession.
func ScopeFromContext(c *gin.Context) Scope {
	val, _ := c.Get(sessionKey)
	s, _ := val.(*db.Session)
	return Scope{Claims: ClaimsFromContext(c), Session: s}
}
