package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"jobmate-backend/internal/shared/auth"
	"jobmate-backend/internal/shared/server/respond"
	"jobmate-backend/internal/shared/telemetry"
)

const (
	bearerScheme = "bearer"
	userIDKey    = "userId"
	claimsKey    = "claims"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
)

// TokenVerifier is implemented by *auth.Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (auth.Claims, error)
	Bypassed() bool
}

// AuthObserver receives the outcome label of each verification.
type AuthObserver func(outcome string)

// RequireAuth rejects the request with 401 unless it carries a bearer token
// the verifier accepts. On success the claims are stored for ScopeFromContext.
func RequireAuth(v TokenVerifier, observe AuthObserver) gin.HandlerFunc {
	if observe == nil {
		observe = func(string) {}
	}
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			observe("missing")
			c.Header("WWW-Authenticate", "Bearer")
			if errors.Is(err, ErrMissingAuthHeader) {
				respond.Error(c, http.StatusUnauthorized, "Not authenticated")
			} else {
				respond.Error(c, http.StatusUnauthorized, "Invalid authentication credentials")
			}
			return
		}

		claims, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			observe(outcomeOf(err))
			logRejection(c, err)
			c.Header("WWW-Authenticate", "Bearer")
			respond.Error(c, http.StatusUnauthorized, auth.DetailFor(err))
			return
		}

		if v.Bypassed() {
			observe("bypass")
		} else {
			observe("ok")
		}
		c.Set(claimsKey, claims)
		c.Set(userIDKey, claims.Subject())
		c.Next()
	}
}

// UserIDFromContext fetches the subject set by RequireAuth.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// ClaimsFromContext fetches the claims set by RequireAuth.
func ClaimsFromContext(c *gin.Context) auth.Claims {
	if c == nil {
		return nil
	}
	val, _ := c.Get(claimsKey)
	claims, _ := val.(auth.Claims)
	return claims
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingAuthHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", ErrInvalidAuthFormat
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidAuthFormat
	}
	return token, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpired):
		return "expired"
	case errors.Is(err, auth.ErrInvalid):
		return "invalid"
	default:
		return "unknown"
	}
}

func logRejection(c *gin.Context, err error) {
	fields := map[string]any{
		"request_id": RequestIDFromContext(c),
		"path":       c.Request.URL.Path,
		"error":      err,
	}
	if errors.Is(err, auth.ErrExpired) || errors.Is(err, auth.ErrInvalid) {
		telemetry.Warn("auth.rejected", fields)
		return
	}
	telemetry.Error("auth.unknown_error", fields)
}
