package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"jobmate-backend/internal/shared/telemetry"
)

// RequestObserver receives one call per completed request.
type RequestObserver func(method, route string, status int)

// Logging emits a structured log per request and feeds observe, if set.
func Logging(observe RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if userID := UserIDFromContext(c); userID != "" {
			fields["user_id"] = userID
		}
		if sessionID := c.GetString(sessionIDKey); sessionID != "" {
			fields["session_id"] = sessionID
		}
		telemetry.Info("request.complete", fields)

		if observe != nil {
			observe(c.Request.Method, c.FullPath(), status)
		}
	}
}
