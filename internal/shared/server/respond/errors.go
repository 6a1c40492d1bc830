package respond

import (
	"github.com/gin-gonic/gin"

	"jobmate-backend/internal/shared/telemetry"
)

// ErrorResponse is the body of every error reply. Detail never carries
// stack traces or internal identifiers.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Error logs the failure and aborts the request with {"detail": detail}.
func Error(c *gin.Context, status int, detail string) {
	fields := map[string]any{
		"status":     status,
		"detail":     detail,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{Detail: detail})
}
