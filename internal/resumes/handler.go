package resumes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobmate-backend/internal/shared/server/middleware"
	"jobmate-backend/internal/shared/server/respond"
	"jobmate-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches resume routes. rg must already run RequireAuth
// and DBSession.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/", h.upload)
	rg.GET("/", h.get)
}

func (h *Handler) upload(c *gin.Context) {
	scope := middleware.ScopeFromContext(c)
	res, err := h.Svc.Upload(c.Request.Context(), scope.Session)
	if err != nil {
		h.fail(c, "resumes.upload_failed", err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) get(c *gin.Context) {
	scope := middleware.ScopeFromContext(c)
	res, err := h.Svc.Get(c.Request.Context(), scope.Session)
	if err != nil {
		h.fail(c, "resumes.get_failed", err)
		return
	}
	respond.OK(c, res)
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	telemetry.Error(msg, map[string]any{
		"request_id": middleware.RequestIDFromContext(c),
		"user_id":    middleware.UserIDFromContext(c),
		"error":      err,
	})
	respond.Error(c, http.StatusInternalServerError, "Internal Server Error")
}
