package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"jobmate-backend/internal/services/health"
	"jobmate-backend/internal/shared/config"
	"jobmate-backend/internal/shared/metrics"
	"jobmate-backend/internal/shared/server/middleware"
	"jobmate-backend/internal/shared/server/respond"
)

// RootMessage is the greeting served on GET /.
const RootMessage = "Hello from jobmate-fastapi!"

// RouteRegistrar attaches a feature's routes to a group that already
// requires authentication and a database session.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps lists what NewRouter wires together.
type RouterDeps struct {
	Config   config.Config
	Verifier middleware.TokenVerifier
	Sessions middleware.SessionAcquirer
	Health   *health.Service
	Metrics  *metrics.Registry
	Resumes  RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	var observeRequest middleware.RequestObserver
	var observeAuth middleware.AuthObserver
	if deps.Metrics != nil {
		observeRequest = deps.Metrics.ObserveRequest
		observeAuth = deps.Metrics.ObserveAuth
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(observeRequest),
		middleware.Recovery(),
		cors.New(corsConfig(deps.Config.CORSAllowOrigin)),
	)

	r.GET("/", func(c *gin.Context) {
		respond.OK(c, respond.Message{Message: RootMessage})
	})
	r.GET("/health", func(c *gin.Context) {
		if deps.Health != nil {
			if err := deps.Health.Check(c.Request.Context()); err != nil {
				respond.Error(c, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		respond.OK(c, gin.H{"ok": true})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", deps.Metrics.Handler())
	}

	// Verification runs before a connection is checked out, so rejected
	// requests never hold a pool slot.
	resumes := r.Group("/resumes",
		middleware.RequireAuth(deps.Verifier, observeAuth),
		middleware.DBSession(deps.Sessions),
	)
	if deps.Resumes != nil {
		deps.Resumes.RegisterRoutes(resumes)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8000"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
