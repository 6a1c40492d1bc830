package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobmate-backend/internal/resumes"
	"jobmate-backend/internal/services/health"
	"jobmate-backend/internal/shared/auth"
	"jobmate-backend/internal/shared/config"
	"jobmate-backend/internal/shared/metrics"
	"jobmate-backend/internal/shared/server"
	"jobmate-backend/internal/shared/storage/db"
	"jobmate-backend/internal/shared/telemetry"
)

// App holds process-wide dependencies. Each is created once at startup and
// handed to request handlers explicitly.
type App struct {
	Config         config.Config
	Router         *gin.Engine
	Sessions       *db.Provider
	Verifier       *auth.Verifier
	Metrics        *metrics.Registry
	Health         *health.Service
	ResumesService *resumes.Service
	ResumesHandler *resumes.Handler
}

// Deps overrides collaborators New would otherwise build from Config.
type Deps struct {
	DB        *sql.DB
	DBOptions db.Options
	// Keys replaces the JWKS cache built from AUTH0_DOMAIN.
	Keys auth.KeyResolver
	// HTTPClient is used for JWKS fetches when Keys is nil.
	HTTPClient *http.Client
}

// Build connects to the database and wires the application.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	opts := db.OptionsFromConfig(cfg.Database)
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		return nil, err
	}

	app, err := New(cfg, Deps{DB: sqlDB, DBOptions: opts})
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return app, nil
}

// New wires the application around an open pool.
func New(cfg config.Config, deps Deps) (*App, error) {
	if deps.DB == nil {
		return nil, errors.New("bootstrap: database pool is required")
	}

	verifier, err := buildVerifier(cfg, deps)
	if err != nil {
		return nil, err
	}

	sessions := db.NewProvider(deps.DB, deps.DBOptions)
	reg := metrics.New()
	reg.RegisterPool(deps.DB, sessions.Active)
	healthSvc := health.NewService(sessions)
	resumeSvc := resumes.NewService()
	resumeHandler := resumes.NewHandler(resumeSvc)

	app := &App{
		Config:         cfg,
		Sessions:       sessions,
		Verifier:       verifier,
		Metrics:        reg,
		Health:         healthSvc,
		ResumesService: resumeSvc,
		ResumesHandler: resumeHandler,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Verifier: verifier,
		Sessions: sessions,
		Health:   healthSvc,
		Metrics:  reg,
		Resumes:  resumeHandler,
	})
	return app, nil
}

// Close disposes of the connection pool.
func (a *App) Close() error {
	if a == nil || a.Sessions == nil {
		return nil
	}
	return a.Sessions.Close()
}

func buildVerifier(cfg config.Config, deps Deps) (*auth.Verifier, error) {
	if cfg.BypassAuth() {
		telemetry.Warn("auth.bypass_enabled", map[string]any{
			"environment": cfg.Environment,
			"note":        "bearer tokens are not verified",
		})
		return auth.NewVerifier(nil, auth.Options{Bypass: true})
	}

	keys := deps.Keys
	if keys == nil {
		keys = auth.NewKeySet(cfg.JWKSURL(),
			auth.WithHTTPClient(deps.HTTPClient),
			auth.WithMinRefresh(cfg.JWKSMinRefresh),
		)
	}
	return auth.NewVerifier(keys, auth.Options{
		Issuer:   cfg.Issuer(),
		Audience: cfg.Auth0Audience,
	})
}
