package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// BypassEnvironment is the ENVIRONMENT value that disables token verification.
const BypassEnvironment = "local_dev"

// ErrMissingRequiredValue is returned when a required setting is absent.
var ErrMissingRequiredValue = errors.New("missing required configuration value")

// Config holds application configuration.
type Config struct {
	Port            string   `env:"PORT" envDefault:"8000"`
	Environment     string   `env:"ENVIRONMENT"`
	Auth0Domain     string   `env:"AUTH0_DOMAIN" validate:"required_unless=Environment local_dev"`
	Auth0Audience   string   `env:"AUTH0_AUDIENCE" validate:"required_unless=Environment local_dev"`
	DatabaseURL     string   `env:"DATABASE_URL" validate:"required"`
	CORSAllowOrigin []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	LogLevel        string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string   `env:"LOG_FORMAT" envDefault:"json"`

	JWKSMinRefresh time.Duration `env:"JWKS_CACHE_MIN_REFRESH" envDefault:"30s"`

	Database Database `envPrefix:"DB_"`
}

// Database holds connection pool settings.
type Database struct {
	PoolSize        int           `env:"POOL_SIZE" envDefault:"10" validate:"gte=1"`
	MaxOverflow     int           `env:"MAX_OVERFLOW" envDefault:"20" validate:"gte=0"`
	PoolTimeout     time.Duration `env:"POOL_TIMEOUT" envDefault:"30s"`
	PoolRecycle     time.Duration `env:"POOL_RECYCLE" envDefault:"1800s"`
	ConnMaxIdleTime time.Duration `env:"CONN_MAX_IDLE_TIME"`
	PrePing         bool          `env:"PRE_PING" envDefault:"true"`
	PingTimeout     time.Duration `env:"PING_TIMEOUT" envDefault:"5s"`
}

// Load reads .env files and the process environment, then validates the result.
// Values already present in the environment win over .env files.
func Load() (Config, error) {
	loadEnvFiles(".env", ".env.local")

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return finalize(cfg)
}

// DatabaseOnly is the subset of settings tools that only touch the database need.
type DatabaseOnly struct {
	DatabaseURL string   `env:"DATABASE_URL" validate:"required"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string   `env:"LOG_FORMAT" envDefault:"json"`
	Database    Database `envPrefix:"DB_"`
}

// LoadDatabase reads the same sources as Load but requires only DATABASE_URL.
func LoadDatabase() (DatabaseOnly, error) {
	loadEnvFiles(".env", ".env.local")

	cfg, err := env.ParseAs[DatabaseOnly]()
	if err != nil {
		return DatabaseOnly{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.DatabaseURL = NormalizeDatabaseURL(cfg.DatabaseURL)
	if err := validate(cfg); err != nil {
		return DatabaseOnly{}, err
	}
	return cfg, nil
}

func finalize(cfg Config) (Config, error) {
	cfg.Environment = strings.TrimSpace(cfg.Environment)
	cfg.Auth0Domain = normalizeDomain(cfg.Auth0Domain)
	cfg.Auth0Audience = strings.TrimSpace(cfg.Auth0Audience)
	cfg.DatabaseURL = NormalizeDatabaseURL(cfg.DatabaseURL)
	cfg.CORSAllowOrigin = splitAndTrim(cfg.CORSAllowOrigin)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg any) error {
	v := validator.New()
	err := v.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var missing []string
	var other []string
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_unless":
			missing = append(missing, envName(fe.StructField()))
		default:
			other = append(other, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequiredValue, strings.Join(missing, ", "))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(other, "; "))
}

// BypassAuth reports whether token verification is disabled for local development.
func (c Config) BypassAuth() bool {
	return c.Environment == BypassEnvironment
}

// Issuer returns the expected token issuer URL.
func (c Config) Issuer() string {
	return "https://" + c.Auth0Domain + "/"
}

// JWKSURL returns the identity provider's key set endpoint.
func (c Config) JWKSURL() string {
	return "https://" + c.Auth0Domain + "/.well-known/jwks.json"
}

// NormalizeDatabaseURL strips driver-qualified schemes so the URL
// can be handed to pgx, e.g. postgresql+asyncpg:// becomes postgresql://.
func NormalizeDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	if base, _, found := strings.Cut(scheme, "+"); found {
		scheme = base
	}
	return scheme + "://" + rest
}

func normalizeDomain(raw string) string {
	d := strings.TrimSpace(raw)
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	return strings.TrimSuffix(d, "/")
}

func envName(field string) string {
	switch field {
	case "Auth0Domain":
		return "AUTH0_DOMAIN"
	case "Auth0Audience":
		return "AUTH0_AUDIENCE"
	case "DatabaseURL":
		return "DATABASE_URL"
	default:
		return field
	}
}

func splitAndTrim(raw []string) []string {
	var out []string
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// loadEnvFiles is best effort; missing files are ignored.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		_ = godotenv.Load(path)
	}
}
