package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"jobmate-backend/internal/shared/config"
	"jobmate-backend/internal/shared/telemetry"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	// PoolSize connections are kept idle between requests.
	PoolSize int
	// MaxOverflow extra connections may be opened under load; they are
	// closed on release once PoolSize idle connections already exist.
	MaxOverflow int
	// AcquireTimeout bounds how long a request waits for a connection.
	AcquireTimeout  time.Duration
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// PrePing checks a connection is alive before handing it out.
	PrePing     bool
	PingTimeout time.Duration
}

var openDB = sql.Open

// DefaultOptions returns the pool settings for long-running server processes.
func DefaultOptions() Options {
	return Options{
		PoolSize:        10,
		MaxOverflow:     20,
		AcquireTimeout:  30 * time.Second,
		ConnMaxLifetime: 1800 * time.Second,
		PrePing:         true,
		PingTimeout:     5 * time.Second,
	}
}

// DefaultToolOptions returns defaults for short-lived CLI tools.
func DefaultToolOptions() Options {
	return Options{
		PoolSize:        1,
		MaxOverflow:     0,
		AcquireTimeout:  30 * time.Second,
		ConnMaxLifetime: time.Hour,
		PrePing:         true,
		PingTimeout:     5 * time.Second,
	}
}

// OptionsFromConfig maps DB_* settings onto pool options.
func OptionsFromConfig(cfg config.Database) Options {
	return Options{
		PoolSize:        cfg.PoolSize,
		MaxOverflow:     cfg.MaxOverflow,
		AcquireTimeout:  cfg.PoolTimeout,
		ConnMaxLifetime: cfg.PoolRecycle,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		PrePing:         cfg.PrePing,
		PingTimeout:     cfg.PingTimeout,
	}
}

// Connect opens a *sql.DB using the provided DATABASE_URL and verifies connectivity.
// The returned *sql.DB should be shared and re-used by callers.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", ErrConnectionFailed, err)
	}

	applyOptions(db, opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout(opts))
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", ErrConnectionFailed, err)
	}

	logPoolStats(db, "db.init")
	return db, nil
}

func applyOptions(db *sql.DB, opts Options) {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}
	if opts.MaxOverflow < 0 {
		opts.MaxOverflow = 0
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.PoolSize + opts.MaxOverflow)
	db.SetMaxIdleConns(opts.PoolSize)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func pingTimeout(opts Options) time.Duration {
	if opts.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return opts.PingTimeout
}

func logPoolStats(db *sql.DB, label string) {
	stats := db.Stats()
	telemetry.Info(label, map[string]any{
		"open":     stats.OpenConnections,
		"in_use":   stats.InUse,
		"idle":     stats.Idle,
		"wait":     stats.WaitCount,
		"max_open": stats.MaxOpenConnections,
	})
}
