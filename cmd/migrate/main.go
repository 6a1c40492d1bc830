package main

// Run database migrations:
//   go run ./cmd/migrate        apply pending migrations
//   go run ./cmd/migrate down   roll back the latest migration

import (
	"context"
	"fmt"
	"os"

	"jobmate-backend/internal/shared/config"
	"jobmate-backend/internal/shared/storage/db"
	"jobmate-backend/internal/shared/telemetry"
)

func main() {
	cfg, err := config.LoadDatabase()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	telemetry.Init(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.DefaultToolOptions())
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	switch direction {
	case "up":
		err = db.RunMigrations(ctx, sqlDB)
	case "down":
		err = db.RollbackMigration(ctx, sqlDB)
	default:
		err = fmt.Errorf("unknown direction %q (want up or down)", direction)
	}
	if err != nil {
		telemetry.Error("migrate.failed", map[string]any{"direction": direction, "error": err})
		sqlDB.Close()
		os.Exit(1)
	}
}
