package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jobmate-backend/internal/shared/config"
	"jobmate-backend/internal/shared/storage/db"
	"jobmate-backend/internal/shared/telemetry"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error inspecting database: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		databaseURL string
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:           "inspectdb",
		Short:         "List the tables and columns of the configured database",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := resolveURL(databaseURL)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return inspect(ctx, out, url)
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "connection string; defaults to DATABASE_URL from the environment")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall deadline for the inspection")
	return cmd
}

func resolveURL(flagValue string) (string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return config.NormalizeDatabaseURL(flagValue), nil
	}
	cfg, err := config.LoadDatabase()
	if err != nil {
		return "", err
	}
	telemetry.Init(cfg.LogLevel, cfg.LogFormat)
	return cfg.DatabaseURL, nil
}

func inspect(ctx context.Context, out io.Writer, url string) error {
	opts := db.DefaultToolOptions()
	sqlDB, err := db.Connect(ctx, url, opts)
	if err != nil {
		return err
	}
	sessions := db.NewProvider(sqlDB, opts)
	defer sessions.Close()

	return sessions.WithSession(ctx, func(ctx context.Context, s *db.Session) error {
		tables, err := db.InspectSchema(ctx, s)
		if err != nil {
			return err
		}
		db.WriteSchema(out, tables)
		return nil
	})
}
