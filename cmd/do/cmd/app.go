package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/templui/pawcare/internal/app"
	"github.com/templui/pawcare/internal/config"
	"github.com/templui/pawcare/internal/db"
	"github.com/templui/pawcare/internal/logger"
)

// withApp boots the full application for commands that go through services.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN, cfg.AppEnv)
	defer logger.Flush()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	return fn(ctx, a)
}

// withDB opens the database without migrating it.
func withDB(fn func(database *sqlx.DB, driver string) error) error {
	cfg := config.Load()
	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN, cfg.AppEnv)
	defer logger.Flush()

	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(database); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	return fn(database, cfg.DBDriver)
}
