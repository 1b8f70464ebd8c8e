package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/vadim/neo-content/internal/config"
	"github.com/vadim/neo-content/internal/database"
)

// ErrNoDatabase is returned by migrate when no DSN is configured
var ErrNoDatabase = errors.New("DATABASE_URL is not set")

// MigrateAction applies the embedded schema migrations
func MigrateAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Database.PostgresDSN == "" {
		return ErrNoDatabase
	}

	if err := database.ApplyMigrations(cfg.Database.PostgresDSN); err != nil {
		return err
	}

	slog.Info("migrations applied")
	return nil
}
