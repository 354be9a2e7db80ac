// Command server runs the control API: task dispatch, inspection and
// cancellation, the worker registry, and task groups. On startup it
// applies schema migrations and reconciles the locked role set.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/taskforge/taskforge/internal/config"
	"github.com/taskforge/taskforge/internal/platform/logger"
	"github.com/taskforge/taskforge/internal/roles"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logr, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logr.Error("failed to close database", slog.String("error", err.Error()))
		}
	}()

	if err := migrateDatabase(ctx, db); err != nil {
		return err
	}
	logr.Info("schema migrations applied")

	app := newApplication(cfg, logr, db)

	if err := roles.Reconcile(ctx, db, app.roles, roles.Defaults()); err != nil {
		return fmt.Errorf("reconciling roles: %w", err)
	}

	return app.serve()
}
