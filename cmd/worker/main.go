// Command worker runs one member of the tasking fleet: it heartbeats
// the worker registry, claims and executes tasks under advisory locks,
// dispatches due schedules, and reaps work abandoned by dead workers.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/taskforge/taskforge/internal/config"
	"github.com/taskforge/taskforge/internal/platform/logger"
	"github.com/taskforge/taskforge/internal/platform/postgres"
	"github.com/taskforge/taskforge/internal/tasking"
)

const dbPingTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logr, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("resolving hostname: %w", err)
	}
	workerName := "task-worker@" + hostname

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, logr)

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logr.Error("failed to close database", slog.String("error", err.Error()))
		}
	}()

	registry := tasking.NewRegistry()
	if err := registerTasks(registry); err != nil {
		return fmt.Errorf("registering task handlers: %w", err)
	}
	logr.Info("task handlers registered", slog.Any("tasks", registry.Names()))

	listener, err := postgres.NewListener(ctx, db,
		postgres.WakeupChannel, postgres.CancelChannel)
	if err != nil {
		return fmt.Errorf("subscribing to notifications: %w", err)
	}
	defer func() {
		if err := listener.Close(); err != nil {
			logr.Error("failed to close listener", slog.String("error", err.Error()))
		}
	}()

	tasks := postgres.NewPostgresTaskStore(db)
	workers := postgres.NewPostgresWorkerStore(db, cfg.Worker.TTL)
	schedules := postgres.NewPostgresScheduleStore(db)
	notifier := postgres.NewNotifier(db)
	locker := &lockerAdapter{locker: postgres.NewAdvisoryLocker(db)}

	dispatcher := tasking.NewDispatcher(tasks, workers, locker, notifier)
	executor := tasking.NewExecutor(tasks, registry, notifier, workerName)
	scheduler := tasking.NewScheduler(schedules, tasks, locker, notifier)

	worker := tasking.NewWorker(
		workerName,
		cfg.Worker,
		workers,
		dispatcher,
		executor,
		scheduler,
		&listenerAdapter{listener: listener},
		postgres.CancelChannel,
	)

	return worker.Run(ctx)
}

// openDatabase opens the connection pool and verifies connectivity.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The pool stays small: most of the worker's traffic is the single
	// dispatch scan plus pinned lock and listener sessions.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
