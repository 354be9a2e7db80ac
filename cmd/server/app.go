package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/taskforge/taskforge/internal/api"
	apimiddleware "github.com/taskforge/taskforge/internal/api/middleware"
	"github.com/taskforge/taskforge/internal/config"
	"github.com/taskforge/taskforge/internal/platform/postgres"
	"github.com/taskforge/taskforge/internal/store"
	"github.com/taskforge/taskforge/internal/tasking"
)

const shutdownTimeout = 10 * time.Second

// application bundles the control API server's dependencies.
type application struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB

	tasks   store.TaskStore
	workers store.WorkerStore
	groups  store.TaskGroupStore
	roles   store.RoleStore

	notifier *postgres.Notifier
	hooks    *tasking.LifecycleHooks
}

func newApplication(cfg *config.Config, log *slog.Logger, db *sql.DB) *application {
	return &application{
		cfg:      cfg,
		logger:   log,
		db:       db,
		tasks:    postgres.NewPostgresTaskStore(db),
		workers:  postgres.NewPostgresWorkerStore(db, cfg.Worker.TTL),
		groups:   postgres.NewPostgresTaskGroupStore(db),
		roles:    postgres.NewPostgresRoleStore(db),
		notifier: postgres.NewNotifier(db),
		hooks:    tasking.NewLifecycleHooks(),
	}
}

// router assembles the control API routes.
func (app *application) router() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(apimiddleware.Trace)

	taskHandler := api.NewTaskHandler(app.tasks, app.notifier, app.hooks, app.logger)
	workerHandler := api.NewWorkerHandler(app.workers, app.hooks, app.logger)
	groupHandler := api.NewTaskGroupHandler(app.groups, app.logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/tasks", taskHandler.CreateTask)
		r.Get("/tasks", taskHandler.ListTasks)
		r.Get("/tasks/{id}", taskHandler.GetTask)
		r.Post("/tasks/{id}/cancel", taskHandler.CancelTask)

		r.Post("/workers/{name}/heartbeat", workerHandler.Heartbeat)
		r.Get("/workers", workerHandler.ListWorkers)
		r.Delete("/workers/{name}", workerHandler.DeleteWorker)

		r.Post("/task-groups", groupHandler.CreateTaskGroup)
		r.Get("/task-groups/{id}", groupHandler.GetTaskGroup)
		r.Post("/task-groups/{id}/finish", groupHandler.FinishTaskGroup)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := app.db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	return r
}

// serve runs the HTTP server until SIGINT/SIGTERM, then drains it.
func (app *application) serve() error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Server.Port),
		Handler:           app.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("control API listening", slog.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		app.logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
