package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskforge/taskforge/internal/api/shared"
	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/platform/logger"
	"github.com/taskforge/taskforge/internal/store"
	"github.com/taskforge/taskforge/internal/tasking"
)

// WorkerHandler handles worker registry requests.
type WorkerHandler struct {
	workers store.WorkerStore
	hooks   *tasking.LifecycleHooks
	logger  *slog.Logger
}

// NewWorkerHandler creates a WorkerHandler.
func NewWorkerHandler(
	workers store.WorkerStore,
	hooks *tasking.LifecycleHooks,
	log *slog.Logger,
) *WorkerHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for WorkerHandler")
	}

	return &WorkerHandler{
		workers: workers,
		hooks:   hooks,
		logger:  log.With(slog.String("component", "worker_handler")),
	}
}

// Heartbeat handles POST /workers/{name}/heartbeat. The first
// heartbeat registers the worker; later ones only refresh the
// timestamp.
func (h *WorkerHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := domain.ValidateWorkerName(name); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	worker, err := h.workers.Heartbeat(r.Context(), name)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, workerToResponse(worker, true))
}

// ListWorkers handles GET /workers.
func (h *WorkerHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	online, err := h.workers.OnlineWorkers(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	missing, err := h.workers.MissingWorkers(r.Context(), 0)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]WorkerResponse, 0, len(online)+len(missing))
	for _, worker := range online {
		responses = append(responses, workerToResponse(worker, true))
	}
	for _, worker := range missing {
		responses = append(responses, workerToResponse(worker, false))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// DeleteWorker handles DELETE /workers/{name}, removing a worker's
// registry row. Meant for retiring a worker that will not come back.
func (h *WorkerHandler) DeleteWorker(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	name := chi.URLParam(r, "name")
	worker, err := h.workers.GetByName(r.Context(), name)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if err := h.hooks.RunDelete(r.Context(), "worker", worker); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			http.StatusInternalServerError, "Failed to delete worker", err)
		return
	}

	if err := h.workers.Delete(r.Context(), name); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("worker removed", slog.String("worker_name", name))
	w.WriteHeader(http.StatusNoContent)
}
