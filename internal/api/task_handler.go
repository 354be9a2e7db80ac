// Package api provides HTTP handlers for the control API.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/api/shared"
	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/platform/logger"
	"github.com/taskforge/taskforge/internal/store"
	"github.com/taskforge/taskforge/internal/tasking"
)

// TaskHandler handles task dispatch, inspection and cancellation.
type TaskHandler struct {
	tasks  store.TaskStore
	notify tasking.WakeupNotifier
	hooks  *tasking.LifecycleHooks
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(
	tasks store.TaskStore,
	notify tasking.WakeupNotifier,
	hooks *tasking.LifecycleHooks,
	log *slog.Logger,
) *TaskHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		tasks:  tasks,
		notify: notify,
		hooks:  hooks,
		logger: log.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /tasks. The created task starts waiting; the
// fleet is notified so a sleeping worker picks it up promptly.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	task, err := domain.NewTask(req.Name, req.Args, req.Kwargs, req.ReservedResources)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	task.LoggingCID = shared.GetTraceID(r.Context())

	if req.ParentTaskID != nil {
		parentID, err := uuid.Parse(*req.ParentTaskID)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid parent task ID")
			return
		}
		task.ParentTaskID = &parentID
	}
	if req.TaskGroupID != nil {
		groupID, err := uuid.Parse(*req.TaskGroupID)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task group ID")
			return
		}
		task.TaskGroupID = &groupID
	}

	if err := h.tasks.Create(r.Context(), task); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if err := h.hooks.RunCreate(r.Context(), "task", task); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			http.StatusInternalServerError, "Failed to finalize task", err)
		return
	}

	if err := h.notify.NotifyWakeup(r.Context()); err != nil {
		// The task is durably queued; a worker finds it at the next
		// poll even without the nudge.
		log.Warn("failed to notify workers of new task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
	}

	log.Info("task dispatched",
		slog.String("task_id", task.ID.String()),
		slog.String("task_name", task.Name))
	shared.RespondWithJSON(w, r, http.StatusCreated, taskToResponse(task))
}

// GetTask handles GET /tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(task))
}

// ListTasks handles GET /tasks?state=... Without a state filter it
// returns the incomplete tasks, the set an operator usually watches.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	var (
		tasks []*domain.Task
		err   error
	)

	if state := r.URL.Query().Get("state"); state != "" {
		taskState := domain.TaskState(state)
		if !taskState.Valid() {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Unknown task state")
			return
		}
		tasks, err = h.tasks.ListByState(r.Context(), taskState)
	} else {
		tasks, err = h.tasks.ListIncomplete(r.Context())
	}
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, taskToResponse(task))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// CancelTask handles POST /tasks/{id}/cancel. A waiting or running task
// moves to canceling and the fleet is notified; the worker holding the
// task's lock performs the terminal cancel. Canceling an already final
// task returns the task unchanged with 409.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	id, ok := h.taskID(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	if task.State.IsFinal() {
		shared.RespondWithJSON(w, r, http.StatusConflict, taskToResponse(task))
		return
	}

	task, err = h.tasks.SetCanceling(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if task.State == domain.TaskStateCanceling {
		if err := h.notify.NotifyCancel(r.Context(), id); err != nil {
			// The dispatch scan reaps unsupervised canceling tasks, so
			// the cancellation still lands, just slower.
			log.Warn("failed to notify cancellation",
				slog.String("task_id", id.String()),
				slog.String("error", err.Error()))
		}
	}

	log.Info("task cancellation requested",
		slog.String("task_id", id.String()),
		slog.String("state", string(task.State)))
	shared.RespondWithJSON(w, r, http.StatusAccepted, taskToResponse(task))
}

func (h *TaskHandler) taskID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return uuid.Nil, false
	}
	return id, true
}
