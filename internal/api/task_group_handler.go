package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/api/shared"
	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
)

// TaskGroupHandler handles task group requests.
type TaskGroupHandler struct {
	groups store.TaskGroupStore
	logger *slog.Logger
}

// NewTaskGroupHandler creates a TaskGroupHandler.
func NewTaskGroupHandler(groups store.TaskGroupStore, log *slog.Logger) *TaskGroupHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskGroupHandler")
	}

	return &TaskGroupHandler{
		groups: groups,
		logger: log.With(slog.String("component", "task_group_handler")),
	}
}

// CreateTaskGroup handles POST /task-groups.
func (h *TaskGroupHandler) CreateTaskGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskGroupRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	group := domain.NewTaskGroup(req.Description)
	if err := h.groups.Create(r.Context(), group); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, taskGroupToResponse(group))
}

// GetTaskGroup handles GET /task-groups/{id}.
func (h *TaskGroupHandler) GetTaskGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}

	group, err := h.groups.GetByID(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskGroupToResponse(group))
}

// FinishTaskGroup handles POST /task-groups/{id}/finish, marking that
// no further tasks will be added to the group. Idempotent.
func (h *TaskGroupHandler) FinishTaskGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.groupID(w, r)
	if !ok {
		return
	}

	if err := h.groups.Finish(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	group, err := h.groups.GetByID(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskGroupToResponse(group))
}

func (h *TaskGroupHandler) groupID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task group ID")
		return uuid.Nil, false
	}
	return id, true
}
