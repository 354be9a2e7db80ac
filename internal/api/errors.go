package api

import (
	"errors"
	"net/http"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes
// without leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case errors.Is(err, store.ErrTaskFinished):
		return http.StatusConflict

	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrTaskNameEmpty),
		errors.Is(err, domain.ErrWorkerNameInvalid):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized message for the error. Client
// mistakes get the concrete reason; everything else gets a generic one.
func GetSafeErrorMessage(err error) string {
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrWorkerNotFound):
		return "Worker not found"
	case errors.Is(err, store.ErrTaskGroupNotFound):
		return "Task group not found"
	case errors.Is(err, store.ErrScheduleNotFound):
		return "Task schedule not found"
	case errors.Is(err, store.ErrNotFound):
		return "Not found"
	case errors.Is(err, store.ErrScheduleNameExists):
		return "A schedule with this name already exists"
	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"
	case errors.Is(err, store.ErrTaskFinished):
		return "Task already finished"
	case errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, domain.ErrTaskNameEmpty),
		errors.Is(err, domain.ErrWorkerNameInvalid):
		return "Invalid request"
	default:
		return "An internal error occurred"
	}
}
