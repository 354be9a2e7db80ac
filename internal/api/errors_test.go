package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"task not found", store.ErrTaskNotFound, http.StatusNotFound},
		{"worker not found", store.ErrWorkerNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", store.ErrTaskNotFound), http.StatusNotFound},
		{"duplicate", store.ErrDuplicate, http.StatusConflict},
		{"schedule name exists", store.ErrScheduleNameExists, http.StatusConflict},
		{"task finished", store.ErrTaskFinished, http.StatusConflict},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest},
		{"empty task name", domain.ErrTaskNameEmpty, http.StatusBadRequest},
		{"bad worker name", domain.ErrWorkerNameInvalid, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessageNeverLeaksInternals(t *testing.T) {
	t.Parallel()

	internal := errors.New("pq: connection refused to 10.0.0.3:5432")
	msg := GetSafeErrorMessage(internal)
	assert.Equal(t, "An internal error occurred", msg)

	assert.Equal(t, "Task not found",
		GetSafeErrorMessage(fmt.Errorf("get: %w", store.ErrTaskNotFound)))
	assert.Equal(t, "Task already finished", GetSafeErrorMessage(store.ErrTaskFinished))
}
