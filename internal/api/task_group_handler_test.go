package api_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/internal/api"
	"github.com/taskforge/taskforge/internal/mocks"
)

func newTaskGroupRouter(t *testing.T) (chi.Router, *mocks.MockTaskGroupStore) {
	t.Helper()

	groups := mocks.NewMockTaskGroupStore()
	handler := api.NewTaskGroupHandler(groups, slog.Default())

	router := chi.NewRouter()
	router.Post("/task-groups", handler.CreateTaskGroup)
	router.Get("/task-groups/{id}", handler.GetTaskGroup)
	router.Post("/task-groups/{id}/finish", handler.FinishTaskGroup)
	return router, groups
}

func TestTaskGroupLifecycle(t *testing.T) {
	t.Parallel()

	router, _ := newTaskGroupRouter(t)

	body, err := json.Marshal(map[string]string{"description": "nightly repository sync"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		http.MethodPost, "/task-groups", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var group api.TaskGroupResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&group))
	assert.False(t, group.AllTasksDispatched)

	// Finish is idempotent.
	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(
			http.MethodPost, "/task-groups/"+group.ID+"/finish", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		require.NoError(t, json.NewDecoder(rec.Body).Decode(&group))
		assert.True(t, group.AllTasksDispatched)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		http.MethodGet, "/task-groups/"+group.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTaskGroupValidationAndNotFound(t *testing.T) {
	t.Parallel()

	router, _ := newTaskGroupRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		http.MethodPost, "/task-groups", bytes.NewReader([]byte(`{}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		http.MethodGet, "/task-groups/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		http.MethodPost, "/task-groups/not-a-uuid/finish", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
