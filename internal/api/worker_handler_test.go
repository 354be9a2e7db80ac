package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/internal/api"
	"github.com/taskforge/taskforge/internal/mocks"
	"github.com/taskforge/taskforge/internal/tasking"
)

const workerTTL = 30 * time.Second

type workerAPIFixture struct {
	workers *mocks.MockWorkerStore
	hooks   *tasking.LifecycleHooks
	router  chi.Router
}

func newWorkerAPIFixture(t *testing.T) *workerAPIFixture {
	t.Helper()

	f := &workerAPIFixture{
		workers: mocks.NewMockWorkerStore(workerTTL),
		hooks:   tasking.NewLifecycleHooks(),
	}

	handler := api.NewWorkerHandler(f.workers, f.hooks, slog.Default())

	f.router = chi.NewRouter()
	f.router.Post("/workers/{name}/heartbeat", handler.Heartbeat)
	f.router.Get("/workers", handler.ListWorkers)
	f.router.Delete("/workers/{name}", handler.DeleteWorker)
	return f
}

func (f *workerAPIFixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHeartbeatRegistersWorker(t *testing.T) {
	t.Parallel()

	f := newWorkerAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/workers/task-worker@host-a/heartbeat")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.WorkerResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "task-worker@host-a", resp.Name)
	assert.True(t, resp.Online)

	// A later heartbeat refreshes rather than re-registers.
	first := resp.LastHeartbeat
	rec = f.do(t, http.MethodPost, "/workers/task-worker@host-a/heartbeat")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.LastHeartbeat.Before(first))
}

func TestHeartbeatRejectsMalformedName(t *testing.T) {
	t.Parallel()

	f := newWorkerAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/workers/no-host-part/heartbeat")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListWorkersReportsOnlineAndMissing(t *testing.T) {
	t.Parallel()

	f := newWorkerAPIFixture(t)
	ctx := context.Background()

	_, err := f.workers.Heartbeat(ctx, "task-worker@host-a")
	require.NoError(t, err)
	_, err = f.workers.Heartbeat(ctx, "task-worker@host-b")
	require.NoError(t, err)
	f.workers.MarkMissing("task-worker@host-b", 2*workerTTL)

	rec := f.do(t, http.MethodGet, "/workers")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []api.WorkerResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 2)

	online := map[string]bool{}
	for _, worker := range resp {
		online[worker.Name] = worker.Online
	}
	assert.True(t, online["task-worker@host-a"])
	assert.False(t, online["task-worker@host-b"])
}

func TestDeleteWorker(t *testing.T) {
	t.Parallel()

	f := newWorkerAPIFixture(t)
	ctx := context.Background()

	_, err := f.workers.Heartbeat(ctx, "task-worker@host-a")
	require.NoError(t, err)

	var hookRan bool
	f.hooks.OnDelete("worker", func(_ context.Context, _ any) error {
		hookRan = true
		return nil
	})

	rec := f.do(t, http.MethodDelete, "/workers/task-worker@host-a")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, hookRan)

	rec = f.do(t, http.MethodDelete, "/workers/task-worker@host-a")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
