package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
)

func TestFinalStatesSQL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "('completed', 'failed', 'canceled', 'skipped')", finalStatesSQL)
}

func TestSetFailedOnFinalTask(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	// Zero rows matched: the task already reached a terminal state.
	mock.ExpectExec("UPDATE tasks").WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewPostgresTaskStore(db)
	_, err = s.SetFailed(context.Background(), uuid.New(),
		&domain.TaskError{Type: "Error", Description: "boom"})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrTaskFinished)

	var storeErr *store.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "task", storeErr.Entity)
	assert.Equal(t, "set_failed", storeErr.Operation)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// fakeRow feeds canned column values to scanTask.
type fakeRow struct {
	values []any
}

func (r *fakeRow) Scan(dest ...any) error {
	for i, value := range r.values {
		switch d := dest[i].(type) {
		case *uuid.UUID:
			*d = value.(uuid.UUID)
		case **uuid.UUID:
			if value == nil {
				*d = nil
			} else {
				id := value.(uuid.UUID)
				*d = &id
			}
		case *domain.TaskState:
			*d = value.(domain.TaskState)
		case *string:
			*d = value.(string)
		case *[]byte:
			if value == nil {
				*d = nil
			} else {
				*d = value.([]byte)
			}
		case *time.Time:
			*d = value.(time.Time)
		default:
			// sql.NullTime / sql.NullString pass through their Scan.
			type scanner interface{ Scan(any) error }
			if s, ok := dest[i].(scanner); ok {
				if err := s.Scan(value); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func TestScanTask(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	groupID := uuid.New()
	started := time.Now().UTC().Add(-time.Minute)
	created := time.Now().UTC().Add(-time.Hour)

	row := &fakeRow{values: []any{
		id,
		domain.TaskStateRunning,
		"sync.repository",
		"cid-123",
		started, // started_at
		nil,     // finished_at
		[]byte(`{"type":"SyncError","description":"boom","traceback":"stack"}`),
		[]byte(`["repo-1"]`),
		nil, // kwargs
		[]byte(`["content:repo:1","shared:artifact:2"]`),
		nil, // parent_task_id
		groupID,
		"resource-worker@host1", // worker_name
		created,
	}}

	task, err := scanTask(row)
	require.NoError(t, err)

	assert.Equal(t, id, task.ID)
	assert.Equal(t, domain.TaskStateRunning, task.State)
	assert.Equal(t, "sync.repository", task.Name)
	assert.Equal(t, "cid-123", task.LoggingCID)
	require.NotNil(t, task.StartedAt)
	assert.Equal(t, started, *task.StartedAt)
	assert.Nil(t, task.FinishedAt)

	require.NotNil(t, task.Error)
	assert.Equal(t, "SyncError", task.Error.Type)
	assert.Equal(t, "boom", task.Error.Description)

	assert.Equal(t, json.RawMessage(`["repo-1"]`), task.Args)
	assert.Nil(t, task.Kwargs)
	assert.Equal(t, []string{"content:repo:1", "shared:artifact:2"}, task.ReservedResources)

	assert.Nil(t, task.ParentTaskID)
	require.NotNil(t, task.TaskGroupID)
	assert.Equal(t, groupID, *task.TaskGroupID)
	require.NotNil(t, task.WorkerName)
	assert.Equal(t, "resource-worker@host1", *task.WorkerName)
}

func TestScanTaskBadErrorPayload(t *testing.T) {
	t.Parallel()

	row := &fakeRow{values: []any{
		uuid.New(),
		domain.TaskStateFailed,
		"sync.repository",
		"",
		nil,
		nil,
		[]byte(`{not json`),
		nil,
		nil,
		nil,
		nil,
		nil,
		nil,
		time.Now().UTC(),
	}}

	_, err := scanTask(row)
	assert.Error(t, err)
}

func TestNullableJSON(t *testing.T) {
	t.Parallel()

	assert.Nil(t, nullableJSON(nil))
	assert.Nil(t, nullableJSON(json.RawMessage{}))
	assert.Equal(t, []byte(`{"a":1}`), nullableJSON(json.RawMessage(`{"a":1}`)))
}
