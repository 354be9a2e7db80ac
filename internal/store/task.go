package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/domain"
)

// TaskStore defines the interface for task persistence and state
// transitions. All transition methods are atomic conditional updates:
// they only take effect when the task is in an eligible state, and they
// return the refreshed task so callers observe the true outcome of any
// race they lost.
type TaskStore interface {
	// Create persists a new task in the waiting state.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListIncomplete retrieves all tasks in a non-terminal state,
	// ordered by creation time. This is the dispatcher's scan set.
	ListIncomplete(ctx context.Context) ([]*domain.Task, error)

	// ListByState retrieves all tasks in the given state, ordered by
	// creation time.
	ListByState(ctx context.Context, state domain.TaskState) ([]*domain.Task, error)

	// AssignWorker records the worker claiming the task.
	AssignWorker(ctx context.Context, id uuid.UUID, workerName string) error

	// SetRunning transitions waiting -> running and stamps started_at.
	// Losing the race (zero rows matched) is logged as a warning, not an
	// error: the task is re-read and returned so the caller can see who won.
	SetRunning(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// SetCompleted transitions a non-final task to completed and stamps
	// finished_at. Losing the race (e.g. to a concurrent cancellation) is
	// logged as a warning and the refreshed task returned.
	SetCompleted(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// SetFailed transitions a non-final task to failed, stamps
	// finished_at, and records the structured error payload. A zero-row
	// match returns ErrTaskFinished: only the lock-holding execution
	// context may fail a task, so a prior terminal state is a logic bug.
	SetFailed(ctx context.Context, id uuid.UUID, taskErr *domain.TaskError) (*domain.Task, error)

	// SetCanceling transitions waiting|running -> canceling. The terminal
	// cancel is performed later by whoever holds the task's lock.
	SetCanceling(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// FinishCanceling transitions canceling -> finalState (canceled or
	// failed) and stamps finished_at. Only rows still in canceling match.
	FinishCanceling(
		ctx context.Context,
		id uuid.UUID,
		finalState domain.TaskState,
		taskErr *domain.TaskError,
	) (*domain.Task, error)

	// AddCreatedResource records a resource created by a task.
	AddCreatedResource(ctx context.Context, resource *domain.CreatedResource) error

	// ListCreatedResources retrieves the resources created by a task.
	ListCreatedResources(ctx context.Context, taskID uuid.UUID) ([]*domain.CreatedResource, error)

	// DeleteCreatedResources deletes all resources created by a task.
	// Used by the reaper before failing an abandoned task.
	DeleteCreatedResources(ctx context.Context, taskID uuid.UUID) (int64, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
