package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/domain"
)

// TaskGroupStore defines the interface for task group persistence.
type TaskGroupStore interface {
	// Create persists a new task group.
	Create(ctx context.Context, group *domain.TaskGroup) error

	// GetByID retrieves a task group by ID.
	// Returns ErrTaskGroupNotFound if the group does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskGroup, error)

	// Finish sets all_tasks_dispatched unconditionally. It is
	// idempotent: finishing an already finished group is a no-op.
	Finish(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new TaskGroupStore instance that uses the
	// provided transaction.
	WithTx(tx *sql.Tx) TaskGroupStore
}
