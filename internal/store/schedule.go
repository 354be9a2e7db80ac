package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/domain"
)

// ScheduleStore defines the interface for task schedule persistence.
type ScheduleStore interface {
	// Create persists a new schedule. Returns ErrScheduleNameExists if a
	// schedule with the same name already exists.
	Create(ctx context.Context, schedule *domain.TaskSchedule) error

	// GetByName retrieves a schedule by its unique name.
	// Returns ErrScheduleNotFound if the schedule does not exist.
	GetByName(ctx context.Context, name string) (*domain.TaskSchedule, error)

	// ListDue retrieves active schedules whose next_dispatch is at or
	// before now, ordered by next_dispatch.
	ListDue(ctx context.Context, now time.Time) ([]*domain.TaskSchedule, error)

	// RecordDispatch stores the spawned task as last_task and moves
	// next_dispatch to next. A nil next deactivates the schedule.
	RecordDispatch(ctx context.Context, id uuid.UUID, lastTaskID uuid.UUID, next *time.Time) error

	// WithTx returns a new ScheduleStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) ScheduleStore
}
