package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
)

// PostgresTaskGroupStore implements the store.TaskGroupStore interface
// using PostgreSQL.
type PostgresTaskGroupStore struct {
	db store.DBTX
}

// NewPostgresTaskGroupStore creates a new PostgresTaskGroupStore.
func NewPostgresTaskGroupStore(db store.DBTX) *PostgresTaskGroupStore {
	return &PostgresTaskGroupStore{
		db: db,
	}
}

// WithTx returns a new TaskGroupStore instance that uses the provided transaction.
func (s *PostgresTaskGroupStore) WithTx(tx *sql.Tx) store.TaskGroupStore {
	return &PostgresTaskGroupStore{
		db: tx,
	}
}

// Create persists a new task group.
func (s *PostgresTaskGroupStore) Create(ctx context.Context, group *domain.TaskGroup) error {
	query := `
		INSERT INTO task_groups (id, description, all_tasks_dispatched, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.ExecContext(ctx, query,
		group.ID,
		group.Description,
		group.AllTasksDispatched,
		group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task group: %w", MapError(err))
	}

	return nil
}

// GetByID retrieves a task group by ID.
func (s *PostgresTaskGroupStore) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*domain.TaskGroup, error) {
	query := `
		SELECT id, description, all_tasks_dispatched, created_at
		FROM task_groups
		WHERE id = $1
	`

	var group domain.TaskGroup
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&group.ID, &group.Description, &group.AllTasksDispatched, &group.CreatedAt)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrTaskGroupNotFound
		}
		return nil, fmt.Errorf("failed to get task group: %w", MapError(err))
	}

	return &group, nil
}

// Finish sets all_tasks_dispatched unconditionally. Finishing an
// already finished group matches the row again and rewrites the same
// value, so the operation is idempotent.
func (s *PostgresTaskGroupStore) Finish(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE task_groups SET all_tasks_dispatched = TRUE WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to finish task group: %w", MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrTaskGroupNotFound
	}

	return nil
}
