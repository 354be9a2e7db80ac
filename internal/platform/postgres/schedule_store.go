package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
)

// PostgresScheduleStore implements the store.ScheduleStore interface
// using PostgreSQL. Intervals are stored as whole microseconds.
type PostgresScheduleStore struct {
	db store.DBTX
}

// NewPostgresScheduleStore creates a new PostgresScheduleStore.
func NewPostgresScheduleStore(db store.DBTX) *PostgresScheduleStore {
	return &PostgresScheduleStore{
		db: db,
	}
}

// WithTx returns a new ScheduleStore instance that uses the provided transaction.
func (s *PostgresScheduleStore) WithTx(tx *sql.Tx) store.ScheduleStore {
	return &PostgresScheduleStore{
		db: tx,
	}
}

// Create persists a new schedule.
func (s *PostgresScheduleStore) Create(ctx context.Context, schedule *domain.TaskSchedule) error {
	query := `
		INSERT INTO task_schedules
			(id, name, next_dispatch, dispatch_interval_us, task_name, last_task_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.Name,
		schedule.NextDispatch,
		intervalMicros(schedule.DispatchInterval),
		schedule.TaskName,
		schedule.LastTaskID,
		schedule.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %q", store.ErrScheduleNameExists, schedule.Name)
		}
		return fmt.Errorf("failed to create schedule: %w", MapError(err))
	}

	return nil
}

// GetByName retrieves a schedule by its unique name.
func (s *PostgresScheduleStore) GetByName(
	ctx context.Context,
	name string,
) (*domain.TaskSchedule, error) {
	query := scheduleSelect + ` WHERE name = $1`

	schedule, err := scanSchedule(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", MapError(err))
	}

	return schedule, nil
}

// ListDue retrieves active schedules due at or before now.
func (s *PostgresScheduleStore) ListDue(
	ctx context.Context,
	now time.Time,
) ([]*domain.TaskSchedule, error) {
	query := scheduleSelect + `
		WHERE next_dispatch IS NOT NULL AND next_dispatch <= $1
		ORDER BY next_dispatch ASC`

	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due schedules: %w", MapError(err))
	}
	defer rows.Close()

	var schedules []*domain.TaskSchedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule row: %w", err)
		}
		schedules = append(schedules, schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule rows: %w", err)
	}

	return schedules, nil
}

// RecordDispatch stores the spawned task as last_task and moves
// next_dispatch to next. A nil next deactivates the schedule.
func (s *PostgresScheduleStore) RecordDispatch(
	ctx context.Context,
	id uuid.UUID,
	lastTaskID uuid.UUID,
	next *time.Time,
) error {
	query := `
		UPDATE task_schedules
		SET last_task_id = $1, next_dispatch = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, lastTaskID, next, id)
	if err != nil {
		return fmt.Errorf("failed to record schedule dispatch: %w", MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrScheduleNotFound
	}

	return nil
}

const scheduleSelect = `
	SELECT id, name, next_dispatch, dispatch_interval_us, task_name, last_task_id, created_at
	FROM task_schedules`

// scanSchedule decodes one schedule row.
func scanSchedule(row rowScanner) (*domain.TaskSchedule, error) {
	var (
		schedule     domain.TaskSchedule
		nextDispatch sql.NullTime
		intervalUs   sql.NullInt64
	)

	err := row.Scan(
		&schedule.ID,
		&schedule.Name,
		&nextDispatch,
		&intervalUs,
		&schedule.TaskName,
		&schedule.LastTaskID,
		&schedule.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if nextDispatch.Valid {
		schedule.NextDispatch = &nextDispatch.Time
	}
	if intervalUs.Valid {
		interval := time.Duration(intervalUs.Int64) * time.Microsecond
		schedule.DispatchInterval = &interval
	}

	return &schedule, nil
}

// intervalMicros converts a nullable duration to whole microseconds.
func intervalMicros(interval *time.Duration) any {
	if interval == nil {
		return nil
	}
	return interval.Microseconds()
}
