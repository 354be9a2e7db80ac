package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/platform/logger"
	"github.com/taskforge/taskforge/internal/store"
)

// taskColumns is the select list shared by all task queries.
const taskColumns = `id, state, name, logging_cid, started_at, finished_at,
	error, args, kwargs, reserved_resources, parent_task_id, task_group_id,
	worker_name, created_at`

// finalStatesSQL is the literal list used by the "NOT IN final states"
// conditional updates. Built from domain.FinalTaskStates so the SQL can
// never drift from the state machine.
var finalStatesSQL = func() string {
	quoted := make([]string, len(domain.FinalTaskStates))
	for i, state := range domain.FinalTaskStates {
		quoted[i] = "'" + string(state) + "'"
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}()

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL.
type PostgresTaskStore struct {
	db store.DBTX
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{
		db: db,
	}
}

// WithTx returns a new TaskStore instance that uses the provided transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db: tx,
	}
}

// Create persists a task to the database in its current (waiting) state.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	resources, err := json.Marshal(task.ReservedResources)
	if err != nil {
		return fmt.Errorf("failed to encode reserved resources: %w", err)
	}

	query := `
		INSERT INTO tasks
			(id, state, name, logging_cid, args, kwargs, reserved_resources,
			 parent_task_id, task_group_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.State,
		task.Name,
		task.LoggingCID,
		nullableJSON(task.Args),
		nullableJSON(task.Kwargs),
		resources,
		task.ParentTaskID,
		task.TaskGroupID,
		task.CreatedAt,
	)

	if err != nil {
		log.Error("failed to create task",
			"task_id", task.ID,
			"task_name", task.Name,
			"error", err)
		return fmt.Errorf("failed to create task: %w", MapError(err))
	}

	return nil
}

// GetByID retrieves a task by its unique ID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", MapError(err))
	}

	return task, nil
}

// ListIncomplete retrieves all tasks in a non-terminal state ordered by
// creation time. This is the dispatcher's scan set.
func (s *PostgresTaskStore) ListIncomplete(ctx context.Context) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE state NOT IN ` + finalStatesSQL + `
		ORDER BY created_at ASC`

	return s.queryTasks(ctx, query)
}

// ListByState retrieves all tasks in the given state ordered by creation time.
func (s *PostgresTaskStore) ListByState(
	ctx context.Context,
	state domain.TaskState,
) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
		WHERE state = $1
		ORDER BY created_at ASC`

	return s.queryTasks(ctx, query, state)
}

// AssignWorker records the worker claiming the task.
func (s *PostgresTaskStore) AssignWorker(
	ctx context.Context,
	id uuid.UUID,
	workerName string,
) error {
	query := `UPDATE tasks SET worker_name = $1 WHERE id = $2`

	result, err := s.db.ExecContext(ctx, query, workerName, id)
	if err != nil {
		return fmt.Errorf("failed to assign worker: %w", MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// SetRunning transitions waiting -> running and stamps started_at.
// Zero rows matched means the task was no longer waiting (a canceler or
// a double invocation won the race): logged as a warning, and the
// refreshed record is returned so the caller observes the true state.
func (s *PostgresTaskStore) SetRunning(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET state = $1, started_at = $2
		WHERE id = $3 AND state = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStateRunning,
		time.Now().UTC(),
		id,
		domain.TaskStateWaiting,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set task running: %w", MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows != 1 {
		log.Warn("task was not in waiting state when set running",
			"task_id", id)
	}

	return s.GetByID(ctx, id)
}

// SetCompleted transitions a non-final task to completed and stamps
// finished_at. Zero rows matched means the task already reached a
// terminal state, typically a concurrent cancellation: logged as a
// warning, never surfaced as an error.
func (s *PostgresTaskStore) SetCompleted(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET state = $1, finished_at = $2
		WHERE id = $3 AND state NOT IN ` + finalStatesSQL

	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStateCompleted,
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set task completed: %w", MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows != 1 {
		log.Warn("task was already in a final state when set completed",
			"task_id", id)
	}

	return s.GetByID(ctx, id)
}

// SetFailed transitions a non-final task to failed with the structured
// error payload. Unlike SetRunning/SetCompleted, a zero-row match here
// is fatal: failure handling runs inside the execution context that
// holds the task's lock, so nothing else could have finished the task
// first. That makes a prior terminal state a logic bug, not a race.
func (s *PostgresTaskStore) SetFailed(
	ctx context.Context,
	id uuid.UUID,
	taskErr *domain.TaskError,
) (*domain.Task, error) {
	payload, err := json.Marshal(taskErr)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task error: %w", err)
	}

	query := `
		UPDATE tasks
		SET state = $1, finished_at = $2, error = $3
		WHERE id = $4 AND state NOT IN ` + finalStatesSQL

	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStateFailed,
		time.Now().UTC(),
		payload,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set task failed: %w", MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows != 1 {
		return nil, store.NewStoreError("task", "set_failed",
			fmt.Sprintf("task %s", id), store.ErrTaskFinished)
	}

	return s.GetByID(ctx, id)
}

// SetCanceling transitions waiting|running -> canceling. The terminal
// cancel happens later, under the task's lock, via FinishCanceling.
func (s *PostgresTaskStore) SetCanceling(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET state = $1
		WHERE id = $2 AND state IN ($3, $4)
	`

	result, err := s.db.ExecContext(ctx, query,
		domain.TaskStateCanceling,
		id,
		domain.TaskStateWaiting,
		domain.TaskStateRunning,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set task canceling: %w", MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows != 1 {
		log.Warn("task was not cancelable",
			"task_id", id)
	}

	return s.GetByID(ctx, id)
}

// FinishCanceling transitions canceling -> finalState and stamps
// finished_at. Only rows still in canceling match, so the terminal
// cancel happens exactly once no matter how many reapers race on it.
func (s *PostgresTaskStore) FinishCanceling(
	ctx context.Context,
	id uuid.UUID,
	finalState domain.TaskState,
	taskErr *domain.TaskError,
) (*domain.Task, error) {
	if !domain.TaskStateCanceling.CanTransitionTo(finalState) {
		return nil, fmt.Errorf(
			"%w: cannot finish canceling task as %s",
			store.ErrInvalidEntity, finalState)
	}

	var payload any
	if taskErr != nil {
		encoded, err := json.Marshal(taskErr)
		if err != nil {
			return nil, fmt.Errorf("failed to encode task error: %w", err)
		}
		payload = encoded
	}

	query := `
		UPDATE tasks
		SET state = $1, finished_at = $2, error = COALESCE($3, error)
		WHERE id = $4 AND state = $5
	`

	result, err := s.db.ExecContext(ctx, query,
		finalState,
		time.Now().UTC(),
		payload,
		id,
		domain.TaskStateCanceling,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to finish canceling task: %w", MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows != 1 {
		logger.FromContext(ctx).Warn("task was not in canceling state",
			"task_id", id,
			"final_state", finalState)
	}

	return s.GetByID(ctx, id)
}

// AddCreatedResource records a resource created by a task.
func (s *PostgresTaskStore) AddCreatedResource(
	ctx context.Context,
	resource *domain.CreatedResource,
) error {
	query := `
		INSERT INTO created_resources (id, task_id, resource, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.ExecContext(ctx, query,
		resource.ID,
		resource.TaskID,
		resource.Resource,
		resource.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add created resource: %w", MapError(err))
	}

	return nil
}

// ListCreatedResources retrieves the resources created by a task.
func (s *PostgresTaskStore) ListCreatedResources(
	ctx context.Context,
	taskID uuid.UUID,
) ([]*domain.CreatedResource, error) {
	query := `
		SELECT id, task_id, resource, created_at
		FROM created_resources
		WHERE task_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query created resources: %w", MapError(err))
	}
	defer rows.Close()

	var resources []*domain.CreatedResource
	for rows.Next() {
		var r domain.CreatedResource
		if err := rows.Scan(&r.ID, &r.TaskID, &r.Resource, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan created resource: %w", err)
		}
		resources = append(resources, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating created resources: %w", err)
	}

	return resources, nil
}

// DeleteCreatedResources deletes all resources created by a task.
func (s *PostgresTaskStore) DeleteCreatedResources(
	ctx context.Context,
	taskID uuid.UUID,
) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM created_resources WHERE task_id = $1`, taskID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete created resources: %w", MapError(err))
	}

	return result.RowsAffected()
}

// queryTasks runs a task select and scans the result set.
func (s *PostgresTaskStore) queryTasks(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Task, error) {
	log := logger.FromContext(ctx)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", "error", err)
		return nil, fmt.Errorf("failed to query tasks: %w", MapError(err))
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask decodes one task row, including the JSON-encoded error
// payload and reserved resource record.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task       domain.Task
		startedAt  sql.NullTime
		finishedAt sql.NullTime
		errPayload []byte
		args       []byte
		kwargs     []byte
		resources  []byte
		workerName sql.NullString
	)

	err := row.Scan(
		&task.ID,
		&task.State,
		&task.Name,
		&task.LoggingCID,
		&startedAt,
		&finishedAt,
		&errPayload,
		&args,
		&kwargs,
		&resources,
		&task.ParentTaskID,
		&task.TaskGroupID,
		&workerName,
		&task.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		task.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		task.FinishedAt = &finishedAt.Time
	}
	if workerName.Valid {
		task.WorkerName = &workerName.String
	}
	if len(args) > 0 {
		task.Args = json.RawMessage(args)
	}
	if len(kwargs) > 0 {
		task.Kwargs = json.RawMessage(kwargs)
	}

	if len(errPayload) > 0 {
		var taskErr domain.TaskError
		if err := json.Unmarshal(errPayload, &taskErr); err != nil {
			return nil, fmt.Errorf("failed to decode task error payload: %w", err)
		}
		task.Error = &taskErr
	}

	if len(resources) > 0 {
		if err := json.Unmarshal(resources, &task.ReservedResources); err != nil {
			return nil, fmt.Errorf("failed to decode reserved resources: %w", err)
		}
	}

	return &task, nil
}

// nullableJSON returns nil for empty JSON payloads so the column stays
// NULL instead of holding an empty byte string.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
