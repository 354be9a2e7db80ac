package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/platform/logger"
	"github.com/taskforge/taskforge/internal/store"
)

// PostgresWorkerStore implements the store.WorkerStore interface using
// PostgreSQL. The worker TTL used for online/missing classification is
// fixed at construction from process-wide configuration.
type PostgresWorkerStore struct {
	db  store.DBTX
	ttl time.Duration
}

// NewPostgresWorkerStore creates a new PostgresWorkerStore with the
// given worker TTL.
func NewPostgresWorkerStore(db store.DBTX, ttl time.Duration) *PostgresWorkerStore {
	return &PostgresWorkerStore{
		db:  db,
		ttl: ttl,
	}
}

// WithTx returns a new WorkerStore instance that uses the provided transaction.
func (s *PostgresWorkerStore) WithTx(tx *sql.Tx) store.WorkerStore {
	return &PostgresWorkerStore{
		db:  tx,
		ttl: s.ttl,
	}
}

// Heartbeat creates the worker record on first call, otherwise updates
// only the last_heartbeat timestamp. The single-row upsert never
// read-modifies other fields, so heartbeats cannot revert worker state
// and do not contend with concurrent reads.
func (s *PostgresWorkerStore) Heartbeat(ctx context.Context, name string) (*domain.Worker, error) {
	log := logger.FromContext(ctx)

	if err := domain.ValidateWorkerName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO workers (name, last_heartbeat, created_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (name) DO UPDATE SET last_heartbeat = EXCLUDED.last_heartbeat
		RETURNING name, last_heartbeat, created_at
	`

	var worker domain.Worker
	err := s.db.QueryRowContext(ctx, query, name, now).
		Scan(&worker.Name, &worker.LastHeartbeat, &worker.CreatedAt)
	if err != nil {
		log.Error("failed to record worker heartbeat",
			"worker", name,
			"error", err)
		return nil, fmt.Errorf("failed to record heartbeat: %w", MapError(err))
	}

	if worker.CreatedAt.Equal(worker.LastHeartbeat) {
		log.Info("new worker discovered", "worker", name)
	}

	log.Debug("worker heartbeat recorded",
		"worker", name,
		"last_heartbeat", worker.LastHeartbeat)

	return &worker, nil
}

// GetByName retrieves a worker by name.
func (s *PostgresWorkerStore) GetByName(ctx context.Context, name string) (*domain.Worker, error) {
	query := `SELECT name, last_heartbeat, created_at FROM workers WHERE name = $1`

	var worker domain.Worker
	err := s.db.QueryRowContext(ctx, query, name).
		Scan(&worker.Name, &worker.LastHeartbeat, &worker.CreatedAt)
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrWorkerNotFound
		}
		return nil, fmt.Errorf("failed to get worker: %w", MapError(err))
	}

	return &worker, nil
}

// OnlineWorkers retrieves workers whose heartbeat is younger than the TTL.
func (s *PostgresWorkerStore) OnlineWorkers(ctx context.Context) ([]*domain.Worker, error) {
	query := `
		SELECT name, last_heartbeat, created_at
		FROM workers
		WHERE last_heartbeat >= $1
		ORDER BY name ASC
	`

	threshold := time.Now().UTC().Add(-s.ttl)
	return s.queryWorkers(ctx, query, threshold)
}

// MissingWorkers retrieves workers whose heartbeat is at least age old.
// A zero age means the configured TTL.
func (s *PostgresWorkerStore) MissingWorkers(
	ctx context.Context,
	age time.Duration,
) ([]*domain.Worker, error) {
	if age == 0 {
		age = s.ttl
	}

	query := `
		SELECT name, last_heartbeat, created_at
		FROM workers
		WHERE last_heartbeat < $1
		ORDER BY name ASC
	`

	threshold := time.Now().UTC().Add(-age)
	return s.queryWorkers(ctx, query, threshold)
}

// Delete removes a worker record on clean shutdown.
func (s *PostgresWorkerStore) Delete(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM workers WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("failed to delete worker: %w", MapError(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrWorkerNotFound
	}

	return nil
}

// CleanupMissing deletes workers that have been missing for at least the
// given age.
func (s *PostgresWorkerStore) CleanupMissing(
	ctx context.Context,
	age time.Duration,
) (int64, error) {
	log := logger.FromContext(ctx)

	threshold := time.Now().UTC().Add(-age)
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM workers WHERE last_heartbeat < $1`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up missing workers: %w", MapError(err))
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if removed > 0 {
		log.Info("cleaned up missing workers", "count", removed)
	}

	return removed, nil
}

// queryWorkers runs a worker select and scans the result set.
func (s *PostgresWorkerStore) queryWorkers(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Worker, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", MapError(err))
	}
	defer rows.Close()

	var workers []*domain.Worker
	for rows.Next() {
		var worker domain.Worker
		if err := rows.Scan(&worker.Name, &worker.LastHeartbeat, &worker.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan worker row: %w", err)
		}
		workers = append(workers, &worker)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating worker rows: %w", err)
	}

	return workers, nil
}
