package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/taskforge/taskforge/internal/domain"
)

// WorkerStore defines the interface for the worker registry. Workers are
// created implicitly by their first heartbeat and classified online or
// missing purely by heartbeat age.
type WorkerStore interface {
	// Heartbeat creates the worker record on first call, otherwise
	// updates only the last_heartbeat timestamp. It must never revert
	// any other worker state, and is implemented as a single-row upsert
	// so heartbeats do not contend with concurrent reads.
	Heartbeat(ctx context.Context, name string) (*domain.Worker, error)

	// GetByName retrieves a worker by name.
	// Returns ErrWorkerNotFound if the worker does not exist.
	GetByName(ctx context.Context, name string) (*domain.Worker, error)

	// OnlineWorkers retrieves workers whose heartbeat is younger than
	// the configured TTL.
	OnlineWorkers(ctx context.Context) ([]*domain.Worker, error)

	// MissingWorkers retrieves workers whose heartbeat is at least the
	// given age old. A zero age means the configured TTL.
	MissingWorkers(ctx context.Context, age time.Duration) ([]*domain.Worker, error)

	// Delete removes a worker record. Used on clean worker shutdown.
	Delete(ctx context.Context, name string) error

	// CleanupMissing deletes workers that have been missing for at least
	// the given age, returning how many were removed.
	CleanupMissing(ctx context.Context, age time.Duration) (int64, error)

	// WithTx returns a new WorkerStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) WorkerStore
}
