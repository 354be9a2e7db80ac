package postgres

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/platform/logger"
	"github.com/taskforge/taskforge/internal/store"
)

// LockKey folds a 128-bit task identity into the 63-bit signed keyspace
// of PostgreSQL advisory locks: the high and low 64-bit halves are
// XORed and the sign bit masked off.
//
// Distinct task identities can fold to the same key. The residual
// collision risk is accepted: a collision serializes two unrelated
// tasks, it never corrupts state.
func LockKey(id uuid.UUID) int64 {
	hi := binary.BigEndian.Uint64(id[0:8])
	lo := binary.BigEndian.Uint64(id[8:16])
	return int64((hi ^ lo) & 0x7FFFFFFFFFFFFFFF)
}

// AdvisoryLocker hands out session-scoped exclusive locks backed by
// pg_try_advisory_lock. Each acquired lock pins a dedicated connection
// from the pool for its whole lifetime; the storage engine releases the
// lock automatically when that connection dies. That automatic release
// is the system's crash-recovery mechanism: a crashed worker's locks
// are freed by the server without any cleanup step, making its tasks
// reclaimable by the reaper.
type AdvisoryLocker struct {
	db *sql.DB
}

// NewAdvisoryLocker creates an AdvisoryLocker over the given pool.
func NewAdvisoryLocker(db *sql.DB) *AdvisoryLocker {
	return &AdvisoryLocker{db: db}
}

// Acquire attempts a non-blocking acquire of the lock for the given key.
// It fails fast with store.ErrLockUnavailable when another session holds
// the key.
func (l *AdvisoryLocker) Acquire(ctx context.Context, key int64) (*LockGuard, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pin connection for advisory lock: %w", err)
	}

	var acquired bool
	err = conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to acquire advisory lock %d: %w", key, MapError(err))
	}

	if !acquired {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: key %d", store.ErrLockUnavailable, key)
	}

	logger.FromContext(ctx).Debug("advisory lock acquired", "lock_key", key)

	return &LockGuard{conn: conn, key: key}, nil
}

// AcquireTask acquires the advisory lock for a task identity, folding
// the UUID with LockKey.
func (l *AdvisoryLocker) AcquireTask(ctx context.Context, taskID uuid.UUID) (*LockGuard, error) {
	return l.Acquire(ctx, LockKey(taskID))
}

// LockGuard represents a held advisory lock. The lock lives exactly as
// long as the pinned connection: Release frees both, and a process
// crash frees them implicitly server-side.
type LockGuard struct {
	conn *sql.Conn
	key  int64
}

// Key returns the lock key held by the guard.
func (g *LockGuard) Key() int64 {
	return g.key
}

// Release unlocks the key and returns the pinned connection to the
// pool. Unlock reporting false means this session did not hold the
// lock: that is a logic error in the execution wrapper, surfaced as
// store.ErrLockNotHeld and never retried.
func (g *LockGuard) Release(ctx context.Context) error {
	var released bool
	err := g.conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", g.key).Scan(&released)
	closeErr := g.conn.Close()

	if err != nil {
		return fmt.Errorf("failed to release advisory lock %d: %w", g.key, MapError(err))
	}
	if !released {
		return fmt.Errorf("%w: key %d", store.ErrLockNotHeld, g.key)
	}

	logger.FromContext(ctx).Debug("advisory lock released", "lock_key", g.key)

	return closeErr
}
