package store

import (
	"context"
	"database/sql"

	"github.com/taskforge/taskforge/internal/domain"
)

// RoleStore defines the interface for locked role persistence, used by
// deployment-time role reconciliation.
type RoleStore interface {
	// Upsert creates or updates a locked role by name, replacing its
	// description and permission set with the given definition.
	Upsert(ctx context.Context, name string, def domain.RoleDefinition) error

	// DeleteLockedExcept deletes locked roles whose name starts with
	// prefix and is not in keep, returning how many were removed.
	DeleteLockedExcept(ctx context.Context, prefix string, keep []string) (int64, error)

	// ListByPrefix retrieves locked roles whose name starts with prefix,
	// ordered by name, with their permission sets.
	ListByPrefix(ctx context.Context, prefix string) ([]*domain.Role, error)

	// WithTx returns a new RoleStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) RoleStore
}
