package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/platform/logger"
	"github.com/taskforge/taskforge/internal/store"
)

// PostgresRoleStore implements the store.RoleStore interface using
// PostgreSQL. Roles managed here are always locked: they belong to the
// deployment-time reconciliation, not to users.
type PostgresRoleStore struct {
	db store.DBTX
}

// NewPostgresRoleStore creates a new PostgresRoleStore.
func NewPostgresRoleStore(db store.DBTX) *PostgresRoleStore {
	return &PostgresRoleStore{
		db: db,
	}
}

// WithTx returns a new RoleStore instance that uses the provided transaction.
func (s *PostgresRoleStore) WithTx(tx *sql.Tx) store.RoleStore {
	return &PostgresRoleStore{
		db: tx,
	}
}

// Upsert creates or updates a locked role by name and replaces its
// permission set with the definition's.
func (s *PostgresRoleStore) Upsert(
	ctx context.Context,
	name string,
	def domain.RoleDefinition,
) error {
	query := `
		INSERT INTO roles (id, name, description, locked, created_at)
		VALUES ($1, $2, $3, TRUE, $4)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
		RETURNING id
	`

	var roleID uuid.UUID
	err := s.db.QueryRowContext(ctx, query,
		uuid.New(),
		name,
		def.Description,
		time.Now().UTC(),
	).Scan(&roleID)
	if err != nil {
		return fmt.Errorf("failed to upsert role %q: %w", name, MapError(err))
	}

	// Replace the permission set wholesale. Reconciliation owns locked
	// roles, so partial merges are never wanted.
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", MapError(err))
	}

	for _, permission := range def.Permissions {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO role_permissions (role_id, permission) VALUES ($1, $2)`,
			roleID, permission)
		if err != nil {
			return fmt.Errorf(
				"failed to grant permission %q to role %q: %w",
				permission, name, MapError(err))
		}
	}

	return nil
}

// DeleteLockedExcept deletes locked roles whose name starts with prefix
// and is not in keep. The keep list is compared as an array so an empty
// list still deletes every prefixed role.
func (s *PostgresRoleStore) DeleteLockedExcept(
	ctx context.Context,
	prefix string,
	keep []string,
) (int64, error) {
	log := logger.FromContext(ctx)

	if keep == nil {
		keep = []string{}
	}

	query := `
		DELETE FROM roles
		WHERE locked AND name LIKE $1 || '%' AND NOT (name = ANY($2))
	`

	result, err := s.db.ExecContext(ctx, query, prefix, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to delete obsolete roles: %w", MapError(err))
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if removed > 0 {
		log.Info("deleted obsolete locked roles",
			"prefix", prefix,
			"count", removed)
	}

	return removed, nil
}

// ListByPrefix retrieves locked roles whose name starts with prefix,
// with their permission sets.
func (s *PostgresRoleStore) ListByPrefix(
	ctx context.Context,
	prefix string,
) ([]*domain.Role, error) {
	query := `
		SELECT id, name, description, locked, created_at
		FROM roles
		WHERE locked AND name LIKE $1 || '%'
		ORDER BY name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", MapError(err))
	}
	defer rows.Close()

	var roles []*domain.Role
	for rows.Next() {
		var role domain.Role
		err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.Locked, &role.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role row: %w", err)
		}
		roles = append(roles, &role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role rows: %w", err)
	}

	for _, role := range roles {
		permissions, err := s.rolePermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		role.Permissions = permissions
	}

	return roles, nil
}

func (s *PostgresRoleStore) rolePermissions(
	ctx context.Context,
	roleID uuid.UUID,
) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT permission FROM role_permissions WHERE role_id = $1 ORDER BY permission ASC`,
		roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query role permissions: %w", MapError(err))
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var permission string
		if err := rows.Scan(&permission); err != nil {
			return nil, fmt.Errorf("failed to scan permission row: %w", err)
		}
		permissions = append(permissions, permission)
	}

	return permissions, rows.Err()
}
