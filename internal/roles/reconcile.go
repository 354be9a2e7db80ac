// Package roles reconciles the declared locked roles with storage.
// Locked roles are system-managed: at startup the declared set fully
// replaces whatever locked roles a previous deployment left behind,
// while unlocked (user-defined) roles are never touched.
package roles

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/platform/logger"
	"github.com/taskforge/taskforge/internal/store"
)

// Prefix namespaces every locked role this system manages.
// Reconciliation only ever deletes locked roles under this prefix, so
// other applications sharing the role tables are left alone.
const Prefix = "taskforge."

// Definitions is the declared desired state: role name to definition.
// Names must carry the Prefix.
type Definitions map[string]domain.RoleDefinition

// Defaults returns the locked roles a deployment ships with.
func Defaults() Definitions {
	return Definitions{
		Prefix + "task_owner": {
			Description: "May inspect and cancel the tasks it dispatched.",
			Permissions: []string{"core.view_task", "core.cancel_task", "core.delete_task"},
		},
		Prefix + "task_viewer": {
			Description: "May inspect tasks.",
			Permissions: []string{"core.view_task"},
		},
		Prefix + "worker_admin": {
			Description: "May inspect and remove workers.",
			Permissions: []string{"core.view_worker", "core.delete_worker"},
		},
	}
}

// Reconcile replaces the stored locked roles under Prefix with the
// declared set, in one transaction: obsolete locked roles are deleted
// and every declared role is upserted with its full permission set.
func Reconcile(ctx context.Context, db *sql.DB, roles store.RoleStore, desired Definitions) error {
	log := logger.FromContext(ctx)

	for name := range desired {
		if len(name) <= len(Prefix) || name[:len(Prefix)] != Prefix {
			return fmt.Errorf("declared role %q lacks the %q prefix", name, Prefix)
		}
	}

	names := make([]string, 0, len(desired))
	for name := range desired {
		names = append(names, name)
	}
	sort.Strings(names)

	err := store.RunInTransaction(ctx, db, func(txCtx context.Context, tx *sql.Tx) error {
		return apply(txCtx, roles.WithTx(tx), names, desired)
	})
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "locked roles reconciled", "count", len(names))
	return nil
}

// apply performs the actual replacement against the given store.
func apply(ctx context.Context, roles store.RoleStore, names []string, desired Definitions) error {
	log := logger.FromContext(ctx)

	removed, err := roles.DeleteLockedExcept(ctx, Prefix, names)
	if err != nil {
		return fmt.Errorf("deleting obsolete locked roles: %w", err)
	}
	if removed > 0 {
		log.InfoContext(ctx, "removed obsolete locked roles", "count", removed)
	}

	for _, name := range names {
		if err := roles.Upsert(ctx, name, desired[name]); err != nil {
			return fmt.Errorf("upserting role %q: %w", name, err)
		}
	}
	return nil
}
