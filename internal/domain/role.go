package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is a named, locked set of permissions managed by deployment-time
// reconciliation. Locked roles belong to the system: reconciliation
// deletes the ones no longer declared and upserts the declared ones.
type Role struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Locked      bool      `json:"locked"`
	Permissions []string  `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoleDefinition is the declared desired state of a role: an optional
// description and the full permission set.
type RoleDefinition struct {
	Description string
	Permissions []string
}
