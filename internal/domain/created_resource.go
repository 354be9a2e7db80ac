package domain

import (
	"time"

	"github.com/google/uuid"
)

// CreatedResource records a resource created as a side effect of a task.
// It is owned exclusively by the creating task and is cascade-deleted
// with it. The reaper deletes the created resources of a task that is
// abandoned before completing.
type CreatedResource struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	Resource  string    `json:"resource"`
	CreatedAt time.Time `json:"created_at"`
}

// NewCreatedResource records a resource created by the given task.
func NewCreatedResource(taskID uuid.UUID, resource string) *CreatedResource {
	return &CreatedResource{
		ID:        uuid.New(),
		TaskID:    taskID,
		Resource:  resource,
		CreatedAt: time.Now().UTC(),
	}
}
