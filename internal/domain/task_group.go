package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskGroup aggregates a batch of related tasks. AllTasksDispatched is
// false while the producer may still add tasks to the group; it is set
// to true exactly once, signalling consumers that the set of tasks in
// the group is complete.
type TaskGroup struct {
	ID                 uuid.UUID `json:"id"`
	Description        string    `json:"description"`
	AllTasksDispatched bool      `json:"all_tasks_dispatched"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewTaskGroup creates a TaskGroup that is still accepting tasks.
func NewTaskGroup(description string) *TaskGroup {
	return &TaskGroup{
		ID:          uuid.New(),
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}
