package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskState represents the lifecycle state of a task.
type TaskState string

// Possible task states.
const (
	TaskStateWaiting   TaskState = "waiting"
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCanceling TaskState = "canceling"
	TaskStateCanceled  TaskState = "canceled"
	TaskStateSkipped   TaskState = "skipped"
)

// FinalTaskStates lists the terminal states. A task in one of these states
// never transitions again.
var FinalTaskStates = []TaskState{
	TaskStateCompleted,
	TaskStateFailed,
	TaskStateCanceled,
	TaskStateSkipped,
}

// IncompleteTaskStates lists the states a dispatcher still has to care
// about: the task is either waiting to run, running, or being canceled.
var IncompleteTaskStates = []TaskState{
	TaskStateWaiting,
	TaskStateRunning,
	TaskStateCanceling,
}

// Valid reports whether s is one of the known task states.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStateWaiting, TaskStateRunning, TaskStateCompleted,
		TaskStateFailed, TaskStateCanceling, TaskStateCanceled, TaskStateSkipped:
		return true
	default:
		return false
	}
}

// IsFinal reports whether the state is terminal.
func (s TaskState) IsFinal() bool {
	for _, final := range FinalTaskStates {
		if s == final {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a valid step of
// the task state machine. Terminal states admit no further transitions.
func (s TaskState) CanTransitionTo(next TaskState) bool {
	switch s {
	case TaskStateWaiting:
		return next == TaskStateRunning ||
			next == TaskStateCanceling ||
			next == TaskStateSkipped
	case TaskStateRunning:
		return next == TaskStateCompleted ||
			next == TaskStateFailed ||
			next == TaskStateCanceling
	case TaskStateCanceling:
		return next == TaskStateCanceled || next == TaskStateFailed
	default:
		return false
	}
}

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskNameEmpty is returned when a task name is empty.
	ErrTaskNameEmpty = errors.New("task name cannot be empty")

	// ErrTaskStateInvalid is returned when a task carries an unknown state.
	ErrTaskStateInvalid = errors.New("task state is not a known state")
)

// TaskError is the structured failure payload persisted with a failed
// task: the error's type, its message, and the goroutine stack trace
// captured at the point of failure. It is stored as a JSON document.
type TaskError struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Traceback   string `json:"traceback,omitempty"`
}

// Task represents a unit of background work coordinated through the
// shared store. Args and Kwargs are opaque serialized parameters handed
// to the registered handler; ReservedResources is immutable once the
// task has been created.
type Task struct {
	ID                uuid.UUID       `json:"id"`
	State             TaskState       `json:"state"`
	Name              string          `json:"name"`
	LoggingCID        string          `json:"logging_cid"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	FinishedAt        *time.Time      `json:"finished_at,omitempty"`
	Error             *TaskError      `json:"error,omitempty"`
	Args              json.RawMessage `json:"args,omitempty"`
	Kwargs            json.RawMessage `json:"kwargs,omitempty"`
	ReservedResources []string        `json:"reserved_resources,omitempty"`
	ParentTaskID      *uuid.UUID      `json:"parent_task_id,omitempty"`
	TaskGroupID       *uuid.UUID      `json:"task_group_id,omitempty"`
	WorkerName        *string         `json:"worker,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// NewTask creates a Task in the waiting state with a fresh UUID.
// Returns an error if validation fails.
func NewTask(name string, args, kwargs json.RawMessage, resources []string) (*Task, error) {
	task := &Task{
		ID:                uuid.New(),
		State:             TaskStateWaiting,
		Name:              name,
		Args:              args,
		Kwargs:            kwargs,
		ReservedResources: resources,
		CreatedAt:         time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks that the task's fields are valid.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.Name == "" {
		return ErrTaskNameEmpty
	}

	if !t.State.Valid() {
		return ErrTaskStateInvalid
	}
	return nil
}
