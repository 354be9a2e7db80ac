package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestNewTask(t *testing.T) {
	t.Parallel() // Enable parallel execution
	args := json.RawMessage(`["repo-1"]`)
	kwargs := json.RawMessage(`{"force": true}`)
	resources := []string{"content:repo:1", "shared:artifact:2"}

	task, err := NewTask("sync.repository", args, kwargs, resources)

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if task.State != TaskStateWaiting {
		t.Errorf("Expected state %s, got %s", TaskStateWaiting, task.State)
	}

	if task.Name != "sync.repository" {
		t.Errorf("Expected name sync.repository, got %s", task.Name)
	}

	if len(task.ReservedResources) != 2 {
		t.Errorf("Expected 2 reserved resources, got %d", len(task.ReservedResources))
	}

	if task.StartedAt != nil || task.FinishedAt != nil {
		t.Error("Expected nil timestamps on a waiting task")
	}

	if task.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	// Test empty name
	_, err = NewTask("", args, kwargs, nil)
	if err != ErrTaskNameEmpty {
		t.Errorf("Expected error %v, got %v", ErrTaskNameEmpty, err)
	}
}

func TestTaskValidate(t *testing.T) {
	t.Parallel() // Enable parallel execution
	validTask := Task{
		ID:    uuid.New(),
		Name:  "sync.repository",
		State: TaskStateWaiting,
	}

	if err := validTask.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	noID := validTask
	noID.ID = uuid.Nil
	if err := noID.Validate(); err != ErrTaskIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrTaskIDEmpty, err)
	}

	badState := validTask
	badState.State = "paused"
	if err := badState.Validate(); err != ErrTaskStateInvalid {
		t.Errorf("Expected error %v, got %v", ErrTaskStateInvalid, err)
	}
}

func TestTaskStateIsFinal(t *testing.T) {
	t.Parallel() // Enable parallel execution
	finals := map[TaskState]bool{
		TaskStateWaiting:   false,
		TaskStateRunning:   false,
		TaskStateCanceling: false,
		TaskStateCompleted: true,
		TaskStateFailed:    true,
		TaskStateCanceled:  true,
		TaskStateSkipped:   true,
	}

	for state, want := range finals {
		if got := state.IsFinal(); got != want {
			t.Errorf("IsFinal(%s) = %v, want %v", state, got, want)
		}
	}
}

func TestTaskStateTransitions(t *testing.T) {
	t.Parallel() // Enable parallel execution
	cases := []struct {
		from, to TaskState
		valid    bool
	}{
		{TaskStateWaiting, TaskStateRunning, true},
		{TaskStateWaiting, TaskStateCanceling, true},
		{TaskStateWaiting, TaskStateSkipped, true},
		{TaskStateWaiting, TaskStateCompleted, false},
		{TaskStateRunning, TaskStateCompleted, true},
		{TaskStateRunning, TaskStateFailed, true},
		{TaskStateRunning, TaskStateCanceling, true},
		{TaskStateRunning, TaskStateWaiting, false},
		{TaskStateCanceling, TaskStateCanceled, true},
		{TaskStateCanceling, TaskStateFailed, true},
		{TaskStateCanceling, TaskStateRunning, false},
		// No terminal state may ever be followed by another state.
		{TaskStateCompleted, TaskStateRunning, false},
		{TaskStateFailed, TaskStateWaiting, false},
		{TaskStateCanceled, TaskStateCanceling, false},
		{TaskStateSkipped, TaskStateRunning, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.valid {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.valid)
		}
	}
}
