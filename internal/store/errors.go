package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrTaskNotFound, ErrWorkerNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a schedule with the same name).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails
	// to begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrLockUnavailable is returned when another session already holds the
	// advisory lock for the task. The caller must abandon this execution
	// attempt; the lock holder owns the task's critical section.
	ErrLockUnavailable = errors.New("advisory lock unavailable")

	// ErrLockNotHeld is returned when a lock release is attempted by a
	// session that does not hold the lock. This is a logic error in the
	// execution wrapper and must be treated as fatal, not retried.
	ErrLockNotHeld = errors.New("advisory lock not held")

	// ErrTaskFinished is returned when an attempt is made to fail a task
	// that has already reached a terminal state. Unlike the benign
	// transition races on running/completed, this indicates a logic bug:
	// failure handling happens inside the execution context that holds
	// the task's lock, so nothing else could have finished the task.
	ErrTaskFinished = errors.New("task already in a final state")

	// Entity-specific "not found" errors

	// ErrTaskNotFound indicates that the requested task does not exist in the store.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrWorkerNotFound indicates that the requested worker does not exist in the store.
	ErrWorkerNotFound = fmt.Errorf("%w: worker", ErrNotFound)

	// ErrTaskGroupNotFound indicates that the requested task group does not exist in the store.
	ErrTaskGroupNotFound = fmt.Errorf("%w: task group", ErrNotFound)

	// ErrScheduleNotFound indicates that the requested task schedule does not exist in the store.
	ErrScheduleNotFound = fmt.Errorf("%w: task schedule", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrScheduleNameExists indicates that a schedule with the given name already exists.
	ErrScheduleNameExists = fmt.Errorf("%w: schedule name", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// This includes the generic ErrNotFound and all entity-specific not found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
// This includes the generic ErrDuplicate and all entity-specific duplicate errors.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "task", "worker")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
