package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Schedule-specific validation errors
var (
	// ErrScheduleNameEmpty is returned when a schedule name is empty.
	ErrScheduleNameEmpty = errors.New("schedule name cannot be empty")

	// ErrScheduleTaskNameEmpty is returned when a schedule has no task name.
	ErrScheduleTaskNameEmpty = errors.New("schedule task name cannot be empty")
)

// TaskSchedule describes a recurring or one-shot dispatch of a named
// task. NextDispatch is nil once the schedule is deactivated; a nil
// DispatchInterval marks the schedule as one-shot, deactivated after its
// single dispatch. LastTaskID points at the most recently spawned task.
//
// Invariant: NextDispatch, once advanced, is never earlier than the
// dispatch time of the last spawned task.
type TaskSchedule struct {
	ID               uuid.UUID      `json:"id"`
	Name             string         `json:"name"`
	NextDispatch     *time.Time     `json:"next_dispatch,omitempty"`
	DispatchInterval *time.Duration `json:"dispatch_interval,omitempty"`
	TaskName         string         `json:"task_name"`
	LastTaskID       *uuid.UUID     `json:"last_task_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// NewTaskSchedule creates a schedule due immediately. A nil interval
// makes it one-shot.
func NewTaskSchedule(name, taskName string, interval *time.Duration) (*TaskSchedule, error) {
	if name == "" {
		return nil, ErrScheduleNameEmpty
	}
	if taskName == "" {
		return nil, ErrScheduleTaskNameEmpty
	}

	now := time.Now().UTC()
	return &TaskSchedule{
		ID:               uuid.New(),
		Name:             name,
		NextDispatch:     &now,
		DispatchInterval: interval,
		TaskName:         taskName,
		CreatedAt:        now,
	}, nil
}

// Due reports whether the schedule should dispatch at the given time.
// A deactivated schedule is never due.
func (s *TaskSchedule) Due(now time.Time) bool {
	return s.NextDispatch != nil && !s.NextDispatch.After(now)
}

// Advance computes the next dispatch time after a dispatch at now.
// It steps the current NextDispatch forward by whole intervals until it
// lands in the future, so a schedule that missed several windows fires
// once rather than once per missed window. One-shot schedules return nil,
// deactivating the schedule.
func (s *TaskSchedule) Advance(now time.Time) *time.Time {
	if s.DispatchInterval == nil || s.NextDispatch == nil {
		return nil
	}

	next := *s.NextDispatch
	for !next.After(now) {
		next = next.Add(*s.DispatchInterval)
	}
	return &next
}
