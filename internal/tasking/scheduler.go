package tasking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/platform/logger"
	"github.com/taskforge/taskforge/internal/store"
)

// Scheduler turns due task schedules into waiting tasks. Every worker
// runs one, but a fixed advisory lock serializes dispatch fleet-wide so
// each due window spawns exactly one task.
type Scheduler struct {
	schedules store.ScheduleStore
	tasks     store.TaskStore
	locker    Locker
	notify    WakeupNotifier
}

// NewScheduler creates a Scheduler over the given stores.
func NewScheduler(
	schedules store.ScheduleStore,
	tasks store.TaskStore,
	locker Locker,
	notify WakeupNotifier,
) *Scheduler {
	return &Scheduler{
		schedules: schedules,
		tasks:     tasks,
		locker:    locker,
		notify:    notify,
	}
}

// DispatchDue spawns a task for every schedule due at now and returns
// how many were dispatched. When another worker holds the scheduler
// lock it returns immediately with zero: that worker is already
// dispatching the same due set.
func (s *Scheduler) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	log := logger.FromContext(ctx)

	lock, err := s.locker.Acquire(ctx, SchedulerLockKey)
	if errors.Is(err, store.ErrLockUnavailable) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("acquiring scheduler lock: %w", err)
	}
	defer releaseLock(ctx, log, lock)

	due, err := s.schedules.ListDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("listing due schedules: %w", err)
	}

	dispatched := 0
	for _, schedule := range due {
		if err := s.dispatch(ctx, schedule, now); err != nil {
			return dispatched, err
		}
		log.InfoContext(ctx, "dispatched scheduled task",
			"schedule_name", schedule.Name,
			"task_name", schedule.TaskName)
		dispatched++
	}

	if dispatched > 0 {
		if err := s.notify.NotifyWakeup(ctx); err != nil {
			return dispatched, fmt.Errorf("notifying workers: %w", err)
		}
	}
	return dispatched, nil
}

// dispatch spawns one task for a due schedule and advances its next
// dispatch time. A schedule that missed several windows while no worker
// was alive fires once, not once per missed window.
func (s *Scheduler) dispatch(ctx context.Context, schedule *domain.TaskSchedule, now time.Time) error {
	task, err := domain.NewTask(schedule.TaskName, nil, nil, nil)
	if err != nil {
		return fmt.Errorf("building task for schedule %q: %w", schedule.Name, err)
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return fmt.Errorf("creating task for schedule %q: %w", schedule.Name, err)
	}

	next := schedule.Advance(now)
	if err := s.schedules.RecordDispatch(ctx, schedule.ID, task.ID, next); err != nil {
		return fmt.Errorf("recording dispatch of schedule %q: %w", schedule.Name, err)
	}
	return nil
}
