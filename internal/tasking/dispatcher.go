package tasking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/platform/logger"
	"github.com/taskforge/taskforge/internal/store"
)

// ClaimedTask is a waiting task handed to a worker together with the
// advisory lock that protects it. The caller owns the lock and must
// release it when execution finishes.
type ClaimedTask struct {
	Task *domain.Task
	Lock Lock
}

// Dispatcher scans the incomplete task set in creation order and claims
// the first waiting task whose resource reservations do not conflict
// with any task ahead of it. As a side effect of the scan it also reaps
// unclaimed canceling tasks and tasks abandoned by a vanished worker,
// since detecting those requires exactly the lock probe the scan
// performs anyway.
type Dispatcher struct {
	tasks   store.TaskStore
	workers store.WorkerStore
	locker  Locker
	notify  WakeupNotifier
}

// NewDispatcher creates a Dispatcher over the given stores.
func NewDispatcher(
	tasks store.TaskStore,
	workers store.WorkerStore,
	locker Locker,
	notify WakeupNotifier,
) *Dispatcher {
	return &Dispatcher{
		tasks:   tasks,
		workers: workers,
		locker:  locker,
		notify:  notify,
	}
}

// NextTask returns the next runnable task, locked and ready for
// execution, or nil when no task is currently eligible. Resource
// accounting is rebuilt from scratch on every call: each task ahead of a
// candidate contributes its claims whether it is running, claimed by
// another worker, or merely earlier in the queue, so ordering between
// conflicting tasks is preserved fleet-wide.
func (d *Dispatcher) NextTask(ctx context.Context) (*ClaimedTask, error) {
	log := logger.FromContext(ctx)

	tasks, err := d.tasks.ListIncomplete(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing incomplete tasks: %w", err)
	}

	taken := domain.NewResourceAccounting()

	for _, task := range tasks {
		claims := domain.ParseResourceClaims(task.ReservedResources)

		if taken.Blocked(claims) {
			taken.Take(claims)
			continue
		}

		lock, err := d.locker.AcquireTask(ctx, task.ID)
		if errors.Is(err, store.ErrLockUnavailable) {
			// Another worker is handling this task right now.
			taken.Take(claims)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("acquiring lock for task %s: %w", task.ID, err)
		}

		claimed, reaped, err := d.inspectLocked(ctx, log, task, lock)
		if err != nil {
			releaseLock(ctx, log, lock)
			return nil, err
		}
		if claimed != nil {
			return claimed, nil
		}

		releaseLock(ctx, log, lock)
		if !reaped {
			// A reaped task just released its reservations, so they
			// must not count against tasks queued behind it.
			taken.Take(claims)
		}
	}

	return nil, nil
}

// inspectLocked re-reads a locked task and decides what to do with it.
// It returns a non-nil ClaimedTask when the task is waiting and should
// run on this worker; otherwise it reaps the task if needed and returns
// nil so the scan continues. reaped reports that the task no longer
// holds its reservations, either because the inspection finished it or
// because it was already gone.
func (d *Dispatcher) inspectLocked(
	ctx context.Context,
	log *slog.Logger,
	stale *domain.Task,
	lock Lock,
) (claimed *ClaimedTask, reaped bool, err error) {
	// The listing is a snapshot; only the state read under the lock is
	// authoritative.
	task, err := d.tasks.GetByID(ctx, stale.ID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("refreshing task %s: %w", stale.ID, err)
	}

	switch task.State {
	case domain.TaskStateWaiting:
		return &ClaimedTask{Task: task, Lock: lock}, false, nil

	case domain.TaskStateCanceling:
		// Lock acquirable and state still canceling: no worker is
		// supervising the task, so the cancellation falls to us.
		if err := d.reapCanceling(ctx, task); err != nil {
			return nil, false, err
		}
		return nil, true, nil

	case domain.TaskStateRunning:
		// Lock acquirable while running means the executing worker's
		// session is gone. Confirm the worker is actually missing before
		// declaring the task abandoned.
		abandoned, err := d.workerMissing(ctx, task)
		if err != nil {
			return nil, false, err
		}
		if abandoned {
			log.WarnContext(ctx, "failing task abandoned by missing worker",
				"task_id", task.ID,
				"worker_name", workerName(task))
			if err := d.failAbandoned(ctx, task); err != nil {
				return nil, false, err
			}
			return nil, true, nil
		}
		return nil, false, nil

	default:
		// Finished between the listing and the lock probe; its
		// reservations are already free.
		return nil, true, nil
	}
}

func (d *Dispatcher) workerMissing(ctx context.Context, task *domain.Task) (bool, error) {
	if task.WorkerName == nil {
		return true, nil
	}

	online, err := d.workers.OnlineWorkers(ctx)
	if err != nil {
		return false, fmt.Errorf("listing online workers: %w", err)
	}

	for _, w := range online {
		if w.Name == *task.WorkerName {
			return false, nil
		}
	}
	return true, nil
}

// reapCanceling finalizes a canceling task that no worker supervises:
// its created resources are removed and it lands in canceled.
func (d *Dispatcher) reapCanceling(ctx context.Context, task *domain.Task) error {
	if _, err := d.tasks.DeleteCreatedResources(ctx, task.ID); err != nil {
		return fmt.Errorf("deleting created resources of task %s: %w", task.ID, err)
	}

	if _, err := d.tasks.FinishCanceling(ctx, task.ID, domain.TaskStateCanceled, nil); err != nil {
		return fmt.Errorf("canceling task %s: %w", task.ID, err)
	}

	return d.wakeupAfter(ctx, task)
}

// failAbandoned fails a running task whose worker has gone missing,
// after removing whatever resources the dead run left behind.
func (d *Dispatcher) failAbandoned(ctx context.Context, task *domain.Task) error {
	if _, err := d.tasks.DeleteCreatedResources(ctx, task.ID); err != nil {
		return fmt.Errorf("deleting created resources of task %s: %w", task.ID, err)
	}

	taskErr := &domain.TaskError{
		Type:        "WorkerUnavailable",
		Description: "Worker has gone missing.",
	}
	if _, err := d.tasks.SetFailed(ctx, task.ID, taskErr); err != nil {
		return fmt.Errorf("failing abandoned task %s: %w", task.ID, err)
	}

	return d.wakeupAfter(ctx, task)
}

// wakeupAfter nudges the fleet when a finished task held reservations,
// since its removal from the scan may unblock a queued task.
func (d *Dispatcher) wakeupAfter(ctx context.Context, task *domain.Task) error {
	if len(task.ReservedResources) == 0 {
		return nil
	}
	if err := d.notify.NotifyWakeup(ctx); err != nil {
		return fmt.Errorf("notifying workers after task %s: %w", task.ID, err)
	}
	return nil
}

func releaseLock(ctx context.Context, log *slog.Logger, lock Lock) {
	if err := lock.Release(ctx); err != nil {
		log.ErrorContext(ctx, "failed to release task lock", "error", err)
	}
}

func workerName(task *domain.Task) string {
	if task.WorkerName == nil {
		return ""
	}
	return *task.WorkerName
}
