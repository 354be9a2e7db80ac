package tasking

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/platform/logger"
	"github.com/taskforge/taskforge/internal/store"
)

// Executor drives a claimed task through its lifecycle: it records the
// claiming worker, transitions the task to running, invokes the
// registered handler with the task threaded through the context, and
// lands the task in a terminal state no matter how the handler exits.
// The caller must hold the task's advisory lock for the whole call.
type Executor struct {
	tasks      store.TaskStore
	registry   *Registry
	notify     WakeupNotifier
	workerName string
}

// NewExecutor creates an Executor that runs tasks as the named worker.
func NewExecutor(
	tasks store.TaskStore,
	registry *Registry,
	notify WakeupNotifier,
	workerName string,
) *Executor {
	return &Executor{
		tasks:      tasks,
		registry:   registry,
		notify:     notify,
		workerName: workerName,
	}
}

// Execute runs a single claimed task to a terminal state. A handler
// error or panic fails the task; a cancellation observed before or
// after the handler runs lands it in canceled. The returned error
// reports infrastructure problems only, never handler failures: those
// are recorded on the task itself.
func (e *Executor) Execute(ctx context.Context, task *domain.Task) error {
	id := task.ID

	if err := e.tasks.AssignWorker(ctx, id, e.workerName); err != nil {
		return fmt.Errorf("assigning worker to task %s: %w", id, err)
	}

	task, err := e.tasks.SetRunning(ctx, id)
	if err != nil {
		return fmt.Errorf("setting task %s running: %w", id, err)
	}

	switch task.State {
	case domain.TaskStateRunning:
		// Claimed it; carry on below.
	case domain.TaskStateCanceling:
		// Canceled between claim and start; never run the handler.
		if err := e.finishCanceled(ctx, task); err != nil {
			return err
		}
		e.wakeupAfter(ctx, task)
		return nil
	default:
		// Lost the race to some other terminal transition.
		return nil
	}

	taskCtx := e.taskContext(ctx, task)
	log := logger.FromContext(taskCtx)
	log.InfoContext(taskCtx, "task started")

	handlerErr := e.runHandler(taskCtx, task)

	// The handler context may have been canceled by a cancellation
	// request or a shutdown abort; the terminal transition must still
	// reach storage.
	finishCtx := context.WithoutCancel(taskCtx)
	if handlerErr != nil {
		err = e.finishFailed(finishCtx, task, handlerErr)
	} else {
		err = e.finishCompleted(finishCtx, task)
	}
	if err != nil {
		return err
	}

	e.wakeupAfter(finishCtx, task)
	return nil
}

// taskContext derives the context handlers run under: it carries the
// task itself and a logger stamped with the task identity and the
// correlation ID the dispatching request supplied.
func (e *Executor) taskContext(ctx context.Context, task *domain.Task) context.Context {
	log := logger.FromContext(ctx).With(
		"task_id", task.ID,
		"task_name", task.Name,
		"logging_cid", task.LoggingCID,
	)
	return logger.WithLogger(WithTask(ctx, task), log)
}

// handlerError carries a handler failure together with the traceback a
// panic produced, if any.
type handlerError struct {
	err       error
	traceback string
}

func (h *handlerError) Error() string { return h.err.Error() }

// runHandler resolves and invokes the task's handler, converting an
// unknown task name and any panic into ordinary handler failures.
func (e *Executor) runHandler(ctx context.Context, task *domain.Task) (result *handlerError) {
	handler, ok := e.registry.Lookup(task.Name)
	if !ok {
		return &handlerError{
			err: fmt.Errorf("no handler registered for task %q", task.Name),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			result = &handlerError{
				err:       fmt.Errorf("task panicked: %v", r),
				traceback: string(debug.Stack()),
			}
		}
	}()

	if err := handler(ctx, task); err != nil {
		return &handlerError{err: err}
	}
	return nil
}

// finishFailed lands a task whose handler returned an error or
// panicked. A cancellation that raced in while the handler ran wins
// over the failure, matching how an interrupted run is reported.
func (e *Executor) finishFailed(ctx context.Context, task *domain.Task, hErr *handlerError) error {
	log := logger.FromContext(ctx)
	log.ErrorContext(ctx, "task failed", "error", hErr.err)

	refreshed, err := e.tasks.GetByID(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("refreshing task %s after failure: %w", task.ID, err)
	}
	if refreshed.State == domain.TaskStateCanceling {
		return e.finishCanceled(ctx, task)
	}

	taskErr := &domain.TaskError{
		Type:        "Error",
		Description: hErr.err.Error(),
		Traceback:   hErr.traceback,
	}
	if _, err := e.tasks.SetFailed(ctx, task.ID, taskErr); err != nil {
		if errors.Is(err, store.ErrTaskFinished) {
			// Nothing outside the lock holder may finish a running
			// task, so a prior terminal state here is corruption.
			return fmt.Errorf("task %s finished outside its execution context: %w", task.ID, err)
		}
		return fmt.Errorf("failing task %s: %w", task.ID, err)
	}
	return nil
}

// finishCompleted lands a task whose handler returned nil. If a
// cancellation arrived while the handler ran, the cancellation wins
// even though the work happened to finish.
func (e *Executor) finishCompleted(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	refreshed, err := e.tasks.GetByID(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("refreshing task %s after completion: %w", task.ID, err)
	}
	if refreshed.State == domain.TaskStateCanceling {
		log.InfoContext(ctx, "task canceled during execution")
		return e.finishCanceled(ctx, task)
	}

	if _, err := e.tasks.SetCompleted(ctx, task.ID); err != nil {
		return fmt.Errorf("completing task %s: %w", task.ID, err)
	}
	log.InfoContext(ctx, "task completed")
	return nil
}

// finishCanceled lands an observed cancellation: whatever resources the
// run created so far are removed first, then the terminal transition
// happens exactly once under the canceling guard.
func (e *Executor) finishCanceled(ctx context.Context, task *domain.Task) error {
	if _, err := e.tasks.DeleteCreatedResources(ctx, task.ID); err != nil {
		return fmt.Errorf("deleting created resources of task %s: %w", task.ID, err)
	}
	if _, err := e.tasks.FinishCanceling(ctx, task.ID, domain.TaskStateCanceled, nil); err != nil {
		return fmt.Errorf("canceling task %s: %w", task.ID, err)
	}
	return nil
}

// wakeupAfter nudges the fleet once a task that held reservations
// reaches a terminal state, so a blocked successor on another worker
// dispatches without waiting out a poll interval.
func (e *Executor) wakeupAfter(ctx context.Context, task *domain.Task) {
	if len(task.ReservedResources) == 0 {
		return
	}
	if err := e.notify.NotifyWakeup(ctx); err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "failed to send wakeup notification",
			"task_id", task.ID, "error", err)
	}
}
