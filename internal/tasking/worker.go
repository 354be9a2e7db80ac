package tasking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskforge/taskforge/internal/config"
	"github.com/taskforge/taskforge/internal/platform/logger"
	"github.com/taskforge/taskforge/internal/store"
)

// cleanupEvery is how often a worker sweeps long-missing workers out of
// the registry. The sweep is cheap and idempotent, so the cadence only
// needs to be much smaller than the cleanup age itself.
const cleanupEvery = time.Hour

// Worker is one member of the tasking fleet. It heartbeats its registry
// row, dispatches due schedules, claims and supervises tasks, and
// sweeps the registry. All of that runs on a single loop that sleeps on
// the notification channels between rounds.
type Worker struct {
	name          string
	cfg           config.WorkerConfig
	workers       store.WorkerStore
	dispatcher    *Dispatcher
	executor      *Executor
	scheduler     *Scheduler
	listener      NotificationListener
	cancelChannel string
}

// NewWorker assembles a fleet worker. cancelChannel names the
// notification channel that carries cancellation requests; its payload
// is the canceled task's id.
func NewWorker(
	name string,
	cfg config.WorkerConfig,
	workers store.WorkerStore,
	dispatcher *Dispatcher,
	executor *Executor,
	scheduler *Scheduler,
	listener NotificationListener,
	cancelChannel string,
) *Worker {
	return &Worker{
		name:          name,
		cfg:           cfg,
		workers:       workers,
		dispatcher:    dispatcher,
		executor:      executor,
		scheduler:     scheduler,
		listener:      listener,
		cancelChannel: cancelChannel,
	}
}

// Run registers the worker and executes its main loop until the context
// is canceled. On a clean shutdown the worker removes its own registry
// row so the fleet does not wait a full TTL to notice it is gone.
func (w *Worker) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).With("worker_name", w.name)
	ctx = logger.WithLogger(ctx, log)

	if _, err := w.workers.Heartbeat(ctx, w.name); err != nil {
		return fmt.Errorf("registering worker %s: %w", w.name, err)
	}
	log.InfoContext(ctx, "worker online", "heartbeat_interval", w.beatInterval())

	defer w.deregister(ctx)

	nextBeat := time.Now().Add(w.beatInterval())
	nextCleanup := time.Now().Add(cleanupEvery)

	for ctx.Err() == nil {
		now := time.Now()

		if !now.Before(nextBeat) {
			w.beat(ctx)
			nextBeat = now.Add(w.beatInterval())
		}

		if !now.Before(nextCleanup) {
			w.cleanup(ctx)
			nextCleanup = now.Add(cleanupEvery)
		}

		if _, err := w.scheduler.DispatchDue(ctx, now); err != nil {
			log.ErrorContext(ctx, "schedule dispatch failed", "error", err)
		}

		w.drainReadyTasks(ctx, &nextBeat)

		w.sleep(ctx, nextBeat)
	}

	log.InfoContext(ctx, "worker shutting down")
	return nil
}

func (w *Worker) beatInterval() time.Duration {
	return w.cfg.TTL / 3
}

func (w *Worker) beat(ctx context.Context) {
	if _, err := w.workers.Heartbeat(ctx, w.name); err != nil && ctx.Err() == nil {
		logger.FromContext(ctx).ErrorContext(ctx, "heartbeat failed", "error", err)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	removed, err := w.workers.CleanupMissing(ctx, w.cfg.CleanupAge)
	if err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "worker cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		logger.FromContext(ctx).InfoContext(ctx, "removed long-missing workers", "count", removed)
	}
}

// drainReadyTasks claims and runs tasks until the queue has nothing
// eligible. Heartbeats keep flowing between tasks so a long backlog
// does not make the worker look missing.
func (w *Worker) drainReadyTasks(ctx context.Context, nextBeat *time.Time) {
	log := logger.FromContext(ctx)

	for ctx.Err() == nil {
		claimed, err := w.dispatcher.NextTask(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.ErrorContext(ctx, "task scan failed", "error", err)
			}
			return
		}
		if claimed == nil {
			return
		}

		w.supervise(ctx, claimed)

		if now := time.Now(); !now.Before(*nextBeat) {
			w.beat(ctx)
			*nextBeat = now.Add(w.beatInterval())
		}
	}
}

// supervise runs one claimed task while watching for cancellation
// notifications and shutdown. A cancellation aimed at the running task
// cancels the handler's context immediately; a shutdown request grants
// the handler a grace period of GraceBeats heartbeat intervals before
// aborting it.
func (w *Worker) supervise(ctx context.Context, claimed *ClaimedTask) {
	log := logger.FromContext(ctx)

	// Store operations and the lock release must survive shutdown.
	opCtx := context.WithoutCancel(ctx)
	defer releaseLock(opCtx, log, claimed.Lock)

	taskCtx, abortTask := context.WithCancel(opCtx)
	defer abortTask()

	done := make(chan error, 1)
	go func() {
		done <- w.executor.Execute(taskCtx, claimed.Task)
	}()

	notifications := make(chan *Notification)
	notifCtx, stopNotifications := context.WithCancel(opCtx)
	defer stopNotifications()
	go w.pumpNotifications(notifCtx, notifications)

	beats := time.NewTicker(w.beatInterval())
	defer beats.Stop()

	ctxDone := ctx.Done()
	var graceExpired <-chan time.Time

	for {
		select {
		case err := <-done:
			if err != nil {
				log.ErrorContext(opCtx, "task supervision failed",
					"task_id", claimed.Task.ID, "error", err)
			}
			return

		case <-beats.C:
			w.beat(opCtx)

		case n := <-notifications:
			if n.Channel == w.cancelChannel && n.Payload == claimed.Task.ID.String() {
				log.InfoContext(opCtx, "aborting task on cancellation request",
					"task_id", claimed.Task.ID)
				abortTask()
			}

		case <-ctxDone:
			ctxDone = nil
			grace := time.Duration(w.cfg.GraceBeats) * w.beatInterval()
			log.InfoContext(opCtx, "shutdown requested while task running",
				"task_id", claimed.Task.ID, "grace", grace)
			timer := time.NewTimer(grace)
			defer timer.Stop()
			graceExpired = timer.C

		case <-graceExpired:
			log.WarnContext(opCtx, "aborting task on shutdown",
				"task_id", claimed.Task.ID)
			abortTask()
			graceExpired = nil
		}
	}
}

// pumpNotifications forwards listener notifications to a channel so the
// supervision loop can select on them.
func (w *Worker) pumpNotifications(ctx context.Context, out chan<- *Notification) {
	for ctx.Err() == nil {
		n, err := w.listener.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.FromContext(ctx).ErrorContext(ctx, "notification wait failed", "error", err)
			continue
		}
		select {
		case out <- n:
		case <-ctx.Done():
			return
		}
	}
}

// sleep blocks until a notification arrives, the next heartbeat is due,
// the poll interval elapses, or shutdown begins. The poll interval
// bounds how stale the worker's view of the queue can get if a wakeup
// notification is lost.
func (w *Worker) sleep(ctx context.Context, nextBeat time.Time) {
	deadline := time.Now().Add(w.cfg.PollInterval)
	if nextBeat.Before(deadline) {
		deadline = nextBeat
	}

	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	_, err := w.listener.WaitForNotification(waitCtx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		logger.FromContext(ctx).ErrorContext(ctx, "notification wait failed", "error", err)
	}
}

// deregister removes the worker's registry row on clean shutdown.
func (w *Worker) deregister(ctx context.Context) {
	opCtx := context.WithoutCancel(ctx)

	if err := w.workers.Delete(opCtx, w.name); err != nil && !errors.Is(err, store.ErrWorkerNotFound) {
		logger.FromContext(ctx).ErrorContext(opCtx, "failed to deregister worker", "error", err)
		return
	}
	logger.FromContext(ctx).InfoContext(opCtx, "worker deregistered")
}
