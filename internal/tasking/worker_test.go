package tasking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/internal/config"
	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/mocks"
	"github.com/taskforge/taskforge/internal/store"
	"github.com/taskforge/taskforge/internal/tasking"
)

const testCancelChannel = "task_cancel"

type workerFixture struct {
	tasks     *mocks.MockTaskStore
	workers   *mocks.MockWorkerStore
	schedules *mocks.MockScheduleStore
	locker    *mocks.MockLocker
	notifier  *mocks.MockNotifier
	listener  *mocks.MockListener
	registry  *tasking.Registry
	worker    *tasking.Worker
}

func newWorkerFixture(t *testing.T, name string) *workerFixture {
	t.Helper()

	cfg := config.WorkerConfig{
		TTL:          300 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
		GraceBeats:   1,
		CleanupAge:   time.Hour,
	}

	f := &workerFixture{
		tasks:     mocks.NewMockTaskStore(),
		workers:   mocks.NewMockWorkerStore(cfg.TTL),
		schedules: mocks.NewMockScheduleStore(),
		locker:    mocks.NewMockLocker(),
		notifier:  mocks.NewMockNotifier(),
		listener:  mocks.NewMockListener(),
		registry:  tasking.NewRegistry(),
	}

	dispatcher := tasking.NewDispatcher(f.tasks, f.workers, f.locker, f.notifier)
	executor := tasking.NewExecutor(f.tasks, f.registry, f.notifier, name)
	scheduler := tasking.NewScheduler(f.schedules, f.tasks, f.locker, f.notifier)

	f.worker = tasking.NewWorker(
		name, cfg, f.workers, dispatcher, executor, scheduler, f.listener, testCancelChannel)
	return f
}

// run starts the worker loop and returns a stop function that shuts it
// down and waits for it to exit.
func (f *workerFixture) run(t *testing.T) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.worker.Run(ctx)
	}()

	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not shut down")
		}
	}
}

func TestWorkerRunsTaskToCompletion(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t, "task-worker@host-a")
	require.NoError(t, f.registry.Register("sync",
		func(_ context.Context, _ *domain.Task) error { return nil }))

	task, err := domain.NewTask("sync", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.tasks.Create(context.Background(), task))

	stop := f.run(t)

	require.Eventually(t, func() bool {
		got, err := f.tasks.GetByID(context.Background(), task.ID)
		return err == nil && got.State == domain.TaskStateCompleted
	}, 5*time.Second, 10*time.Millisecond)

	// While alive, the worker is registered and online.
	online, err := f.workers.OnlineWorkers(context.Background())
	require.NoError(t, err)
	require.Len(t, online, 1)
	assert.Equal(t, "task-worker@host-a", online[0].Name)

	stop()

	// Clean shutdown removes the registry row immediately.
	_, err = f.workers.GetByName(context.Background(), "task-worker@host-a")
	assert.ErrorIs(t, err, store.ErrWorkerNotFound)
}

func TestWorkerPicksUpTaskCreatedWhileSleeping(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t, "task-worker@host-b")
	require.NoError(t, f.registry.Register("sync",
		func(_ context.Context, _ *domain.Task) error { return nil }))

	stop := f.run(t)
	defer stop()

	// Let the worker reach its sleep before work arrives.
	time.Sleep(50 * time.Millisecond)

	task, err := domain.NewTask("sync", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.tasks.Create(context.Background(), task))
	f.listener.Notify("worker_wakeup", "")

	require.Eventually(t, func() bool {
		got, err := f.tasks.GetByID(context.Background(), task.ID)
		return err == nil && got.State == domain.TaskStateCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWorkerAbortsTaskOnCancelNotification(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t, "task-worker@host-c")

	started := make(chan struct{})
	require.NoError(t, f.registry.Register("long",
		func(ctx context.Context, _ *domain.Task) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}))

	task, err := domain.NewTask("long", nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, f.tasks.Create(context.Background(), task))

	stop := f.run(t)
	defer stop()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("task never started")
	}

	// The cancel request flips the state first, then the notification
	// tells the supervising worker to abort the handler.
	_, err = f.tasks.SetCanceling(context.Background(), task.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		f.listener.Notify(testCancelChannel, task.ID.String())
		got, err := f.tasks.GetByID(context.Background(), task.ID)
		return err == nil && got.State == domain.TaskStateCanceled
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWorkerDispatchesDueSchedules(t *testing.T) {
	t.Parallel()

	f := newWorkerFixture(t, "task-worker@host-d")
	require.NoError(t, f.registry.Register("cleanup",
		func(_ context.Context, _ *domain.Task) error { return nil }))

	schedule, err := domain.NewTaskSchedule("once", "cleanup", nil)
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Minute)
	schedule.NextDispatch = &past
	require.NoError(t, f.schedules.Create(context.Background(), schedule))

	stop := f.run(t)
	defer stop()

	require.Eventually(t, func() bool {
		done, err := f.tasks.ListByState(context.Background(), domain.TaskStateCompleted)
		return err == nil && len(done) == 1 && done[0].Name == "cleanup"
	}, 5*time.Second, 10*time.Millisecond)
}
