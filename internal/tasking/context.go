package tasking

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/domain"
)

// taskKey is the context key for the currently executing task.
type taskKey struct{}

// WithTask returns a context carrying the task being executed. The
// execution wrapper threads it through the handler call chain, so task
// code (and tests, via plain context injection) can resolve its own
// task without any process-global state.
func WithTask(ctx context.Context, task *domain.Task) context.Context {
	return context.WithValue(ctx, taskKey{}, task)
}

// CurrentTask returns the task carried by the context, or false when
// not executing inside a task context.
func CurrentTask(ctx context.Context) (*domain.Task, bool) {
	task, ok := ctx.Value(taskKey{}).(*domain.Task)
	return task, ok
}

// CurrentGroupID returns the task group of the currently executing
// task, or false when there is no current task or it belongs to no
// group.
func CurrentGroupID(ctx context.Context) (uuid.UUID, bool) {
	task, ok := CurrentTask(ctx)
	if !ok || task.TaskGroupID == nil {
		return uuid.Nil, false
	}
	return *task.TaskGroupID, true
}
