package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/platform/logger"
	"github.com/taskforge/taskforge/internal/tasking"
)

// registerTasks installs the built-in task handlers. Deployments extend
// this with their own handlers before the worker starts claiming.
func registerTasks(registry *tasking.Registry) error {
	if err := registry.Register("core.noop", noopTask); err != nil {
		return err
	}
	return registry.Register("core.sleep", sleepTask)
}

// noopTask completes immediately. Dispatching it exercises the whole
// queueing, claiming and execution path end to end.
func noopTask(ctx context.Context, task *domain.Task) error {
	logger.FromContext(ctx).InfoContext(ctx, "noop task executed")
	return nil
}

// sleepTask blocks for the duration given in kwargs as
// {"seconds": N}, or one second by default. Useful for exercising
// cancellation and shutdown behavior against a live fleet.
func sleepTask(ctx context.Context, task *domain.Task) error {
	seconds := 1.0
	if len(task.Kwargs) > 0 {
		var kwargs struct {
			Seconds float64 `json:"seconds"`
		}
		if err := json.Unmarshal(task.Kwargs, &kwargs); err != nil {
			return fmt.Errorf("decoding kwargs: %w", err)
		}
		if kwargs.Seconds > 0 {
			seconds = kwargs.Seconds
		}
	}

	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
