package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/platform/postgres"
	"github.com/taskforge/taskforge/internal/tasking"
)

// lockerAdapter exposes the advisory locker through the coordination
// interfaces.
type lockerAdapter struct {
	locker *postgres.AdvisoryLocker
}

func (a *lockerAdapter) Acquire(ctx context.Context, key int64) (tasking.Lock, error) {
	return a.locker.Acquire(ctx, key)
}

func (a *lockerAdapter) AcquireTask(ctx context.Context, taskID uuid.UUID) (tasking.Lock, error) {
	return a.locker.AcquireTask(ctx, taskID)
}

// listenerAdapter exposes the notification listener through the
// coordination interfaces.
type listenerAdapter struct {
	listener *postgres.Listener
}

func (a *listenerAdapter) WaitForNotification(ctx context.Context) (*tasking.Notification, error) {
	n, err := a.listener.WaitForNotification(ctx)
	if err != nil {
		return nil, err
	}
	return &tasking.Notification{Channel: n.Channel, Payload: n.Payload}, nil
}

func (a *listenerAdapter) Close() error {
	return a.listener.Close()
}
