package tasking

import (
	"context"

	"github.com/google/uuid"
)

// SchedulerLockKey is the fixed, well-known advisory lock key that
// serializes scheduled-task dispatch across the worker fleet.
const SchedulerLockKey int64 = 42

// Lock is a held advisory lock. Release frees the lock; a process crash
// frees it implicitly because the lock is bound to a storage session.
type Lock interface {
	// Release frees the lock. Returns store.ErrLockNotHeld if this
	// session did not hold it, which is fatal.
	Release(ctx context.Context) error
}

// Locker hands out session-scoped exclusive locks. Acquisition is
// non-blocking: store.ErrLockUnavailable means another session owns the
// key and the caller must move on rather than spin.
type Locker interface {
	// Acquire locks an arbitrary 63-bit key.
	Acquire(ctx context.Context, key int64) (Lock, error)

	// AcquireTask locks the key folded from the task identity.
	AcquireTask(ctx context.Context, taskID uuid.UUID) (Lock, error)
}

// WakeupNotifier nudges sleeping workers after resources may have been
// freed, and delivers cancellation requests to supervising workers.
type WakeupNotifier interface {
	NotifyWakeup(ctx context.Context) error
	NotifyCancel(ctx context.Context, taskID uuid.UUID) error
}

// Notification is a wakeup or cancel message delivered to a listening
// worker.
type Notification struct {
	Channel string
	Payload string
}

// NotificationListener blocks on the fleet's notification channels.
// Implementations pin a storage session for the LISTEN subscriptions.
type NotificationListener interface {
	// WaitForNotification blocks until a notification arrives or the
	// context is done; a deadline doubles as the worker's poll cadence.
	WaitForNotification(ctx context.Context) (*Notification, error)

	Close() error
}
