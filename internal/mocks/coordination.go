package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/store"
	"github.com/taskforge/taskforge/internal/tasking"
)

// MockLocker implements tasking.Locker with process-local locks. Keys
// held by one acquisition are unavailable to others until released,
// mirroring session-scoped advisory locks within a single test process.
type MockLocker struct {
	mu   sync.Mutex
	held map[int64]bool

	// Err injects a failure for every acquisition.
	Err error
}

// NewMockLocker creates a locker with no held keys.
func NewMockLocker() *MockLocker {
	return &MockLocker{held: make(map[int64]bool)}
}

func (l *MockLocker) Acquire(_ context.Context, key int64) (tasking.Lock, error) {
	if l.Err != nil {
		return nil, l.Err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] {
		return nil, store.ErrLockUnavailable
	}
	l.held[key] = true
	return &mockLock{locker: l, key: key}, nil
}

func (l *MockLocker) AcquireTask(ctx context.Context, taskID uuid.UUID) (tasking.Lock, error) {
	return l.Acquire(ctx, taskLockKey(taskID))
}

// Hold marks a task's key as held by some other session. Test helper.
func (l *MockLocker) Hold(taskID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[taskLockKey(taskID)] = true
}

type mockLock struct {
	locker *MockLocker
	key    int64
}

func (k *mockLock) Release(_ context.Context) error {
	k.locker.mu.Lock()
	defer k.locker.mu.Unlock()

	if !k.locker.held[k.key] {
		return store.ErrLockNotHeld
	}
	delete(k.locker.held, k.key)
	return nil
}

// taskLockKey folds a task id into a lock key the same way the real
// locker does, so held/free state lines up across Acquire and
// AcquireTask.
func taskLockKey(taskID uuid.UUID) int64 {
	var hi, lo uint64
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(taskID[i])
		lo = lo<<8 | uint64(taskID[i+8])
	}
	return int64((hi ^ lo) & 0x7FFFFFFFFFFFFFFF)
}

// MockNotifier implements tasking.WakeupNotifier, recording every
// notification.
type MockNotifier struct {
	mu      sync.Mutex
	wakeups int
	cancels []uuid.UUID

	// Err injects a failure for every notification.
	Err error
}

// NewMockNotifier creates a notifier with no recorded notifications.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (n *MockNotifier) NotifyWakeup(_ context.Context) error {
	if n.Err != nil {
		return n.Err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.wakeups++
	return nil
}

func (n *MockNotifier) NotifyCancel(_ context.Context, taskID uuid.UUID) error {
	if n.Err != nil {
		return n.Err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancels = append(n.cancels, taskID)
	return nil
}

// Wakeups returns how many wakeup notifications were sent.
func (n *MockNotifier) Wakeups() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.wakeups
}

// Cancels returns the task ids cancellation was requested for.
func (n *MockNotifier) Cancels() []uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]uuid.UUID, len(n.cancels))
	copy(out, n.cancels)
	return out
}

// MockListener implements tasking.NotificationListener over a channel.
// Tests push notifications with Notify; waiting callers block until one
// arrives or their context expires.
type MockListener struct {
	ch     chan *tasking.Notification
	closed chan struct{}
	once   sync.Once
}

// NewMockListener creates a listener with a small notification buffer.
func NewMockListener() *MockListener {
	return &MockListener{
		ch:     make(chan *tasking.Notification, 16),
		closed: make(chan struct{}),
	}
}

// Notify delivers a notification to a waiting caller. Notifications
// are dropped when the buffer is full, like a missed NOTIFY.
func (l *MockListener) Notify(channel, payload string) {
	select {
	case l.ch <- &tasking.Notification{Channel: channel, Payload: payload}:
	default:
	}
}

func (l *MockListener) WaitForNotification(ctx context.Context) (*tasking.Notification, error) {
	select {
	case n := <-l.ch:
		return n, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closed:
		return nil, context.Canceled
	}
}

func (l *MockListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}
