package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/taskforge/taskforge/internal/platform/logger"
)

// Notification channels shared by the fleet. Wakeup is broadcast when
// resources may have been freed; cancel carries the canceled task's id
// as payload.
const (
	WakeupChannel = "taskforge_worker_wakeup"
	CancelChannel = "taskforge_task_cancel"
)

// Notifier broadcasts wakeup and cancellation notifications over
// PostgreSQL NOTIFY.
type Notifier struct {
	db *sql.DB
}

// NewNotifier creates a Notifier over the given pool.
func NewNotifier(db *sql.DB) *Notifier {
	return &Notifier{db: db}
}

// NotifyWakeup nudges sleeping workers to rescan for ready tasks.
func (n *Notifier) NotifyWakeup(ctx context.Context) error {
	_, err := n.db.ExecContext(ctx, "SELECT pg_notify($1, '')", WakeupChannel)
	if err != nil {
		return fmt.Errorf("failed to notify workers: %w", MapError(err))
	}
	return nil
}

// NotifyCancel tells the worker supervising the task to stop it.
func (n *Notifier) NotifyCancel(ctx context.Context, taskID uuid.UUID) error {
	_, err := n.db.ExecContext(ctx, "SELECT pg_notify($1, $2)",
		CancelChannel, taskID.String())
	if err != nil {
		return fmt.Errorf("failed to notify cancellation: %w", MapError(err))
	}
	return nil
}

// Listener subscribes a dedicated connection to notification channels
// and blocks on them. The connection is pinned for the listener's whole
// lifetime: LISTEN subscriptions are session state.
type Listener struct {
	conn *sql.Conn
}

// NewListener pins a connection and subscribes it to the given channels.
func NewListener(ctx context.Context, db *sql.DB, channels ...string) (*Listener, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pin listener connection: %w", err)
	}

	for _, channel := range channels {
		if _, err := conn.ExecContext(ctx, "LISTEN "+channel); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to listen on %s: %w", channel, MapError(err))
		}
	}

	return &Listener{conn: conn}, nil
}

// WaitForNotification blocks until a notification arrives on one of the
// subscribed channels or the context is done. A context deadline or
// cancellation returns (nil, ctx.Err()); callers use a deadline as
// their heartbeat cadence.
func (l *Listener) WaitForNotification(ctx context.Context) (*pgconn.Notification, error) {
	var notification *pgconn.Notification

	err := l.conn.Raw(func(driverConn any) error {
		conn, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return errors.New("listener connection is not a pgx connection")
		}

		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		notification = n
		return nil
	})

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("failed waiting for notification: %w", err)
	}

	logger.FromContext(ctx).Debug("notification received",
		"channel", notification.Channel,
		"payload", notification.Payload)

	return notification, nil
}

// Close unsubscribes by returning the pinned connection to the pool.
func (l *Listener) Close() error {
	return l.conn.Close()
}
