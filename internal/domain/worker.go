package domain

import (
	"errors"
	"strings"
	"time"
)

// Worker-specific validation errors
var (
	// ErrWorkerNameEmpty is returned when a worker name is empty.
	ErrWorkerNameEmpty = errors.New("worker name cannot be empty")

	// ErrWorkerNameInvalid is returned when a worker name is not in the
	// "<type>@<host>" format.
	ErrWorkerNameInvalid = errors.New("worker name must be in type@host format")
)

// Worker represents a worker process known to the coordination system.
// Workers are identified by name in the "<type>@<host>" format and are
// created implicitly by their first heartbeat. LastHeartbeat is the only
// field a heartbeat ever updates.
type Worker struct {
	Name          string    `json:"name"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewWorker creates a Worker with the heartbeat set to now.
// Returns an error if the name fails validation.
func NewWorker(name string) (*Worker, error) {
	if err := ValidateWorkerName(name); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Worker{
		Name:          name,
		LastHeartbeat: now,
		CreatedAt:     now,
	}, nil
}

// ValidateWorkerName checks the "<type>@<host>" name format.
func ValidateWorkerName(name string) error {
	if name == "" {
		return ErrWorkerNameEmpty
	}

	typ, host, found := strings.Cut(name, "@")
	if !found || typ == "" || host == "" {
		return ErrWorkerNameInvalid
	}

	return nil
}

// Online reports whether the worker's heartbeat is recent enough,
// relative to now, to consider it alive. Recent means younger than the
// configured worker TTL.
func (w *Worker) Online(now time.Time, ttl time.Duration) bool {
	return now.Sub(w.LastHeartbeat) < ttl
}

// Missing reports whether the worker's heartbeat is stale: the worker
// did not shut down cleanly and may have died.
func (w *Worker) Missing(now time.Time, ttl time.Duration) bool {
	return !w.Online(now, ttl)
}
