package domain

import (
	"testing"
	"time"
)

func TestNewWorker(t *testing.T) {
	t.Parallel() // Enable parallel execution
	worker, err := NewWorker("resource-worker@host1.example.com")

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if worker.Name != "resource-worker@host1.example.com" {
		t.Errorf("Expected name to round-trip, got %s", worker.Name)
	}

	if worker.LastHeartbeat.IsZero() {
		t.Error("Expected non-zero LastHeartbeat")
	}

	// Test invalid names
	for _, name := range []string{"", "no-at-sign", "@host", "worker@"} {
		if _, err := NewWorker(name); err == nil {
			t.Errorf("Expected error for name %q, got nil", name)
		}
	}
}

func TestWorkerOnlineMissing(t *testing.T) {
	t.Parallel() // Enable parallel execution
	const ttl = 30 * time.Second
	now := time.Now().UTC()

	cases := []struct {
		name      string
		heartbeat time.Time
		online    bool
	}{
		{"heartbeat now", now, true},
		{"heartbeat just inside TTL", now.Add(-ttl + time.Second), true},
		{"heartbeat exactly TTL old", now.Add(-ttl), false},
		{"heartbeat TTL plus one second old", now.Add(-ttl - time.Second), false},
	}

	for _, tc := range cases {
		worker := Worker{Name: "w@h", LastHeartbeat: tc.heartbeat}

		if got := worker.Online(now, ttl); got != tc.online {
			t.Errorf("%s: Online = %v, want %v", tc.name, got, tc.online)
		}

		// Missing is always the exact complement of Online.
		if got := worker.Missing(now, ttl); got == worker.Online(now, ttl) {
			t.Errorf("%s: Missing must be the complement of Online", tc.name)
		}
	}
}
