package mocks

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
)

// MockWorkerStore implements store.WorkerStore in memory. TTL drives
// the online/missing classification the same way it does in the real
// store.
type MockWorkerStore struct {
	mu      sync.Mutex
	workers map[string]*domain.Worker
	ttl     time.Duration

	// Err injects a failure for every method.
	Err error

	// HeartbeatCount tracks how many heartbeats were recorded.
	HeartbeatCount int
}

// NewMockWorkerStore creates an empty worker store with the given TTL.
func NewMockWorkerStore(ttl time.Duration) *MockWorkerStore {
	return &MockWorkerStore{
		workers: make(map[string]*domain.Worker),
		ttl:     ttl,
	}
}

func (m *MockWorkerStore) Heartbeat(_ context.Context, name string) (*domain.Worker, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.HeartbeatCount++

	now := time.Now().UTC()
	worker, ok := m.workers[name]
	if !ok {
		worker = &domain.Worker{
			Name:          name,
			LastHeartbeat: now,
			CreatedAt:     now,
		}
		m.workers[name] = worker
	} else {
		worker.LastHeartbeat = now
	}

	clone := *worker
	return &clone, nil
}

func (m *MockWorkerStore) GetByName(_ context.Context, name string) (*domain.Worker, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	worker, ok := m.workers[name]
	if !ok {
		return nil, store.ErrWorkerNotFound
	}
	clone := *worker
	return &clone, nil
}

func (m *MockWorkerStore) OnlineWorkers(_ context.Context) ([]*domain.Worker, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var out []*domain.Worker
	for _, worker := range m.workers {
		if worker.Online(now, m.ttl) {
			clone := *worker
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *MockWorkerStore) MissingWorkers(
	_ context.Context,
	age time.Duration,
) ([]*domain.Worker, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if age == 0 {
		age = m.ttl
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var out []*domain.Worker
	for _, worker := range m.workers {
		if now.Sub(worker.LastHeartbeat) >= age {
			clone := *worker
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *MockWorkerStore) Delete(_ context.Context, name string) error {
	if m.Err != nil {
		return m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.workers[name]; !ok {
		return store.ErrWorkerNotFound
	}
	delete(m.workers, name)
	return nil
}

func (m *MockWorkerStore) CleanupMissing(_ context.Context, age time.Duration) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var removed int64
	for name, worker := range m.workers {
		if now.Sub(worker.LastHeartbeat) >= age {
			delete(m.workers, name)
			removed++
		}
	}
	return removed, nil
}

// WithTx returns the store itself: the fake has no transactions.
func (m *MockWorkerStore) WithTx(_ *sql.Tx) store.WorkerStore {
	return m
}

// MarkMissing backdates a worker's heartbeat so it classifies as
// missing. Test helper.
func (m *MockWorkerStore) MarkMissing(name string, age time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if worker, ok := m.workers[name]; ok {
		worker.LastHeartbeat = time.Now().UTC().Add(-age)
	}
}
