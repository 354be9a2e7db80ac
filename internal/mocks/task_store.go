package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
)

// MockTaskStore implements store.TaskStore in memory, preserving the
// conditional-update semantics of the real store: transitions only take
// effect from eligible states, and the refreshed task is returned so
// callers observe races the same way they would against the database.
type MockTaskStore struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*domain.Task
	resources map[uuid.UUID][]*domain.CreatedResource

	// Err* inject failures for the matching method.
	ErrCreate error
	ErrGet    error
	ErrList   error
	ErrUpdate error
}

// NewMockTaskStore creates an empty task store.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{
		tasks:     make(map[uuid.UUID]*domain.Task),
		resources: make(map[uuid.UUID][]*domain.CreatedResource),
	}
}

func (m *MockTaskStore) Create(_ context.Context, task *domain.Task) error {
	if m.ErrCreate != nil {
		return m.ErrCreate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tasks[task.ID]; exists {
		return store.ErrDuplicate
	}
	m.tasks[task.ID] = cloneTask(task)
	return nil
}

func (m *MockTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.ErrGet != nil {
		return nil, m.ErrGet
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return cloneTask(task), nil
}

func (m *MockTaskStore) ListIncomplete(_ context.Context) ([]*domain.Task, error) {
	if m.ErrList != nil {
		return nil, m.ErrList
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Task
	for _, task := range m.tasks {
		if !task.State.IsFinal() {
			out = append(out, cloneTask(task))
		}
	}
	sortByCreation(out)
	return out, nil
}

func (m *MockTaskStore) ListByState(
	_ context.Context,
	state domain.TaskState,
) ([]*domain.Task, error) {
	if m.ErrList != nil {
		return nil, m.ErrList
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Task
	for _, task := range m.tasks {
		if task.State == state {
			out = append(out, cloneTask(task))
		}
	}
	sortByCreation(out)
	return out, nil
}

func (m *MockTaskStore) AssignWorker(_ context.Context, id uuid.UUID, workerName string) error {
	if m.ErrUpdate != nil {
		return m.ErrUpdate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	task.WorkerName = &workerName
	return nil
}

func (m *MockTaskStore) SetRunning(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return m.transition(ctx, id, func(task *domain.Task) {
		if task.State == domain.TaskStateWaiting {
			now := time.Now().UTC()
			task.State = domain.TaskStateRunning
			task.StartedAt = &now
		}
	})
}

func (m *MockTaskStore) SetCompleted(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return m.transition(ctx, id, func(task *domain.Task) {
		if !task.State.IsFinal() {
			now := time.Now().UTC()
			task.State = domain.TaskStateCompleted
			task.FinishedAt = &now
		}
	})
}

func (m *MockTaskStore) SetFailed(
	_ context.Context,
	id uuid.UUID,
	taskErr *domain.TaskError,
) (*domain.Task, error) {
	if m.ErrUpdate != nil {
		return nil, m.ErrUpdate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	if task.State.IsFinal() {
		return nil, fmt.Errorf("%w: task %s", store.ErrTaskFinished, id)
	}

	now := time.Now().UTC()
	task.State = domain.TaskStateFailed
	task.FinishedAt = &now
	task.Error = taskErr
	return cloneTask(task), nil
}

func (m *MockTaskStore) SetCanceling(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return m.transition(ctx, id, func(task *domain.Task) {
		if task.State == domain.TaskStateWaiting || task.State == domain.TaskStateRunning {
			task.State = domain.TaskStateCanceling
		}
	})
}

func (m *MockTaskStore) FinishCanceling(
	ctx context.Context,
	id uuid.UUID,
	finalState domain.TaskState,
	taskErr *domain.TaskError,
) (*domain.Task, error) {
	return m.transition(ctx, id, func(task *domain.Task) {
		if task.State == domain.TaskStateCanceling {
			now := time.Now().UTC()
			task.State = finalState
			task.FinishedAt = &now
			task.Error = taskErr
		}
	})
}

func (m *MockTaskStore) AddCreatedResource(
	_ context.Context,
	resource *domain.CreatedResource,
) error {
	if m.ErrUpdate != nil {
		return m.ErrUpdate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.resources[resource.TaskID] = append(m.resources[resource.TaskID], resource)
	return nil
}

func (m *MockTaskStore) ListCreatedResources(
	_ context.Context,
	taskID uuid.UUID,
) ([]*domain.CreatedResource, error) {
	if m.ErrList != nil {
		return nil, m.ErrList
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.CreatedResource, len(m.resources[taskID]))
	copy(out, m.resources[taskID])
	return out, nil
}

func (m *MockTaskStore) DeleteCreatedResources(
	_ context.Context,
	taskID uuid.UUID,
) (int64, error) {
	if m.ErrUpdate != nil {
		return 0, m.ErrUpdate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	count := int64(len(m.resources[taskID]))
	delete(m.resources, taskID)
	return count, nil
}

// WithTx returns the store itself: the fake has no transactions.
func (m *MockTaskStore) WithTx(_ *sql.Tx) store.TaskStore {
	return m
}

func (m *MockTaskStore) transition(
	_ context.Context,
	id uuid.UUID,
	apply func(*domain.Task),
) (*domain.Task, error) {
	if m.ErrUpdate != nil {
		return nil, m.ErrUpdate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	apply(task)
	return cloneTask(task), nil
}

func cloneTask(task *domain.Task) *domain.Task {
	clone := *task
	return &clone
}

func sortByCreation(tasks []*domain.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}
