package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
)

// MockTaskGroupStore implements store.TaskGroupStore in memory.
type MockTaskGroupStore struct {
	mu     sync.Mutex
	groups map[uuid.UUID]*domain.TaskGroup

	// Err injects a failure for every method.
	Err error
}

// NewMockTaskGroupStore creates an empty task group store.
func NewMockTaskGroupStore() *MockTaskGroupStore {
	return &MockTaskGroupStore{groups: make(map[uuid.UUID]*domain.TaskGroup)}
}

func (m *MockTaskGroupStore) Create(_ context.Context, group *domain.TaskGroup) error {
	if m.Err != nil {
		return m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.groups[group.ID]; exists {
		return store.ErrDuplicate
	}
	clone := *group
	m.groups[group.ID] = &clone
	return nil
}

func (m *MockTaskGroupStore) GetByID(_ context.Context, id uuid.UUID) (*domain.TaskGroup, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	group, ok := m.groups[id]
	if !ok {
		return nil, store.ErrTaskGroupNotFound
	}
	clone := *group
	return &clone, nil
}

func (m *MockTaskGroupStore) Finish(_ context.Context, id uuid.UUID) error {
	if m.Err != nil {
		return m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	group, ok := m.groups[id]
	if !ok {
		return store.ErrTaskGroupNotFound
	}
	group.AllTasksDispatched = true
	return nil
}

// WithTx returns the store itself: the fake has no transactions.
func (m *MockTaskGroupStore) WithTx(_ *sql.Tx) store.TaskGroupStore {
	return m
}
