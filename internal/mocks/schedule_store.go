package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
)

// MockScheduleStore implements store.ScheduleStore in memory.
type MockScheduleStore struct {
	mu        sync.Mutex
	schedules map[uuid.UUID]*domain.TaskSchedule

	// Err injects a failure for every method.
	Err error
}

// NewMockScheduleStore creates an empty schedule store.
func NewMockScheduleStore() *MockScheduleStore {
	return &MockScheduleStore{
		schedules: make(map[uuid.UUID]*domain.TaskSchedule),
	}
}

func (m *MockScheduleStore) Create(_ context.Context, schedule *domain.TaskSchedule) error {
	if m.Err != nil {
		return m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.schedules {
		if existing.Name == schedule.Name {
			return store.ErrScheduleNameExists
		}
	}
	clone := *schedule
	m.schedules[schedule.ID] = &clone
	return nil
}

func (m *MockScheduleStore) GetByName(
	_ context.Context,
	name string,
) (*domain.TaskSchedule, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, schedule := range m.schedules {
		if schedule.Name == name {
			clone := *schedule
			return &clone, nil
		}
	}
	return nil, store.ErrScheduleNotFound
}

func (m *MockScheduleStore) ListDue(
	_ context.Context,
	now time.Time,
) ([]*domain.TaskSchedule, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.TaskSchedule
	for _, schedule := range m.schedules {
		if schedule.Due(now) {
			clone := *schedule
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextDispatch.Before(*out[j].NextDispatch)
	})
	return out, nil
}

func (m *MockScheduleStore) RecordDispatch(
	_ context.Context,
	id uuid.UUID,
	lastTaskID uuid.UUID,
	next *time.Time,
) error {
	if m.Err != nil {
		return m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	schedule, ok := m.schedules[id]
	if !ok {
		return store.ErrScheduleNotFound
	}
	schedule.LastTaskID = &lastTaskID
	schedule.NextDispatch = next
	return nil
}

// WithTx returns the store itself: the fake has no transactions.
func (m *MockScheduleStore) WithTx(_ *sql.Tx) store.ScheduleStore {
	return m
}
