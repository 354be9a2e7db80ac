package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskforge/taskforge/internal/domain"
	"github.com/taskforge/taskforge/internal/store"
)

// MockRoleStore implements store.RoleStore in memory. Roles created
// through Upsert are locked; unlocked roles can be seeded directly with
// AddUnlocked to verify reconciliation leaves them alone.
type MockRoleStore struct {
	mu    sync.Mutex
	roles map[string]*domain.Role

	// Err injects a failure for every method.
	Err error
}

// NewMockRoleStore creates an empty role store.
func NewMockRoleStore() *MockRoleStore {
	return &MockRoleStore{roles: make(map[string]*domain.Role)}
}

// AddUnlocked seeds a user-defined role. Test helper.
func (m *MockRoleStore) AddUnlocked(name string, permissions []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roles[name] = &domain.Role{
		ID:          uuid.New(),
		Name:        name,
		Locked:      false,
		Permissions: permissions,
		CreatedAt:   time.Now().UTC(),
	}
}

func (m *MockRoleStore) Upsert(_ context.Context, name string, def domain.RoleDefinition) error {
	if m.Err != nil {
		return m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	role, ok := m.roles[name]
	if !ok {
		role = &domain.Role{
			ID:        uuid.New(),
			Name:      name,
			Locked:    true,
			CreatedAt: time.Now().UTC(),
		}
		m.roles[name] = role
	}
	role.Description = def.Description
	role.Permissions = append([]string(nil), def.Permissions...)
	return nil
}

func (m *MockRoleStore) DeleteLockedExcept(
	_ context.Context,
	prefix string,
	keep []string,
) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}

	kept := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		kept[name] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for name, role := range m.roles {
		if !role.Locked || !strings.HasPrefix(name, prefix) {
			continue
		}
		if _, ok := kept[name]; ok {
			continue
		}
		delete(m.roles, name)
		removed++
	}
	return removed, nil
}

func (m *MockRoleStore) ListByPrefix(_ context.Context, prefix string) ([]*domain.Role, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Role
	for name, role := range m.roles {
		if role.Locked && strings.HasPrefix(name, prefix) {
			clone := *role
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// WithTx returns the store itself: the fake has no transactions.
func (m *MockRoleStore) WithTx(_ *sql.Tx) store.RoleStore {
	return m
}

// Has reports whether a role exists. Test helper.
func (m *MockRoleStore) Has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.roles[name]
	return ok
}
