package tasking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/internal/domain"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	err := registry.Register("sync", func(_ context.Context, _ *domain.Task) error {
		return nil
	})
	require.NoError(t, err)

	handler, ok := registry.Lookup("sync")
	assert.True(t, ok)
	assert.NotNil(t, handler)

	_, ok = registry.Lookup("unknown")
	assert.False(t, ok)
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	noop := func(_ context.Context, _ *domain.Task) error { return nil }

	assert.Error(t, registry.Register("", noop))
	assert.Error(t, registry.Register("sync", nil))

	require.NoError(t, registry.Register("sync", noop))
	assert.Error(t, registry.Register("sync", noop), "duplicate names must be rejected")
}

func TestRegistryNamesSorted(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	noop := func(_ context.Context, _ *domain.Task) error { return nil }

	require.NoError(t, registry.Register("publish", noop))
	require.NoError(t, registry.Register("cleanup", noop))
	require.NoError(t, registry.Register("sync", noop))

	assert.Equal(t, []string{"cleanup", "publish", "sync"}, registry.Names())
}
