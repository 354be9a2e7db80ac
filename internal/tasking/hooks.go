package tasking

import (
	"context"
	"sync"
)

// HookFunc is invoked by an entity's lifecycle manager with the entity
// that was created or is about to be deleted.
type HookFunc func(ctx context.Context, entity any) error

// LifecycleHooks is a registry of explicit on-create and on-delete
// callbacks keyed by entity kind (for example "task" or "worker").
// Callers that create or delete entities invoke the hooks themselves,
// which keeps side effects such as permission assignment visible at the
// call site instead of hidden in inherited behavior.
type LifecycleHooks struct {
	mu       sync.RWMutex
	onCreate map[string][]HookFunc
	onDelete map[string][]HookFunc
}

// NewLifecycleHooks creates an empty hook registry.
func NewLifecycleHooks() *LifecycleHooks {
	return &LifecycleHooks{
		onCreate: make(map[string][]HookFunc),
		onDelete: make(map[string][]HookFunc),
	}
}

// OnCreate appends a hook to run after an entity of the given kind is
// created. Hooks run in registration order.
func (h *LifecycleHooks) OnCreate(kind string, fn HookFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCreate[kind] = append(h.onCreate[kind], fn)
}

// OnDelete appends a hook to run before an entity of the given kind is
// deleted. Hooks run in registration order.
func (h *LifecycleHooks) OnDelete(kind string, fn HookFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDelete[kind] = append(h.onDelete[kind], fn)
}

// RunCreate invokes the on-create hooks for the kind, stopping at the
// first error.
func (h *LifecycleHooks) RunCreate(ctx context.Context, kind string, entity any) error {
	return h.run(ctx, h.snapshot(&h.onCreate, kind), entity)
}

// RunDelete invokes the on-delete hooks for the kind, stopping at the
// first error.
func (h *LifecycleHooks) RunDelete(ctx context.Context, kind string, entity any) error {
	return h.run(ctx, h.snapshot(&h.onDelete, kind), entity)
}

func (h *LifecycleHooks) snapshot(m *map[string][]HookFunc, kind string) []HookFunc {
	h.mu.RLock()
	defer h.mu.RUnlock()
	hooks := (*m)[kind]
	out := make([]HookFunc, len(hooks))
	copy(out, hooks)
	return out
}

func (h *LifecycleHooks) run(ctx context.Context, hooks []HookFunc, entity any) error {
	for _, fn := range hooks {
		if err := fn(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}
