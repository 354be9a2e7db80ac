package tasking

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/taskforge/taskforge/internal/domain"
)

// Handler executes the business logic of a task. The context carries
// the task itself (see CurrentTask) and a task-scoped logger.
type Handler func(ctx context.Context, task *domain.Task) error

// Registry maps task names to their handlers. It is populated at
// startup, before workers begin claiming tasks, and read-only after.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register binds a task name to a handler. Registering the same name
// twice is an error: it always indicates two packages fighting over a
// name rather than an intentional override.
func (r *Registry) Register(name string, handler Handler) error {
	if name == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler for task %q cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("task %q is already registered", name)
	}

	r.handlers[name] = handler
	return nil
}

// Lookup returns the handler for a task name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[name]
	return handler, ok
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
