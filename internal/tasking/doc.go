// Package tasking implements the worker side of the task coordination
// system: the dispatch scan that claims eligible tasks under advisory
// locks, the execution wrapper that drives the task state machine, the
// reaper duty that fails abandoned tasks, the scheduled-task
// dispatcher, and the registry mapping task names to handlers.
//
// All mutual exclusion is delegated to the storage layer (conditional
// row updates and session-scoped advisory locks), so the types here
// need no cross-process coordination of their own.
package tasking
