// Package postgres provides PostgreSQL implementations of the store
// interfaces, the session-scoped advisory lock manager, and the
// LISTEN/NOTIFY wakeup plumbing. All mutual exclusion in the system is
// enforced here: atomic conditional row updates for state transitions
// and connection-bound advisory locks for task ownership.
package postgres
