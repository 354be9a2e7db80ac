// Package domain contains the core business entities, value objects, and
// domain logic of the task coordination system: tasks and their state
// machine, workers, task groups, schedules, and resource reservations.
// It represents the heart of the system, independent of any specific
// infrastructure or delivery mechanism.
package domain
