package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
}

// ServerConfig contains all control API server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// WorkerConfig contains the tasking fleet settings.
type WorkerConfig struct {
	// TTL is the maximum heartbeat age before a worker is considered
	// missing. Heartbeats are sent at a third of this interval.
	TTL time.Duration `mapstructure:"ttl" validate:"required,min=1s"`

	// PollInterval bounds how long a worker sleeps without a wakeup
	// notification before rescanning for ready tasks.
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"required,min=100ms"`

	// GraceBeats is how many heartbeat periods a shutdown-requested
	// worker waits for its current task before aborting it.
	GraceBeats int `mapstructure:"grace_beats" validate:"min=0"`

	// CleanupAge is how long a worker must be missing before its record
	// is removed by periodic cleanup.
	CleanupAge time.Duration `mapstructure:"cleanup_age" validate:"min=1m"`
}
