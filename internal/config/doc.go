// Package config defines the application's configuration structure and
// loading logic. Configuration is read from an optional config file and
// from environment variables with the TASKFORGE_ prefix, environment
// variables taking precedence, and validated before use.
package config
