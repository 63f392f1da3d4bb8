package config

import "errors"

// Sentinel errors for configuration resolution.
var (
	// ErrNotFound is returned when no source provides a value for a key.
	ErrNotFound = errors.New("config: value not found")

	// ErrMissingEnv is returned when a value references an unset variable.
	ErrMissingEnv = errors.New("config: missing required environment variables")
)
