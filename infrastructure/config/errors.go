package config

import "errors"

// Errors returned while loading a policykeeper config file.
var (
	ErrConfigNotFound    = errors.New("config file not found")
	ErrInvalidFormat     = errors.New("malformed config")
	ErrUnsupportedFormat = errors.New("config format must be yaml or json")

	// ErrValidationFailed wraps the joined ValidationErrors of a loaded config.
	ErrValidationFailed = errors.New("invalid config")

	// ErrMissingEnvVar is returned for ${VAR:?msg} references, and for any
	// unset ${VAR} under strict expansion.
	ErrMissingEnvVar = errors.New("missing environment variable")
)
