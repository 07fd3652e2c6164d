package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the dotted path to the invalid field.
	Path    string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(path, format string, args ...any) {
		errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.SQLite.Path) == "" {
			add("storage.sqlite.path", "path is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.Postgres.DSN) == "" {
			add("storage.postgres.dsn", "dsn is required for the postgres driver")
		}
	default:
		add("storage.driver", "unknown driver %q (want memory, sqlite or postgres)", c.Storage.Driver)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "trace", "debug", "info", "warn", "error", "fatal":
	default:
		add("log.level", "unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		add("log.format", "unknown format %q (want json or console)", c.Log.Format)
	}

	if c.Guard.MaxConcurrent < 0 {
		add("guard.max_concurrent", "must not be negative")
	}
	if c.Guard.BreakerThreshold < 0 {
		add("guard.breaker_threshold", "must not be negative")
	}
	if c.Guard.Timeout < 0 {
		add("guard.timeout", "must not be negative")
	}
	if c.Guard.BreakerTimeout < 0 {
		add("guard.breaker_timeout", "must not be negative")
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		add("telemetry.sample_rate", "must be between 0 and 1")
	}

	for i, wh := range c.Notify.Webhooks {
		path := fmt.Sprintf("notify.webhooks[%d]", i)
		u, err := url.Parse(wh.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add(path+".url", "must be an absolute http or https URL")
		}
		for _, typ := range wh.Events {
			if strings.TrimSpace(typ) == "" {
				add(path+".events", "event types must not be empty")
				break
			}
		}
	}
	if c.Notify.BatchSize < 0 {
		add("notify.batch_size", "must not be negative")
	}
	if c.Notify.BatchWait < 0 {
		add("notify.batch_wait", "must not be negative")
	}

	return errs
}
