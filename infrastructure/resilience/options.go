package resilience

import "time"

// Option configures the guard.
type Option func(*GuardConfig)

// WithMaxConcurrent sets the maximum concurrent store calls.
func WithMaxConcurrent(n int) Option {
	return func(c *GuardConfig) {
		c.MaxConcurrent = n
	}
}

// WithBreakerThreshold sets the failure threshold for the circuit breaker.
func WithBreakerThreshold(n int) Option {
	return func(c *GuardConfig) {
		c.BreakerThreshold = n
	}
}

// WithBreakerTimeout sets the circuit breaker open duration.
func WithBreakerTimeout(d time.Duration) Option {
	return func(c *GuardConfig) {
		c.BreakerTimeout = d
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *GuardConfig) {
		c.Timeout = d
	}
}
