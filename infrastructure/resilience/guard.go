// Package resilience guards store access with fortify's bulkhead and circuit breaker.
//
// Calls are never retried. Domain errors (those carrying a fault kind) pass
// through the breaker as successes so a burst of NotFound or Conflict
// results cannot open the circuit.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"

	"github.com/felixgeelhaar/policykeeper/domain/fault"
)

// Guard bounds concurrency, applies a timeout and opens a circuit after
// consecutive infrastructure failures.
type Guard struct {
	bulkhead bulkhead.Bulkhead[struct{}]
	breaker  circuitbreaker.CircuitBreaker[struct{}]
	timeout  time.Duration
}

// GuardConfig configures the store guard.
type GuardConfig struct {
	// MaxConcurrent limits concurrent store calls.
	MaxConcurrent int

	// BreakerThreshold is the number of consecutive failures before opening.
	BreakerThreshold int

	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration

	// Timeout bounds a single store call. Zero disables it.
	Timeout time.Duration
}

// DefaultGuardConfig returns a configuration with sensible defaults.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		MaxConcurrent:    16,
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
		Timeout:          5 * time.Second,
	}
}

// NewGuard creates a new store guard.
func NewGuard(config GuardConfig) *Guard {
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 16
	}
	threshold := config.BreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}
	breakerTimeout := config.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = 30 * time.Second
	}

	return &Guard{
		bulkhead: bulkhead.New[struct{}](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		}),
		breaker: circuitbreaker.New[struct{}](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    breakerTimeout,
			Timeout:     breakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
		timeout: config.Timeout,
	}
}

// NewGuardWithOptions creates a guard from the defaults and the given options.
func NewGuardWithOptions(opts ...Option) *Guard {
	config := DefaultGuardConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return NewGuard(config)
}

// Do runs fn under the guard.
// Composition order: Bulkhead → Timeout → Circuit Breaker.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var domainErr, callErr error

	_, err := g.bulkhead.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		return g.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
			err := fn(ctx)
			if err != nil && fault.Kind(err) != nil {
				domainErr = err
				return struct{}{}, nil
			}
			if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, fault.ErrOperationTimeout) {
				err = errors.Join(fault.ErrOperationTimeout, err)
			}
			callErr = err
			return struct{}{}, err
		})
	})

	switch {
	case domainErr != nil:
		return domainErr
	case callErr != nil:
		return callErr
	case err != nil:
		return errors.Join(fault.ErrUnavailable, err)
	}
	return nil
}

// Call runs fn under the guard and returns its result.
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := g.Do(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}

// State returns the current state of the circuit breaker.
func (g *Guard) State() circuitbreaker.State {
	return g.breaker.State()
}
