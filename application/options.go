package application

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/policykeeper/domain/event"
	"github.com/felixgeelhaar/policykeeper/infrastructure/observability"
)

const tracerName = "github.com/felixgeelhaar/policykeeper/application"

// Config holds the optional collaborators shared by the services.
type Config struct {
	// Publisher receives audit events. Nil disables auditing.
	Publisher event.Publisher

	// Tracer starts a span per service operation.
	Tracer trace.Tracer

	// Metrics records decisions, versions and operation durations.
	Metrics observability.Metrics
}

// Option configures a service.
type Option func(*Config)

// WithPublisher sets the audit event publisher.
func WithPublisher(p event.Publisher) Option {
	return func(c *Config) {
		c.Publisher = p
	}
}

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Config) {
		c.Tracer = t
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

func newConfig(opts []Option) Config {
	c := Config{}
	for _, opt := range opts {
		opt(&c)
	}
	if c.Tracer == nil {
		c.Tracer = otel.Tracer(tracerName)
	}
	if c.Metrics == nil {
		c.Metrics = observability.NoopMetricsProvider{}
	}
	return c
}
