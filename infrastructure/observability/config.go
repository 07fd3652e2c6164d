// Package observability provides OpenTelemetry tracing and metrics for the
// approval and versioning services.
package observability

// ExporterType specifies the trace exporter.
type ExporterType string

const (
	// ExporterStdout writes spans as JSON to the configured writer.
	ExporterStdout ExporterType = "stdout"

	// ExporterNoop disables export.
	ExporterNoop ExporterType = "noop"
)

// Config configures the observability infrastructure.
type Config struct {
	// ServiceName is the instrumentation scope name.
	ServiceName string

	// ServiceVersion is attached to every span and metric.
	ServiceVersion string

	// Tracing configures span export.
	Tracing TracingConfig

	// Metrics enables the metrics pipeline.
	Metrics MetricsConfig
}

// TracingConfig configures tracing.
type TracingConfig struct {
	Enabled  bool
	Exporter ExporterType

	// SampleRate is the sampling ratio (0.0-1.0).
	SampleRate float64
}

// MetricsConfig configures metrics.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns a configuration with telemetry disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "policykeeper",
		ServiceVersion: "dev",
		Tracing: TracingConfig{
			Exporter:   ExporterNoop,
			SampleRate: 1.0,
		},
	}
}

// Option configures the observability infrastructure.
type Option func(*Config)

// WithServiceName sets the service name.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithServiceVersion sets the service version.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		c.ServiceVersion = version
	}
}

// WithStdoutTracing enables stdout tracing (for development).
func WithStdoutTracing() Option {
	return func(c *Config) {
		c.Tracing.Enabled = true
		c.Tracing.Exporter = ExporterStdout
	}
}

// WithSampleRate sets the trace sampling rate.
func WithSampleRate(rate float64) Option {
	return func(c *Config) {
		c.Tracing.SampleRate = rate
	}
}

// WithMetrics enables metrics collection.
func WithMetrics() Option {
	return func(c *Config) {
		c.Metrics.Enabled = true
	}
}
