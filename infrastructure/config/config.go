// Package config loads the policykeeper runtime configuration.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the root configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Log       LogConfig       `yaml:"log" json:"log"`
	Guard     GuardConfig     `yaml:"guard" json:"guard"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Notify    NotifyConfig    `yaml:"notify" json:"notify"`
}

// StorageConfig selects and configures the store backend.
type StorageConfig struct {
	// Driver is one of memory, sqlite or postgres.
	Driver   string         `yaml:"driver" json:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite" json:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	Path string `yaml:"path" json:"path"`
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	DSN    string `yaml:"dsn" json:"dsn"`
	Schema string `yaml:"schema" json:"schema"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// GuardConfig configures the store guard.
type GuardConfig struct {
	MaxConcurrent    int      `yaml:"max_concurrent" json:"max_concurrent"`
	Timeout          Duration `yaml:"timeout" json:"timeout"`
	BreakerThreshold int      `yaml:"breaker_threshold" json:"breaker_threshold"`
	BreakerTimeout   Duration `yaml:"breaker_timeout" json:"breaker_timeout"`
}

// TelemetryConfig configures tracing and metrics.
type TelemetryConfig struct {
	Tracing    bool    `yaml:"tracing" json:"tracing"`
	Metrics    bool    `yaml:"metrics" json:"metrics"`
	SampleRate float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NotifyConfig configures where audit events are forwarded after they are
// recorded.
type NotifyConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks" json:"webhooks"`
	Redis    RedisConfig     `yaml:"redis" json:"redis"`
	// BatchSize is the number of events sent per webhook request.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// BatchWait bounds how long an incomplete batch is held.
	BatchWait Duration `yaml:"batch_wait" json:"batch_wait"`
}

// WebhookConfig is one webhook endpoint.
type WebhookConfig struct {
	Name    string            `yaml:"name" json:"name"`
	URL     string            `yaml:"url" json:"url"`
	Secret  string            `yaml:"secret" json:"secret"`
	Headers map[string]string `yaml:"headers" json:"headers"`
	// Events filters by event type. "approval.*" matches a whole family;
	// empty means every event.
	Events []string `yaml:"events" json:"events"`
}

// RedisConfig configures the Redis pub/sub broadcaster. An empty address
// disables it.
type RedisConfig struct {
	Address       string `yaml:"address" json:"address"`
	Password      string `yaml:"password" json:"password"`
	DB            int    `yaml:"db" json:"db"`
	ChannelPrefix string `yaml:"channel_prefix" json:"channel_prefix"`
}

// Duration is a time.Duration written as a Go duration string ("5s").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.parse(s)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.parse(s)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) parse(s string) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:   DriverMemory,
			SQLite:   SQLiteConfig{Path: "policykeeper.db"},
			Postgres: PostgresConfig{Schema: "public"},
		},
		Log: LogConfig{Level: "info", Format: "console"},
		Guard: GuardConfig{
			MaxConcurrent:    16,
			Timeout:          Duration(5 * time.Second),
			BreakerThreshold: 5,
			BreakerTimeout:   Duration(30 * time.Second),
		},
		Telemetry: TelemetryConfig{SampleRate: 1.0},
		Notify: NotifyConfig{
			Redis:     RedisConfig{ChannelPrefix: "policykeeper:events:"},
			BatchSize: 50,
			BatchWait: Duration(2 * time.Second),
		},
	}
}
