package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
storage:
  driver: sqlite
  sqlite:
    path: ${PK_DB_PATH:-/var/lib/policykeeper.db}
log:
  level: debug
  format: json
guard:
  timeout: 2s
  breaker_threshold: 3
telemetry:
  tracing: true
  sample_rate: 0.5
`

func TestLoader_LoadYAML(t *testing.T) {
	cfg, err := NewLoader().LoadString(sampleYAML, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}

	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.SQLite.Path != "/var/lib/policykeeper.db" {
		t.Errorf("SQLite.Path = %q", cfg.Storage.SQLite.Path)
	}
	if cfg.Guard.Timeout.Std() != 2*time.Second {
		t.Errorf("Guard.Timeout = %v, want 2s", cfg.Guard.Timeout)
	}
	if cfg.Guard.BreakerThreshold != 3 {
		t.Errorf("BreakerThreshold = %d, want 3", cfg.Guard.BreakerThreshold)
	}
	// Unset fields keep their defaults.
	if cfg.Guard.MaxConcurrent != 16 {
		t.Errorf("MaxConcurrent = %d, want default 16", cfg.Guard.MaxConcurrent)
	}
	if cfg.Guard.BreakerTimeout.Std() != 30*time.Second {
		t.Errorf("BreakerTimeout = %v, want default 30s", cfg.Guard.BreakerTimeout)
	}
	if !cfg.Telemetry.Tracing || cfg.Telemetry.SampleRate != 0.5 {
		t.Errorf("Telemetry = %+v", cfg.Telemetry)
	}
}

func TestLoader_LoadJSON(t *testing.T) {
	input := `{"storage": {"driver": "postgres", "postgres": {"dsn": "postgres://x", "schema": "gov"}}, "guard": {"breaker_timeout": "1m"}}`

	cfg, err := NewLoader().LoadString(input, FormatJSON)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Storage.Postgres.Schema != "gov" {
		t.Errorf("Schema = %q, want gov", cfg.Storage.Postgres.Schema)
	}
	if cfg.Guard.BreakerTimeout.Std() != time.Minute {
		t.Errorf("BreakerTimeout = %v, want 1m", cfg.Guard.BreakerTimeout)
	}
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		format  Format
		wantErr error
	}{
		{"malformed yaml", "storage: [", FormatYAML, ErrInvalidFormat},
		{"bad duration", "guard:\n  timeout: soon\n", FormatYAML, ErrInvalidFormat},
		{"unknown driver", "storage:\n  driver: mongo\n", FormatYAML, ErrValidationFailed},
		{"postgres without dsn", "storage:\n  driver: postgres\n", FormatYAML, ErrValidationFailed},
		{"unsupported format", "{}", Format("toml"), ErrUnsupportedFormat},
		{"missing required env", "storage:\n  driver: ${PK_REQUIRED_DRIVER:?set it}\n", FormatYAML, ErrMissingEnvVar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadString(tt.input, tt.format)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("LoadString() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoader_WithoutValidation(t *testing.T) {
	cfg, err := NewLoader(WithValidation(false)).LoadString("storage:\n  driver: mongo\n", FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if cfg.Storage.Driver != "mongo" {
		t.Errorf("Driver = %q", cfg.Storage.Driver)
	}
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "policykeeper.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewLoader().LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}

	if _, err := NewLoader().LoadFile(filepath.Join(dir, "missing.yaml")); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("missing file error = %v, want ErrConfigNotFound", err)
	}
	if _, err := NewLoader().LoadFile(dir); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("directory error = %v, want ErrInvalidFormat", err)
	}

	txt := filepath.Join(dir, "config.txt")
	if err := os.WriteFile(txt, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoader().LoadFile(txt); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("txt error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = "nope"
	cfg.Log.Format = "xml"
	cfg.Telemetry.SampleRate = 2

	errs := cfg.Validate()
	if len(errs) != 3 {
		t.Fatalf("Validate() returned %d errors, want 3: %v", len(errs), errs)
	}
	if !strings.Contains(errs.Error(), "telemetry.sample_rate") {
		t.Errorf("error text missing path: %s", errs.Error())
	}
	if Default().Validate().HasErrors() {
		t.Error("default config should be valid")
	}
}

func TestLoader_Notify(t *testing.T) {
	t.Setenv("PK_HOOK_SECRET", "s3cret")

	input := `
notify:
  batch_size: 10
  webhooks:
    - name: chat
      url: https://hooks.example.com/policy
      secret: ${PK_HOOK_SECRET}
      events: ["approval.*", "policy.status_changed"]
  redis:
    address: localhost:6379
`
	cfg, err := NewLoader().LoadString(input, FormatYAML)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	if len(cfg.Notify.Webhooks) != 1 {
		t.Fatalf("Webhooks = %+v", cfg.Notify.Webhooks)
	}
	wh := cfg.Notify.Webhooks[0]
	if wh.Secret != "s3cret" || len(wh.Events) != 2 {
		t.Errorf("webhook = %+v", wh)
	}
	if cfg.Notify.BatchSize != 10 || cfg.Notify.BatchWait.Std() != 2*time.Second {
		t.Errorf("batching = %d / %v", cfg.Notify.BatchSize, cfg.Notify.BatchWait)
	}
	if cfg.Notify.Redis.ChannelPrefix != "policykeeper:events:" {
		t.Errorf("ChannelPrefix = %q, want default", cfg.Notify.Redis.ChannelPrefix)
	}

	bad := "notify:\n  webhooks:\n    - url: ftp://example.com\n"
	if _, err := NewLoader().LoadString(bad, FormatYAML); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("ftp webhook error = %v, want ErrValidationFailed", err)
	}
}
