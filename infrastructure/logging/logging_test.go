package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/policykeeper/domain/approval"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

// testLogger creates a logger that writes to a buffer for testing
func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := bolt.NewJSONHandler(buf)
	logger := bolt.New(handler).SetLevel(bolt.TRACE)
	return logger, buf
}

func TestConfigs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config Config
		level  string
		format string
	}{
		{"default", DefaultConfig(), "info", "console"},
		{"quiet", QuietConfig(), "error", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.config.Level != tt.level {
				t.Errorf("Level = %s, want %s", tt.config.Level, tt.level)
			}
			if tt.config.Format != tt.format {
				t.Errorf("Format = %s, want %s", tt.config.Format, tt.format)
			}
			if tt.config.Output != os.Stderr {
				t.Errorf("Output = %v, want os.Stderr", tt.config.Output)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"info", bolt.INFO},
		{"warn", bolt.WARN},
		{"error", bolt.ERROR},
		{"WARN", bolt.WARN},
		{" warning ", bolt.WARN},
		{"fatal", bolt.ERROR},
		{"unknown", bolt.INFO},
		{"", bolt.INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%s) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{"policy", PolicyID("pol-1"), `"policy_id":"pol-1"`},
		{"approval", ApprovalID("apr-1"), `"approval_id":"apr-1"`},
		{"approver", ApproverID("alice"), `"approver_id":"alice"`},
		{"version id", VersionID("ver-1"), `"version_id":"ver-1"`},
		{"version number", VersionNumber(4), `"version_number":4`},
		{"status", Status(policy.StatusInReview), `"status":"IN_REVIEW"`},
		{"approval status", ApprovalStatus(approval.StatusRejected), `"approval_status":"REJECTED"`},
		{"from", FromStatus(policy.StatusDraft), `"from_status":"DRAFT"`},
		{"to", ToStatus(policy.StatusArchived), `"to_status":"ARCHIVED"`},
		{"trigger", Trigger(policy.TriggerReject), `"trigger":"REJECT"`},
		{"duration", Duration(100 * time.Millisecond), `"duration_ms":100`},
		{"count", Count(3), `"count":3`},
		{"component", Component("approvals"), `"component":"approvals"`},
		{"operation", Operation("reject"), `"operation":"reject"`},
		{"str", Str("k", "v"), `"k":"v"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, buf := testLogger()
			tt.field(logger.Info()).Msg("test")

			if !bytes.Contains(buf.Bytes(), []byte(tt.want)) {
				t.Errorf("expected %s in output: %s", tt.want, buf.String())
			}
		})
	}
}

func TestErrorField(t *testing.T) {
	t.Parallel()

	t.Run("with error", func(t *testing.T) {
		t.Parallel()

		logger, buf := testLogger()
		ErrorField(errors.New("test error"))(logger.Info()).Msg("test")

		if !bytes.Contains(buf.Bytes(), []byte(`"error":"test error"`)) {
			t.Errorf("expected error field in output: %s", buf.String())
		}
	})

	t.Run("with nil error", func(t *testing.T) {
		t.Parallel()

		logger, buf := testLogger()
		ErrorField(nil)(logger.Info()).Msg("test")

		if bytes.Contains(buf.Bytes(), []byte(`"error"`)) {
			t.Errorf("unexpected error field in output: %s", buf.String())
		}
	})
}

func TestLogEvent_Chaining(t *testing.T) {
	t.Parallel()

	logger, buf := testLogger()
	NewEvent(logger.Info()).
		Add(PolicyID("pol-1")).
		Add(Status(policy.StatusPublished)).
		Msg("published")

	for _, want := range []string{`"policy_id":"pol-1"`, `"status":"PUBLISHED"`, `"published"`} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Errorf("expected %s in output: %s", want, buf.String())
		}
	}
}
