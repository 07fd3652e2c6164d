package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/policykeeper/domain/approval"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// PolicyID adds a policy ID field.
func PolicyID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("policy_id", id)
	}
}

// ApprovalID adds an approval request ID field.
func ApprovalID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("approval_id", id)
	}
}

// ApproverID adds an approver field.
func ApproverID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("approver_id", id)
	}
}

// VersionID adds a version ID field.
func VersionID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("version_id", id)
	}
}

// VersionNumber adds a version number field.
func VersionNumber(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("version_number", n)
	}
}

// Status adds a policy status field.
func Status(s policy.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("status", string(s))
	}
}

// ApprovalStatus adds an approval status field.
func ApprovalStatus(s approval.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("approval_status", string(s))
	}
}

// FromStatus adds a from_status field for transitions.
func FromStatus(s policy.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_status", string(s))
	}
}

// ToStatus adds a to_status field for transitions.
func ToStatus(s policy.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_status", string(s))
	}
}

// Trigger adds a trigger field.
func Trigger(t policy.Trigger) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("trigger", string(t))
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Count adds a count field.
func Count(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("count", n)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
