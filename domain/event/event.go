// Package event provides the audit event types and the append-only store
// that records governance actions per policy.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one audit record in a policy's event stream.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// PolicyID keys the stream the event belongs to.
	PolicyID string `json:"policy_id"`

	// Type classifies the event.
	Type Type `json:"type"`

	// Actor is the user who caused the event, empty for system actions.
	Actor string `json:"actor,omitempty"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Payload contains the event-specific data.
	Payload json.RawMessage `json:"payload"`

	// Sequence is assigned by the store, starting at 1 per policy.
	Sequence uint64 `json:"sequence"`

	// Version is the event schema version.
	Version int `json:"version,omitempty"`
}

// NewEvent creates a new event with the given type and payload.
func NewEvent(policyID string, eventType Type, actor string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{
		ID:        uuid.NewString(),
		PolicyID:  policyID,
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   data,
		Version:   1,
	}, nil
}

// UnmarshalPayload decodes the event payload into the given value.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// Validate checks the fields every store requires.
func (e *Event) Validate() error {
	if e.PolicyID == "" || e.Type == "" {
		return ErrInvalidEvent
	}
	return nil
}
