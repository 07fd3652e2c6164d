package event

import "context"

// Store defines the interface for audit event persistence.
type Store interface {
	// Append persists one or more events atomically.
	// Events are assigned sequence numbers in order of appearance.
	Append(ctx context.Context, events ...Event) error

	// LoadEvents retrieves all events for a policy in sequence order.
	LoadEvents(ctx context.Context, policyID string) ([]Event, error)

	// LoadEventsFrom retrieves events with a sequence at or after fromSeq.
	LoadEventsFrom(ctx context.Context, policyID string, fromSeq uint64) ([]Event, error)

	// Subscribe returns a channel that receives new events for a policy.
	// The channel is closed when the context is cancelled or the store closes.
	Subscribe(ctx context.Context, policyID string) (<-chan Event, error)
}
