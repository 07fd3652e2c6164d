package event

import "context"

// Publisher publishes audit events.
type Publisher interface {
	// Publish sends events to their destination.
	Publish(ctx context.Context, events ...Event) error

	// Close releases any resources held by the publisher.
	Close() error
}
