// Package event provides the audit event publisher backed by an event store.
package event

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/policykeeper/domain/event"
	"github.com/felixgeelhaar/policykeeper/infrastructure/logging"
)

// Sink receives events once the store has recorded them. Webhook and pub/sub
// forwarders implement it.
type Sink interface {
	Deliver(ctx context.Context, events []event.Event) error
}

// Publisher appends audit events to an event store, optionally batching them,
// and forwards recorded events to its sinks.
type Publisher struct {
	store   event.Store
	sinks   []Sink
	buffer  []event.Event
	bufSize int
	closed  bool
	mu      sync.Mutex
}

// PublisherOption configures the publisher.
type PublisherOption func(*Publisher)

// WithBufferSize batches events until size are pending. Zero publishes immediately.
func WithBufferSize(size int) PublisherOption {
	return func(p *Publisher) {
		p.bufSize = size
	}
}

// WithSinks forwards recorded events to sinks. A sink failure is logged and
// never fails the publish: the store is the record of truth.
func WithSinks(sinks ...Sink) PublisherOption {
	return func(p *Publisher) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// NewPublisher creates a new event publisher.
func NewPublisher(store event.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize > 0 {
		p.buffer = make([]event.Event, 0, p.bufSize)
	}
	return p
}

// Publish sends events to the event store.
func (p *Publisher) Publish(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return event.ErrPublisherClosed
	}

	if p.bufSize == 0 {
		if err := p.store.Append(ctx, events...); err != nil {
			return err
		}
		p.forward(ctx, events)
		return nil
	}

	p.buffer = append(p.buffer, events...)
	if len(p.buffer) >= p.bufSize {
		return p.flush(ctx)
	}
	return nil
}

// Flush writes all buffered events to the store.
func (p *Publisher) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flush(ctx)
}

// flush must be called with p.mu held.
func (p *Publisher) flush(ctx context.Context) error {
	if len(p.buffer) == 0 {
		return nil
	}

	if err := p.store.Append(ctx, p.buffer...); err != nil {
		return err
	}
	recorded := make([]event.Event, len(p.buffer))
	copy(recorded, p.buffer)
	p.buffer = p.buffer[:0]
	p.forward(ctx, recorded)
	return nil
}

func (p *Publisher) forward(ctx context.Context, events []event.Event) {
	for _, sink := range p.sinks {
		if err := sink.Deliver(ctx, events); err != nil {
			logging.Warn().
				Add(logging.Component("publisher")).
				Add(logging.Count(len(events))).
				Add(logging.ErrorField(err)).
				Msg("event forwarding failed")
		}
	}
}

// Pending returns the number of buffered events.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffer)
}

// Close flushes remaining events. Later Publish calls fail.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.flush(context.Background())
}

// Ensure Publisher implements event.Publisher
var _ event.Publisher = (*Publisher)(nil)
