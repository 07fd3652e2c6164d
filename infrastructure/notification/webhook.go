package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/felixgeelhaar/policykeeper/domain/event"
	"github.com/felixgeelhaar/policykeeper/infrastructure/logging"
)

// Config configures a Notifier.
type Config struct {
	Endpoints []*Endpoint
	Sender    SenderConfig

	// BatchSize and BatchWait control batching. BatchSize 1 sends every
	// delivery immediately.
	BatchSize int
	BatchWait time.Duration
}

// Notifier forwards audit events to webhook endpoints. It implements the
// publisher's Sink interface.
type Notifier struct {
	endpoints []*Endpoint
	sender    *Sender
	batcher   *batcher

	closed bool
	mu     sync.RWMutex
}

// NewNotifier creates a notifier for the configured endpoints.
func NewNotifier(config Config) *Notifier {
	n := &Notifier{
		endpoints: config.Endpoints,
		sender:    NewSender(config.Sender),
	}
	if config.BatchSize != 1 {
		n.batcher = newBatcher(config.BatchSize, config.BatchWait, n.sendAll)
	}
	return n
}

// Deliver queues events for their endpoints, sending at once when batching
// is off or the batch is full.
func (n *Notifier) Deliver(ctx context.Context, events []event.Event) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return ErrNotifierClosed
	}
	if len(events) == 0 {
		return nil
	}
	if n.batcher != nil {
		return n.batcher.add(ctx, events)
	}
	return n.sendAll(ctx, events)
}

// Pending returns the number of events waiting for the next batch.
func (n *Notifier) Pending() int {
	if n.batcher == nil {
		return 0
	}
	return n.batcher.len()
}

// Flush sends any batched events now.
func (n *Notifier) Flush(ctx context.Context) error {
	if n.batcher == nil {
		return nil
	}
	return n.batcher.flush(ctx)
}

// Close flushes pending events. Later deliveries fail with ErrNotifierClosed.
func (n *Notifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	return n.Flush(context.Background())
}

// sendAll sends each endpoint the events it accepts, endpoints in parallel.
func (n *Notifier) sendAll(ctx context.Context, events []event.Event) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, ep := range n.endpoints {
		selected := make([]event.Event, 0, len(events))
		for _, e := range events {
			if ep.Accepts(e) {
				selected = append(selected, e)
			}
		}
		if len(selected) == 0 {
			continue
		}

		wg.Add(1)
		go func(ep *Endpoint, selected []event.Event) {
			defer wg.Done()

			if err := n.sender.Send(ctx, ep, selected); err != nil {
				logging.Error().
					Add(logging.Component("notifier")).
					Add(logging.Str("endpoint", ep.label())).
					Add(logging.Count(len(selected))).
					Add(logging.ErrorField(err)).
					Msg("webhook delivery failed")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			logging.Debug().
				Add(logging.Component("notifier")).
				Add(logging.Str("endpoint", ep.label())).
				Add(logging.Count(len(selected))).
				Msg("webhook delivered")
		}(ep, selected)
	}

	wg.Wait()
	return errors.Join(errs...)
}
