package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/policykeeper/domain/event"
)

// EventStore is an in-memory implementation of event.Store.
type EventStore struct {
	events      map[string][]event.Event // policyID -> events
	subscribers map[string][]chan event.Event
	sequences   map[string]uint64 // policyID -> last sequence
	closed      bool
	mu          sync.RWMutex
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		events:      make(map[string][]event.Event),
		subscribers: make(map[string][]chan event.Event),
		sequences:   make(map[string]uint64),
	}
}

// Append persists one or more events atomically.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byPolicy := make(map[string][]event.Event)
	var order []string
	for _, e := range events {
		if _, seen := byPolicy[e.PolicyID]; !seen {
			order = append(order, e.PolicyID)
		}
		byPolicy[e.PolicyID] = append(byPolicy[e.PolicyID], e)
	}

	for _, policyID := range order {
		stream := byPolicy[policyID]
		seq := s.sequences[policyID]
		for i := range stream {
			if stream[i].ID == "" {
				stream[i].ID = uuid.NewString()
			}
			seq++
			stream[i].Sequence = seq
		}

		s.events[policyID] = append(s.events[policyID], stream...)
		s.sequences[policyID] = seq

		for _, sub := range s.subscribers[policyID] {
			for _, e := range stream {
				select {
				case sub <- e:
				default:
					// slow subscriber, drop
				}
			}
		}
	}

	return nil
}

// LoadEvents retrieves all events for a policy in sequence order.
func (s *EventStore) LoadEvents(ctx context.Context, policyID string) ([]event.Event, error) {
	return s.LoadEventsFrom(ctx, policyID, 0)
}

// LoadEventsFrom retrieves events with a sequence at or after fromSeq.
func (s *EventStore) LoadEventsFrom(ctx context.Context, policyID string, fromSeq uint64) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]event.Event, 0, len(s.events[policyID]))
	for _, e := range s.events[policyID] {
		if e.Sequence >= fromSeq {
			result = append(result, e)
		}
	}
	return result, nil
}

// Subscribe returns a channel that receives new events for a policy.
func (s *EventStore) Subscribe(ctx context.Context, policyID string) (<-chan event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan event.Event, 100)
	if s.closed {
		close(ch)
		return ch, nil
	}
	s.subscribers[policyID] = append(s.subscribers[policyID], ch)

	go func() {
		<-ctx.Done()
		s.unsubscribe(policyID, ch)
	}()

	return ch, nil
}

func (s *EventStore) unsubscribe(policyID string, ch chan event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subscribers[policyID]
	for i, sub := range subs {
		if sub == ch {
			s.subscribers[policyID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(s.subscribers[policyID]) == 0 {
		delete(s.subscribers, policyID)
	}
}

// Close closes every subscriber channel.
func (s *EventStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, subs := range s.subscribers {
		for _, ch := range subs {
			close(ch)
		}
	}
	s.subscribers = make(map[string][]chan event.Event)
	s.closed = true
	return nil
}

// Len returns the total number of events across all policies.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	for _, events := range s.events {
		count += len(events)
	}
	return count
}

// Ensure EventStore implements event.Store
var _ event.Store = (*EventStore)(nil)
