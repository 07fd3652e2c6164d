package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/policykeeper/domain/event"
)

// EventStore is a SQLite-backed implementation of event.Store.
type EventStore struct {
	db          *sql.DB
	subscribers map[string][]chan event.Event
	closed      bool
	mu          sync.RWMutex
}

// NewEventStore creates an event store on an opened database.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{
		db:          db,
		subscribers: make(map[string][]chan event.Event),
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (id, policy_id, type, sequence, timestamp, data) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	sequences := make(map[string]uint64)
	stored := make([]event.Event, 0, len(events))
	for _, e := range events {
		seq, ok := sequences[e.PolicyID]
		if !ok {
			var last sql.NullInt64
			if err := tx.QueryRowContext(ctx,
				`SELECT MAX(sequence) FROM events WHERE policy_id = ?`, e.PolicyID,
			).Scan(&last); err != nil {
				return err
			}
			seq = uint64(last.Int64)
		}

		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		seq++
		e.Sequence = seq
		sequences[e.PolicyID] = seq

		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.PolicyID, string(e.Type), e.Sequence, toUnix(e.Timestamp), data,
		); err != nil {
			return err
		}
		stored = append(stored, e)
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.notify(stored)
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

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM events WHERE policy_id = ? AND sequence >= ? ORDER BY sequence`,
		policyID, fromSeq,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	events := make([]event.Event, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var e event.Event
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
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

func (s *EventStore) notify(events []event.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range events {
		for _, ch := range s.subscribers[e.PolicyID] {
			select {
			case ch <- e:
			default:
				// slow subscriber, drop
			}
		}
	}
}

// Count returns the number of events recorded for a policy.
func (s *EventStore) Count(ctx context.Context, policyID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE policy_id = ?`, policyID).Scan(&n)
	return n, err
}

// Close closes every subscriber channel. The database is owned by the caller.
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

// Ensure EventStore implements event.Store
var _ event.Store = (*EventStore)(nil)
