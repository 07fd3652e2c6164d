package postgres

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/policykeeper/domain/event"
)

// EventStore is a PostgreSQL-backed implementation of event.Store.
type EventStore struct {
	pool        *pgxpool.Pool
	schema      string
	subscribers map[string][]chan event.Event
	closed      bool
	mu          sync.RWMutex
}

// NewEventStore creates a new PostgreSQL event store.
func NewEventStore(pool *pgxpool.Pool, schema string) *EventStore {
	if schema == "" {
		schema = "public"
	}
	return &EventStore{
		pool:        pool,
		schema:      schema,
		subscribers: make(map[string][]chan event.Event),
	}
}

func (s *EventStore) tableName() string {
	return table(s.schema, "events")
}

// Append persists one or more events atomically. A transaction-scoped
// advisory lock per policy serializes sequence assignment.
func (s *EventStore) Append(ctx context.Context, events ...event.Event) error {
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		if err := events[i].Validate(); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	sequences := make(map[string]uint64)
	stored := make([]event.Event, 0, len(events))
	for _, e := range events {
		seq, ok := sequences[e.PolicyID]
		if !ok {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, e.PolicyID); err != nil {
				return wrapError(err)
			}
			var last int64
			if err := tx.QueryRow(ctx,
				`SELECT COALESCE(MAX(sequence), 0) FROM `+s.tableName()+` WHERE policy_id = $1`, e.PolicyID,
			).Scan(&last); err != nil {
				return wrapError(err)
			}
			seq = uint64(last)
		}

		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Version == 0 {
			e.Version = 1
		}
		seq++
		e.Sequence = seq
		sequences[e.PolicyID] = seq

		if _, err := tx.Exec(ctx,
			`INSERT INTO `+s.tableName()+` (id, policy_id, type, actor, timestamp, payload, sequence, version)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID, e.PolicyID, string(e.Type), e.Actor, e.Timestamp, []byte(e.Payload), int64(e.Sequence), e.Version,
		); err != nil {
			return wrapError(err)
		}
		stored = append(stored, e)
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapError(err)
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
	rows, err := s.pool.Query(ctx,
		`SELECT id, policy_id, type, actor, timestamp, payload, sequence, version
		 FROM `+s.tableName()+`
		 WHERE policy_id = $1 AND sequence >= $2
		 ORDER BY sequence`,
		policyID, int64(fromSeq),
	)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	return events, wrapError(err)
}

func scanEvents(rows pgx.Rows) ([]event.Event, error) {
	events := make([]event.Event, 0)
	for rows.Next() {
		var (
			e         event.Event
			eventType string
			seq       int64
			payload   []byte
		)
		if err := rows.Scan(&e.ID, &e.PolicyID, &eventType, &e.Actor, &e.Timestamp, &payload, &seq, &e.Version); err != nil {
			return nil, err
		}
		e.Type = event.Type(eventType)
		e.Timestamp = e.Timestamp.UTC()
		e.Payload = payload
		e.Sequence = uint64(seq)
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

// Close closes every subscriber channel. The pool is owned by the caller.
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
