package event_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	domainevent "github.com/felixgeelhaar/policykeeper/domain/event"
	infraevent "github.com/felixgeelhaar/policykeeper/infrastructure/event"
	"github.com/felixgeelhaar/policykeeper/infrastructure/storage/memory"
)

type failingStore struct {
	*memory.EventStore
	err error
}

func (s *failingStore) Append(ctx context.Context, events ...domainevent.Event) error {
	if s.err != nil {
		return s.err
	}
	return s.EventStore.Append(ctx, events...)
}

func newEvent(t *testing.T, policyID string) domainevent.Event {
	t.Helper()
	e, err := domainevent.NewEvent(policyID, domainevent.TypeVersionCreated, "alice", domainevent.VersionPayload{VersionNumber: 1})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	return e
}

func TestPublisher_Unbuffered(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewEventStore()
	pub := infraevent.NewPublisher(store)

	if err := pub.Publish(ctx, newEvent(t, "p1"), newEvent(t, "p1")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if err := pub.Publish(ctx); err != nil {
		t.Fatalf("Publish() with no events error = %v", err)
	}

	events, _ := store.LoadEvents(ctx, "p1")
	if len(events) != 2 {
		t.Errorf("stored %d events, want 2", len(events))
	}
}

func TestPublisher_Buffered(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewEventStore()
	pub := infraevent.NewPublisher(store, infraevent.WithBufferSize(3))

	_ = pub.Publish(ctx, newEvent(t, "p1"), newEvent(t, "p1"))
	if store.Len() != 0 || pub.Pending() != 2 {
		t.Fatalf("events should be buffered: stored=%d pending=%d", store.Len(), pub.Pending())
	}

	_ = pub.Publish(ctx, newEvent(t, "p1"))
	if store.Len() != 3 || pub.Pending() != 0 {
		t.Fatalf("full buffer should flush: stored=%d pending=%d", store.Len(), pub.Pending())
	}

	_ = pub.Publish(ctx, newEvent(t, "p2"))
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if store.Len() != 4 {
		t.Errorf("Close() should flush, stored=%d", store.Len())
	}

	if err := pub.Publish(ctx, newEvent(t, "p1")); !errors.Is(err, domainevent.ErrPublisherClosed) {
		t.Errorf("Publish() after Close = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestPublisher_StoreError(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	store := &failingStore{EventStore: memory.NewEventStore(), err: boom}

	pub := infraevent.NewPublisher(store, infraevent.WithBufferSize(1))
	if err := pub.Publish(context.Background(), newEvent(t, "p1")); !errors.Is(err, boom) {
		t.Fatalf("Publish() = %v, want store error", err)
	}
	if pub.Pending() != 1 {
		t.Error("failed flush should keep events buffered")
	}

	store.err = nil
	if err := pub.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("stored %d events after retry flush, want 1", store.Len())
	}
}

type recordingSink struct {
	mu      sync.Mutex
	batches [][]domainevent.Event
	err     error
}

func (s *recordingSink) Deliver(_ context.Context, events []domainevent.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, events)
	return s.err
}

func TestPublisher_ForwardsRecordedEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	ok := &recordingSink{}
	broken := &recordingSink{err: errors.New("endpoint down")}
	store := &failingStore{EventStore: memory.NewEventStore()}
	pub := infraevent.NewPublisher(store, infraevent.WithBufferSize(2), infraevent.WithSinks(broken, ok))

	_ = pub.Publish(ctx, newEvent(t, "p1"))
	if len(ok.batches) != 0 {
		t.Fatal("buffered events must not be forwarded before they are stored")
	}
	if err := pub.Publish(ctx, newEvent(t, "p1")); err != nil {
		t.Fatalf("Publish() error = %v, sink failures must not surface", err)
	}
	if len(ok.batches) != 1 || len(ok.batches[0]) != 2 {
		t.Fatalf("forwarded batches = %v, want one batch of 2", ok.batches)
	}
	if len(broken.batches) != 1 {
		t.Errorf("failing sink saw %d batches, want 1", len(broken.batches))
	}

	store.err = errors.New("disk full")
	_ = pub.Publish(ctx, newEvent(t, "p2"), newEvent(t, "p2"))
	if len(ok.batches) != 1 {
		t.Error("events the store rejected must not be forwarded")
	}
}
