package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/policykeeper/domain/event"
)

func testEvent(t *testing.T, policyID string, typ event.Type) event.Event {
	t.Helper()
	e, err := event.NewEvent(policyID, typ, "alice", map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}
	return e
}

func fastSender() SenderConfig {
	return SenderConfig{Timeout: 2 * time.Second, MaxRetries: 3, RetryDelay: time.Millisecond}
}

// receiver records the deliveries posted to it.
type receiver struct {
	mu         sync.Mutex
	deliveries [][]event.Event
	headers    []http.Header
	bodies     [][]byte
}

func (r *receiver) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		var events []event.Event
		if err := json.Unmarshal(body, &events); err != nil {
			t.Errorf("delivery is not a JSON event array: %v", err)
		}
		r.mu.Lock()
		r.deliveries = append(r.deliveries, events)
		r.headers = append(r.headers, req.Header.Clone())
		r.bodies = append(r.bodies, body)
		r.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (r *receiver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deliveries)
}

func TestEndpoint_Accepts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		types []string
		typ   event.Type
		want  bool
	}{
		{"no filter", nil, event.TypeVersionCreated, true},
		{"exact", []string{"policy.status_changed"}, event.TypePolicyStatusChanged, true},
		{"exact miss", []string{"policy.status_changed"}, event.TypeApprovalApproved, false},
		{"family", []string{"approval.*"}, event.TypeApprovalRejected, true},
		{"family miss", []string{"approval.*"}, event.TypeVersionDeleted, false},
		{"family needs dot", []string{"approval.*"}, event.Type("approvals"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ep := &Endpoint{URL: "http://x", Types: tt.types}
			if got := ep.Accepts(event.Event{PolicyID: "p", Type: tt.typ}); got != tt.want {
				t.Errorf("Accepts(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestSignature_RoundTrip(t *testing.T) {
	t.Parallel()

	body := []byte(`[{"id":"e1"}]`)
	now := time.Now()
	h := signedHeaders(body, "s3cret", now)

	if !Verify(body, "s3cret", h[HeaderSignature], h[HeaderTimestamp], time.Minute) {
		t.Fatal("Verify() rejected a fresh signature")
	}
	if Verify(body, "other", h[HeaderSignature], h[HeaderTimestamp], time.Minute) {
		t.Error("Verify() accepted the wrong secret")
	}
	if Verify([]byte(`[]`), "s3cret", h[HeaderSignature], h[HeaderTimestamp], time.Minute) {
		t.Error("Verify() accepted a different body")
	}

	old := signedHeaders(body, "s3cret", now.Add(-time.Hour))
	if Verify(body, "s3cret", old[HeaderSignature], old[HeaderTimestamp], time.Minute) {
		t.Error("Verify() accepted a stale timestamp")
	}
	if Verify(body, "s3cret", h[HeaderSignature], "yesterday", time.Minute) {
		t.Error("Verify() accepted a malformed timestamp")
	}
}

func TestSender_SignsAndSetsHeaders(t *testing.T) {
	t.Parallel()

	rec := &receiver{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	s := NewSender(fastSender())
	ep := &Endpoint{URL: srv.URL, Secret: "s3cret", Headers: map[string]string{"X-Team": "risk"}}
	if err := s.Send(context.Background(), ep, []event.Event{testEvent(t, "p1", event.TypeApprovalApproved)}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if rec.count() != 1 {
		t.Fatalf("deliveries = %d, want 1", rec.count())
	}
	h := rec.headers[0]
	if h.Get("Content-Type") != "application/json" || h.Get("User-Agent") != "policykeeper-webhook/1.0" {
		t.Errorf("headers = %v", h)
	}
	if h.Get("X-Team") != "risk" {
		t.Error("custom header missing")
	}
	if !Verify(rec.bodies[0], "s3cret", h.Get(HeaderSignature), h.Get(HeaderTimestamp), time.Minute) {
		t.Error("delivery signature does not verify")
	}
	if s.BreakerState(srv.URL) != "closed" {
		t.Errorf("BreakerState = %s, want closed", s.BreakerState(srv.URL))
	}
}

func TestSender_RetryPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       int
		wantErr      error
		wantAttempts func(int32) bool
	}{
		{"server error is retried", http.StatusBadGateway, ErrEndpointUnavailable, func(n int32) bool { return n > 1 }},
		{"client error is not", http.StatusUnauthorized, ErrEndpointRejected, func(n int32) bool { return n == 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var attempts atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := NewSender(fastSender()).Send(context.Background(), &Endpoint{URL: srv.URL},
				[]event.Event{testEvent(t, "p1", event.TypeVersionCreated)})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Send() error = %v, want %v", err, tt.wantErr)
			}
			if !tt.wantAttempts(attempts.Load()) {
				t.Errorf("attempts = %d", attempts.Load())
			}
		})
	}
}

func TestSender_InvalidEndpoint(t *testing.T) {
	t.Parallel()

	if err := NewSender(fastSender()).Send(context.Background(), &Endpoint{}, nil); !errors.Is(err, ErrInvalidEndpoint) {
		t.Errorf("Send() error = %v, want ErrInvalidEndpoint", err)
	}
}

func TestNotifier_RoutesByType(t *testing.T) {
	t.Parallel()

	approvals, versions := &receiver{}, &receiver{}
	a := httptest.NewServer(approvals.handler(t))
	defer a.Close()
	v := httptest.NewServer(versions.handler(t))
	defer v.Close()

	n := NewNotifier(Config{
		Endpoints: []*Endpoint{
			{Name: "approvals", URL: a.URL, Types: []string{"approval.*"}},
			{Name: "versions", URL: v.URL, Types: []string{"version.created"}},
		},
		Sender:    fastSender(),
		BatchSize: 1,
	})

	err := n.Deliver(context.Background(), []event.Event{
		testEvent(t, "p1", event.TypeApprovalRequested),
		testEvent(t, "p1", event.TypeApprovalApproved),
		testEvent(t, "p1", event.TypePolicyStatusChanged),
	})
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	if approvals.count() != 1 || len(approvals.deliveries[0]) != 2 {
		t.Errorf("approvals endpoint got %v", approvals.deliveries)
	}
	if versions.count() != 0 {
		t.Errorf("versions endpoint got %d deliveries, want 0", versions.count())
	}
}

func TestNotifier_Batching(t *testing.T) {
	t.Parallel()

	rec := &receiver{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	n := NewNotifier(Config{
		Endpoints: []*Endpoint{{URL: srv.URL}},
		Sender:    fastSender(),
		BatchSize: 3,
		BatchWait: time.Hour,
	})
	ctx := context.Background()

	_ = n.Deliver(ctx, []event.Event{testEvent(t, "p1", event.TypeVersionCreated)})
	_ = n.Deliver(ctx, []event.Event{testEvent(t, "p1", event.TypeVersionCreated)})
	if rec.count() != 0 || n.Pending() != 2 {
		t.Fatalf("events should wait for a full batch: sent=%d pending=%d", rec.count(), n.Pending())
	}

	_ = n.Deliver(ctx, []event.Event{testEvent(t, "p1", event.TypeVersionDeleted)})
	if rec.count() != 1 || len(rec.deliveries[0]) != 3 {
		t.Fatalf("full batch should be sent: %v", rec.deliveries)
	}

	_ = n.Deliver(ctx, []event.Event{testEvent(t, "p2", event.TypeVersionCreated)})
	if err := n.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if rec.count() != 2 {
		t.Errorf("Close() should flush, deliveries = %d", rec.count())
	}
	if err := n.Deliver(ctx, []event.Event{testEvent(t, "p1", event.TypeVersionCreated)}); !errors.Is(err, ErrNotifierClosed) {
		t.Errorf("Deliver() after Close = %v, want ErrNotifierClosed", err)
	}
}

func TestNotifier_BatchWait(t *testing.T) {
	t.Parallel()

	rec := &receiver{}
	srv := httptest.NewServer(rec.handler(t))
	defer srv.Close()

	n := NewNotifier(Config{
		Endpoints: []*Endpoint{{URL: srv.URL}},
		Sender:    fastSender(),
		BatchSize: 100,
		BatchWait: 20 * time.Millisecond,
	})
	defer n.Close()

	_ = n.Deliver(context.Background(), []event.Event{testEvent(t, "p1", event.TypeVersionCreated)})

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rec.count() != 1 {
		t.Errorf("partial batch not sent after BatchWait, deliveries = %d", rec.count())
	}
}
