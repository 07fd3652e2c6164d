package application_test

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/policykeeper/application"
	"github.com/felixgeelhaar/policykeeper/domain/event"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
	"github.com/felixgeelhaar/policykeeper/domain/user"
	infraevent "github.com/felixgeelhaar/policykeeper/infrastructure/event"
	"github.com/felixgeelhaar/policykeeper/infrastructure/storage/memory"
)

// harness wires every service onto fresh in-memory stores.
type harness struct {
	policies  *memory.PolicyStore
	users     *memory.UserStore
	approvals *memory.ApprovalStore
	versions  *memory.VersionStore
	events    *memory.EventStore

	status      *application.StatusCoordinator
	approvalSvc *application.ApprovalService
	versionSvc  *application.VersionService
	policySvc   *application.PolicyService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		policies:  memory.NewPolicyStore(),
		users:     memory.NewUserStore(),
		approvals: memory.NewApprovalStore(),
		events:    memory.NewEventStore(),
	}
	h.versions = memory.NewVersionStore(h.policies)
	t.Cleanup(func() { _ = h.events.Close() })

	opts := []application.Option{application.WithPublisher(infraevent.NewPublisher(h.events))}
	h.status = application.NewStatusCoordinator(h.policies, h.approvals, opts...)
	h.approvalSvc = application.NewApprovalService(h.policies, h.users, h.approvals, h.status, opts...)
	h.versionSvc = application.NewVersionService(h.policies, h.users, h.versions, opts...)
	h.policySvc = application.NewPolicyService(h.policies, h.versionSvc, opts...)

	for _, id := range []string{"alice", "bob", "carol"} {
		if err := h.users.Save(context.Background(), &user.User{ID: id, Name: id}); err != nil {
			t.Fatalf("save user %s: %v", id, err)
		}
	}
	return h
}

// newPolicy stores a bare policy record without versions.
func (h *harness) newPolicy(t *testing.T) *policy.Policy {
	t.Helper()

	p := policy.New("Expense policy")
	if err := h.policies.Save(context.Background(), p); err != nil {
		t.Fatalf("save policy: %v", err)
	}
	return p
}

func (h *harness) setStatus(t *testing.T, policyID string, status policy.Status) {
	t.Helper()

	if err := h.policies.UpdateStatus(context.Background(), policyID, status); err != nil {
		t.Fatalf("update status: %v", err)
	}
}

func (h *harness) statusOf(t *testing.T, policyID string) policy.Status {
	t.Helper()

	p, err := h.policies.FindByID(context.Background(), policyID, policy.FindOptions{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("find policy: %v", err)
	}
	return p.Status
}

func (h *harness) eventTypes(t *testing.T, policyID string) []event.Type {
	t.Helper()

	events, err := h.events.LoadEvents(context.Background(), policyID)
	if err != nil {
		t.Fatalf("load events: %v", err)
	}
	types := make([]event.Type, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func ptr(s string) *string { return &s }
