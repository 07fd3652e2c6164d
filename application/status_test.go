package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/policykeeper/application"
	"github.com/felixgeelhaar/policykeeper/domain/event"
	"github.com/felixgeelhaar/policykeeper/domain/fault"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

func TestStatusCoordinator_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	p := h.newPolicy(t)

	steps := []struct {
		name string
		do   func(context.Context, string, string) (policy.Status, error)
		want policy.Status
	}{
		{"submit", h.status.Submit, policy.StatusInReview},
		{"finalize", h.status.Finalize, policy.StatusApproved},
		{"publish", h.status.Publish, policy.StatusPublished},
		{"archive", h.status.Archive, policy.StatusArchived},
	}
	for _, step := range steps {
		got, err := step.do(ctx, p.ID, "alice")
		if err != nil {
			t.Fatalf("%s: error = %v", step.name, err)
		}
		if got != step.want || h.statusOf(t, p.ID) != step.want {
			t.Fatalf("%s: status = %s, want %s", step.name, got, step.want)
		}
	}

	stored, _ := h.policies.FindByID(ctx, p.ID, policy.FindOptions{})
	if stored.PublishedAt == nil {
		t.Error("PublishedAt should be stamped")
	}

	events, _ := h.events.LoadEvents(ctx, p.ID)
	if len(events) != 4 {
		t.Fatalf("events = %d, want 4", len(events))
	}
	var payload event.StatusChangedPayload
	if err := events[0].UnmarshalPayload(&payload); err != nil {
		t.Fatal(err)
	}
	want := event.StatusChangedPayload{From: "DRAFT", To: "IN_REVIEW", Trigger: "SUBMIT"}
	if payload != want || events[0].Actor != "alice" {
		t.Errorf("first event = %+v by %q, want %+v by alice", payload, events[0].Actor, want)
	}
}

func TestStatusCoordinator_PublishFromReview(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	p := h.newPolicy(t)
	h.setStatus(t, p.ID, policy.StatusInReview)

	got, err := h.status.Publish(ctx, p.ID, "")
	if err != nil || got != policy.StatusPublished {
		t.Errorf("Publish() = %s, %v; want PUBLISHED", got, err)
	}
}

func TestStatusCoordinator_Finalize_Guard(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)
	p := h.newPolicy(t)
	h.setStatus(t, p.ID, policy.StatusInReview)

	a, _ := h.approvalSvc.CreateApproval(ctx, p.ID, "alice", 1)
	b, _ := h.approvalSvc.CreateApproval(ctx, p.ID, "bob", 2)

	if _, err := h.status.Finalize(ctx, p.ID, ""); !errors.Is(err, policy.ErrApprovalsIncomplete) {
		t.Fatalf("Finalize() with pending = %v, want ErrApprovalsIncomplete", err)
	}
	if s := h.statusOf(t, p.ID); s != policy.StatusInReview {
		t.Errorf("failed Finalize changed status to %s", s)
	}

	_, _ = h.approvalSvc.Approve(ctx, a.ID, nil)
	_, _ = h.approvalSvc.Reject(ctx, b.ID, nil)
	if _, err := h.status.Finalize(ctx, p.ID, ""); !errors.Is(err, fault.ErrInvalidState) {
		t.Fatalf("Finalize() with rejection = %v, want InvalidState", err)
	}

	_, _ = h.approvalSvc.Revoke(ctx, b.ID)
	got, err := h.status.Finalize(ctx, p.ID, "")
	if err != nil || got != policy.StatusApproved {
		t.Errorf("Finalize() = %s, %v; want APPROVED", got, err)
	}
}

func TestStatusCoordinator_DisallowedTransitions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	type transition func(*application.StatusCoordinator, context.Context, string, string) (policy.Status, error)

	tests := []struct {
		name string
		from policy.Status
		do   transition
	}{
		{"submit approved", policy.StatusApproved, (*application.StatusCoordinator).Submit},
		{"finalize draft", policy.StatusDraft, (*application.StatusCoordinator).Finalize},
		{"publish draft", policy.StatusDraft, (*application.StatusCoordinator).Publish},
		{"archive archived", policy.StatusArchived, (*application.StatusCoordinator).Archive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			p := h.newPolicy(t)
			h.setStatus(t, p.ID, tt.from)

			_, err := tt.do(h.status, ctx, p.ID, "")
			if !errors.Is(err, policy.ErrTransitionNotAllowed) {
				t.Errorf("error = %v, want ErrTransitionNotAllowed", err)
			}
			if s := h.statusOf(t, p.ID); s != tt.from {
				t.Errorf("status = %s, want unchanged %s", s, tt.from)
			}
		})
	}
}

func TestStatusCoordinator_UnknownPolicy(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if _, err := h.status.Submit(context.Background(), "missing", ""); !errors.Is(err, policy.ErrPolicyNotFound) {
		t.Errorf("Submit(missing) = %v", err)
	}
	if _, err := h.status.OnRejection(context.Background(), "missing", ""); !errors.Is(err, policy.ErrPolicyNotFound) {
		t.Errorf("OnRejection(missing) = %v", err)
	}
}
