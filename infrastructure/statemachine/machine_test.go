package statemachine

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/policykeeper/domain/fault"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

func TestNewPolicyMachine(t *testing.T) {
	t.Parallel()

	for _, s := range policy.AllStatuses() {
		machine, err := NewPolicyMachine(s)
		if err != nil {
			t.Fatalf("NewPolicyMachine(%s) error = %v", s, err)
		}
		if machine == nil {
			t.Fatalf("NewPolicyMachine(%s) returned nil machine", s)
		}
	}
}

func TestInterpreter_Start(t *testing.T) {
	t.Parallel()

	machine, _ := NewPolicyMachine(policy.StatusApproved)
	ctx := NewContext("pol-1", policy.StatusApproved)

	interp := NewInterpreter(machine, ctx)
	interp.Start()
	defer interp.Stop()

	if interp.State() != policy.StatusApproved {
		t.Errorf("State() = %s, want APPROVED", interp.State())
	}
	if !interp.Matches(policy.StatusApproved) {
		t.Error("Matches(APPROVED) should be true")
	}
	if interp.Context() != ctx {
		t.Error("Context() should return the provided context")
	}
}

// Every edge the domain table declares must be taken by the machine.
func TestMachineMatchesDomainTable(t *testing.T) {
	t.Parallel()

	for from, edges := range policy.EventTransitions {
		for trig, want := range edges {
			t.Run(string(from)+"/"+string(trig), func(t *testing.T) {
				t.Parallel()

				ctx := NewContext("pol-1", from)
				ctx.ApprovalsComplete = true

				got, err := Apply(ctx, trig, "")
				if err != nil {
					t.Fatalf("Apply() error = %v", err)
				}
				if got != want {
					t.Errorf("Apply() = %s, want %s", got, want)
				}
				if ctx.Status != want {
					t.Errorf("ctx.Status = %s, want %s", ctx.Status, want)
				}
			})
		}
	}
}

func TestApply_RejectFromEveryStatus(t *testing.T) {
	t.Parallel()

	for _, s := range policy.AllStatuses() {
		t.Run(string(s), func(t *testing.T) {
			t.Parallel()

			got, err := Apply(NewContext("pol-1", s), policy.TriggerReject, "rejected by approver")
			if err != nil {
				t.Fatalf("Apply(REJECT) error = %v", err)
			}
			if got != policy.StatusInReview {
				t.Errorf("Apply(REJECT) = %s, want IN_REVIEW", got)
			}
		})
	}
}

func TestApply_DisallowedTrigger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from policy.Status
		trig policy.Trigger
	}{
		{policy.StatusDraft, policy.TriggerPublish},
		{policy.StatusDraft, policy.TriggerApprove},
		{policy.StatusPublished, policy.TriggerSubmit},
		{policy.StatusArchived, policy.TriggerArchive},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.trig), func(t *testing.T) {
			t.Parallel()

			got, err := Apply(NewContext("pol-1", tt.from), tt.trig, "")
			if !errors.Is(err, policy.ErrTransitionNotAllowed) {
				t.Fatalf("Apply() error = %v, want ErrTransitionNotAllowed", err)
			}
			if !errors.Is(err, fault.ErrInvalidState) {
				t.Error("disallowed transitions are invalid state")
			}
			if got != tt.from {
				t.Errorf("status changed to %s", got)
			}
		})
	}
}

func TestApply_ApproveGuard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		complete bool
		rejected bool
		wantErr  bool
	}{
		{"complete", true, false, false},
		{"pending approvals", false, false, true},
		{"rejected", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := NewContext("pol-1", policy.StatusInReview)
			ctx.ApprovalsComplete = tt.complete
			ctx.Rejected = tt.rejected

			got, err := Apply(ctx, policy.TriggerApprove, "")
			if tt.wantErr {
				if !errors.Is(err, policy.ErrApprovalsIncomplete) {
					t.Fatalf("Apply() error = %v, want ErrApprovalsIncomplete", err)
				}
				if got != policy.StatusInReview {
					t.Errorf("status = %s, want IN_REVIEW", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if got != policy.StatusApproved {
				t.Errorf("status = %s, want APPROVED", got)
			}
		})
	}
}

func TestApply_RecordsTransition(t *testing.T) {
	t.Parallel()

	ctx := NewContext("pol-1", policy.StatusDraft)
	if _, err := Apply(ctx, policy.TriggerSubmit, "ready for review"); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if len(ctx.Transitions) != 1 {
		t.Fatalf("recorded %d transitions, want 1", len(ctx.Transitions))
	}
	got := ctx.Transitions[0]
	want := Transition{From: policy.StatusDraft, To: policy.StatusInReview, Trigger: policy.TriggerSubmit, Reason: "ready for review"}
	if got != want {
		t.Errorf("transition = %+v, want %+v", got, want)
	}
}

func TestApply_UnknownStatus(t *testing.T) {
	t.Parallel()

	_, err := Apply(NewContext("pol-1", "LIVE"), policy.TriggerReject, "")
	if !errors.Is(err, policy.ErrInvalidStatus) {
		t.Errorf("Apply() error = %v, want ErrInvalidStatus", err)
	}
}

func TestGuardApprovalsComplete_NilContext(t *testing.T) {
	t.Parallel()

	if guardApprovalsComplete(nil, statekitEvent(policy.TriggerApprove)) {
		t.Error("nil context should not pass the guard")
	}
}

func TestEventForTrigger(t *testing.T) {
	t.Parallel()

	if string(EventForTrigger(policy.TriggerReject)) != "REJECT" {
		t.Error("event type should equal trigger name")
	}
	if StatusFromMachine(stateArchived) != policy.StatusArchived {
		t.Error("state IDs should equal status values")
	}
}
