package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/policykeeper/domain/approval"
	"github.com/felixgeelhaar/policykeeper/domain/event"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
	"github.com/felixgeelhaar/policykeeper/infrastructure/logging"
	"github.com/felixgeelhaar/policykeeper/infrastructure/observability"
	"github.com/felixgeelhaar/policykeeper/infrastructure/statemachine"
)

// StatusCoordinator moves policies through their lifecycle. Every change
// runs through the policy state machine before it is written.
type StatusCoordinator struct {
	policies  policy.Store
	approvals approval.Repository
	instrument
}

// NewStatusCoordinator creates a status coordinator.
func NewStatusCoordinator(policies policy.Store, approvals approval.Repository, opts ...Option) *StatusCoordinator {
	return &StatusCoordinator{
		policies:   policies,
		approvals:  approvals,
		instrument: newInstrument("status", opts),
	}
}

// OnRejection returns the policy to IN_REVIEW. It runs after every rejected
// approval, whatever the policy's current status. Soft-deleted policies are
// left as they are.
func (c *StatusCoordinator) OnRejection(ctx context.Context, policyID, actor string) (status policy.Status, err error) {
	ctx, end := c.begin(ctx, "on_rejection", observability.AttrPolicyID.String(policyID))
	defer end(&err)

	p, err := c.policies.FindByID(ctx, policyID, policy.FindOptions{IncludeDeleted: true})
	if err != nil {
		return "", err
	}
	if p.IsDeleted() {
		logging.Debug().Add(logging.PolicyID(policyID)).Msg("rejection on deleted policy ignored")
		return p.Status, nil
	}
	return c.transition(ctx, p, policy.TriggerReject, actor, "approval rejected")
}

// Submit sends a draft for review.
func (c *StatusCoordinator) Submit(ctx context.Context, policyID, actor string) (status policy.Status, err error) {
	ctx, end := c.begin(ctx, "submit", observability.AttrPolicyID.String(policyID))
	defer end(&err)

	return c.fire(ctx, policyID, policy.TriggerSubmit, actor, "submitted for review")
}

// Finalize approves a policy under review. It fails with
// policy.ErrApprovalsIncomplete unless every approval is approved or
// revoked and none is rejected.
func (c *StatusCoordinator) Finalize(ctx context.Context, policyID, actor string) (status policy.Status, err error) {
	ctx, end := c.begin(ctx, "finalize", observability.AttrPolicyID.String(policyID))
	defer end(&err)

	return c.fire(ctx, policyID, policy.TriggerApprove, actor, "approval chain complete")
}

// Publish publishes an approved or in-review policy.
func (c *StatusCoordinator) Publish(ctx context.Context, policyID, actor string) (status policy.Status, err error) {
	ctx, end := c.begin(ctx, "publish", observability.AttrPolicyID.String(policyID))
	defer end(&err)

	return c.fire(ctx, policyID, policy.TriggerPublish, actor, "published")
}

// Archive retires a policy.
func (c *StatusCoordinator) Archive(ctx context.Context, policyID, actor string) (status policy.Status, err error) {
	ctx, end := c.begin(ctx, "archive", observability.AttrPolicyID.String(policyID))
	defer end(&err)

	return c.fire(ctx, policyID, policy.TriggerArchive, actor, "archived")
}

func (c *StatusCoordinator) fire(ctx context.Context, policyID string, trig policy.Trigger, actor, reason string) (policy.Status, error) {
	p, err := c.policies.FindByID(ctx, policyID, policy.FindOptions{})
	if err != nil {
		return "", err
	}
	return c.transition(ctx, p, trig, actor, reason)
}

func (c *StatusCoordinator) transition(ctx context.Context, p *policy.Policy, trig policy.Trigger, actor, reason string) (policy.Status, error) {
	mctx := statemachine.NewContext(p.ID, p.Status)
	if trig == policy.TriggerApprove {
		requests, err := c.approvals.List(ctx, approval.ListFilter{PolicyID: p.ID})
		if err != nil {
			return p.Status, fmt.Errorf("list approvals: %w", err)
		}
		mctx.ApprovalsComplete = approval.AllCompleted(requests)
		mctx.Rejected = approval.HasRejection(requests)
	}

	from := p.Status
	to, err := statemachine.Apply(mctx, trig, reason)
	if err != nil {
		return from, err
	}

	if err := c.policies.UpdateStatus(ctx, p.ID, to); err != nil {
		return from, err
	}

	c.Metrics.RecordStatusTransition(ctx, string(from), string(to))
	logging.Info().
		Add(logging.PolicyID(p.ID)).
		Add(logging.FromStatus(from)).
		Add(logging.ToStatus(to)).
		Add(logging.Trigger(trig)).
		Msg("policy status changed")
	c.emit(ctx, p.ID, event.TypePolicyStatusChanged, actor, event.StatusChangedPayload{
		From:    string(from),
		To:      string(to),
		Trigger: string(trig),
	})

	return to, nil
}
