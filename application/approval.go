// Package application provides the approval, version and status services.
package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/policykeeper/domain/approval"
	"github.com/felixgeelhaar/policykeeper/domain/event"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
	"github.com/felixgeelhaar/policykeeper/domain/user"
	"github.com/felixgeelhaar/policykeeper/infrastructure/logging"
	"github.com/felixgeelhaar/policykeeper/infrastructure/observability"
)

// ApprovalService manages the approval chain of each policy.
type ApprovalService struct {
	policies    policy.Store
	users       user.Store
	approvals   approval.Repository
	coordinator *StatusCoordinator
	instrument
}

// NewApprovalService creates an approval service. Rejections are reported
// to coordinator, which returns the policy to review.
func NewApprovalService(
	policies policy.Store,
	users user.Store,
	approvals approval.Repository,
	coordinator *StatusCoordinator,
	opts ...Option,
) *ApprovalService {
	return &ApprovalService{
		policies:    policies,
		users:       users,
		approvals:   approvals,
		coordinator: coordinator,
		instrument:  newInstrument("approval", opts),
	}
}

// CreateApproval adds approverID to the policy's chain as a pending request.
func (s *ApprovalService) CreateApproval(ctx context.Context, policyID, approverID string, sequenceOrder int) (req *approval.Request, err error) {
	ctx, end := s.begin(ctx, "create", observability.AttrPolicyID.String(policyID))
	defer end(&err)

	if policyID == "" {
		return nil, approval.ErrPolicyIDRequired
	}
	if approverID == "" {
		return nil, approval.ErrApproverIDRequired
	}

	if _, err := s.policies.FindByID(ctx, policyID, policy.FindOptions{}); err != nil {
		return nil, err
	}

	ok, err := s.users.Exists(ctx, approverID)
	if err != nil {
		return nil, fmt.Errorf("check approver: %w", err)
	}
	if !ok {
		return nil, approval.ErrApproverNotFound
	}

	// The store's unique (policy, approver) index closes the race this
	// check leaves open.
	if _, err := s.approvals.FindByPolicyAndApprover(ctx, policyID, approverID); err == nil {
		return nil, approval.ErrDuplicateApproval
	} else if !isNotFound(err) {
		return nil, err
	}

	req = approval.NewRequest(policyID, approverID, sequenceOrder)
	if err := s.approvals.Save(ctx, req); err != nil {
		return nil, err
	}

	logging.Info().
		Add(logging.PolicyID(policyID)).
		Add(logging.ApprovalID(req.ID)).
		Add(logging.ApproverID(approverID)).
		Msg("approval requested")
	s.emit(ctx, policyID, event.TypeApprovalRequested, "", payloadFor(req))

	return req, nil
}

// RequestApprovals creates one request per approver, in order, with
// sequence orders starting at 1. It stops at the first failure and returns
// the requests created so far alongside the error.
func (s *ApprovalService) RequestApprovals(ctx context.Context, policyID string, approverIDs []string) ([]*approval.Request, error) {
	created := make([]*approval.Request, 0, len(approverIDs))
	for i, approverID := range approverIDs {
		req, err := s.CreateApproval(ctx, policyID, approverID, i+1)
		if err != nil {
			return created, fmt.Errorf("approver %s: %w", approverID, err)
		}
		created = append(created, req)
	}
	return created, nil
}

// Approve records a pending request as approved. Policy status is left
// unchanged; use StatusCoordinator.Finalize once the chain is complete.
func (s *ApprovalService) Approve(ctx context.Context, approvalID string, comments *string) (req *approval.Request, err error) {
	ctx, end := s.begin(ctx, "approve", observability.AttrApprovalID.String(approvalID))
	defer end(&err)

	req, _, err = s.decide(ctx, approvalID, func(r *approval.Request) error { return r.Approve(comments) })
	if err != nil {
		return nil, err
	}

	s.Metrics.RecordApprovalDecision(ctx, string(approval.StatusApproved))
	s.emit(ctx, req.PolicyID, event.TypeApprovalApproved, req.ApproverID, payloadFor(req))
	return req, nil
}

// Reject records a pending request as rejected and returns the owning
// policy to IN_REVIEW. If the policy status cannot be written the request is
// put back to PENDING, so the rejection can be retried.
func (s *ApprovalService) Reject(ctx context.Context, approvalID string, comments *string) (req *approval.Request, err error) {
	ctx, end := s.begin(ctx, "reject", observability.AttrApprovalID.String(approvalID))
	defer end(&err)

	req, prior, err := s.decide(ctx, approvalID, func(r *approval.Request) error { return r.Reject(comments) })
	if err != nil {
		return nil, err
	}

	if s.coordinator != nil {
		if _, err := s.coordinator.OnRejection(ctx, req.PolicyID, req.ApproverID); err != nil {
			return nil, s.undoRejection(ctx, req, prior, err)
		}
	}

	s.Metrics.RecordApprovalDecision(ctx, string(approval.StatusRejected))
	s.emit(ctx, req.PolicyID, event.TypeApprovalRejected, req.ApproverID, payloadFor(req))
	return req, nil
}

// undoRejection restores prior over the rejected request after the policy
// could not be returned to review.
func (s *ApprovalService) undoRejection(ctx context.Context, rejected, prior *approval.Request, cause error) error {
	err := fmt.Errorf("return policy to review: %w", cause)

	// The caller's deadline may be what failed the status write.
	restoreCtx := context.WithoutCancel(ctx)
	if uerr := s.approvals.Update(restoreCtx, prior, rejected.Status); uerr != nil {
		logging.Error().
			Add(logging.PolicyID(rejected.PolicyID)).
			Add(logging.ApprovalID(rejected.ID)).
			Add(logging.ErrorField(uerr)).
			Msg("rejected approval could not be restored")
		return errors.Join(err, fmt.Errorf("restore approval request: %w", uerr))
	}

	logging.Warn().
		Add(logging.PolicyID(rejected.PolicyID)).
		Add(logging.ApprovalID(rejected.ID)).
		Add(logging.ErrorField(cause)).
		Msg("rejection rolled back")
	return err
}

// Revoke withdraws a request in any state except REVOKED.
func (s *ApprovalService) Revoke(ctx context.Context, approvalID string) (req *approval.Request, err error) {
	ctx, end := s.begin(ctx, "revoke", observability.AttrApprovalID.String(approvalID))
	defer end(&err)

	req, _, err = s.decide(ctx, approvalID, func(r *approval.Request) error { return r.Revoke() })
	if err != nil {
		return nil, err
	}

	s.Metrics.RecordApprovalDecision(ctx, string(approval.StatusRevoked))
	s.emit(ctx, req.PolicyID, event.TypeApprovalRevoked, "", payloadFor(req))
	return req, nil
}

// decide loads a request, applies a state change and writes it back. The
// write only lands if the stored status is still the one change saw, so of
// two concurrent decisions exactly one wins. It returns the updated request
// and a copy of it as loaded.
func (s *ApprovalService) decide(ctx context.Context, approvalID string, change func(*approval.Request) error) (req, prior *approval.Request, err error) {
	req, err = s.approvals.Get(ctx, approvalID)
	if err != nil {
		return nil, nil, err
	}

	prior = req.Clone()
	if err := change(req); err != nil {
		return nil, nil, err
	}
	if err := s.approvals.Update(ctx, req, prior.Status); err != nil {
		if errors.Is(err, approval.ErrStatusChanged) && prior.Status == approval.StatusPending {
			return nil, nil, approval.ErrNotPending
		}
		return nil, nil, err
	}

	logging.Info().
		Add(logging.PolicyID(req.PolicyID)).
		Add(logging.ApprovalID(req.ID)).
		Add(logging.ApprovalStatus(req.Status)).
		Msg("approval updated")
	return req, prior, nil
}

// DeleteApproval removes a request regardless of its status.
func (s *ApprovalService) DeleteApproval(ctx context.Context, approvalID string) (err error) {
	ctx, end := s.begin(ctx, "delete", observability.AttrApprovalID.String(approvalID))
	defer end(&err)

	req, err := s.approvals.Get(ctx, approvalID)
	if err != nil {
		return err
	}
	if err := s.approvals.Delete(ctx, approvalID); err != nil {
		return err
	}

	s.emit(ctx, req.PolicyID, event.TypeApprovalDeleted, "", payloadFor(req))
	return nil
}

// GetApproval returns one request.
func (s *ApprovalService) GetApproval(ctx context.Context, approvalID string) (*approval.Request, error) {
	return s.approvals.Get(ctx, approvalID)
}

// ListByPolicy returns a policy's chain ordered by sequence, then creation.
func (s *ApprovalService) ListByPolicy(ctx context.Context, policyID string) ([]*approval.Request, error) {
	if policyID == "" {
		return nil, approval.ErrPolicyIDRequired
	}
	return s.approvals.List(ctx, approval.ListFilter{PolicyID: policyID, OrderBy: approval.OrderSequence})
}

// ListByApprover returns an approver's requests, newest first.
func (s *ApprovalService) ListByApprover(ctx context.Context, approverID string) ([]*approval.Request, error) {
	if approverID == "" {
		return nil, approval.ErrApproverIDRequired
	}
	return s.approvals.List(ctx, approval.ListFilter{ApproverID: approverID, OrderBy: approval.OrderCreatedDesc})
}

// ListPending returns every pending request, oldest first.
func (s *ApprovalService) ListPending(ctx context.Context) ([]*approval.Request, error) {
	return s.approvals.List(ctx, approval.ListFilter{
		Status:  []approval.Status{approval.StatusPending},
		OrderBy: approval.OrderCreatedAsc,
	})
}

// ListPendingForApprover returns an approver's pending requests, oldest first.
func (s *ApprovalService) ListPendingForApprover(ctx context.Context, approverID string) ([]*approval.Request, error) {
	if approverID == "" {
		return nil, approval.ErrApproverIDRequired
	}
	return s.approvals.List(ctx, approval.ListFilter{
		ApproverID: approverID,
		Status:     []approval.Status{approval.StatusPending},
		OrderBy:    approval.OrderCreatedAsc,
	})
}

// AllCompleted reports whether every request of the policy is approved or
// revoked. A policy without requests is complete.
func (s *ApprovalService) AllCompleted(ctx context.Context, policyID string) (bool, error) {
	requests, err := s.ListByPolicy(ctx, policyID)
	if err != nil {
		return false, err
	}
	return approval.AllCompleted(requests), nil
}

// HasRejection reports whether any request of the policy was rejected.
func (s *ApprovalService) HasRejection(ctx context.Context, policyID string) (bool, error) {
	requests, err := s.ListByPolicy(ctx, policyID)
	if err != nil {
		return false, err
	}
	return approval.HasRejection(requests), nil
}

// Progress summarizes the policy's chain.
func (s *ApprovalService) Progress(ctx context.Context, policyID string) (approval.Progress, error) {
	requests, err := s.ListByPolicy(ctx, policyID)
	if err != nil {
		return approval.Progress{}, err
	}
	return approval.Summarize(requests), nil
}

func payloadFor(r *approval.Request) event.ApprovalPayload {
	return event.ApprovalPayload{
		ApprovalID:    r.ID,
		ApproverID:    r.ApproverID,
		Status:        string(r.Status),
		SequenceOrder: r.SequenceOrder,
		Comments:      r.Comments,
	}
}
