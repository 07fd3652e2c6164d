// Package approval provides approval request types for policy review chains.
package approval

import (
	"time"

	"github.com/google/uuid"
)

// Request is one approver's decision slot for one policy.
type Request struct {
	// ID is the unique identifier.
	ID string `json:"id"`

	// PolicyID is the policy under review.
	PolicyID string `json:"policy_id"`

	// ApproverID is the user asked to decide.
	ApproverID string `json:"approver_id"`

	// Status is the current request status.
	Status Status `json:"status"`

	// SequenceOrder is the position in the chain. It only orders listings.
	SequenceOrder int `json:"sequence_order"`

	// Comments is the approver's note, if any.
	Comments *string `json:"comments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// ApprovedAt is set only when the request is approved.
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

// NewRequest creates a pending request with a generated ID.
func NewRequest(policyID, approverID string, sequenceOrder int) *Request {
	now := time.Now().UTC()
	return &Request{
		ID:            uuid.NewString(),
		PolicyID:      policyID,
		ApproverID:    approverID,
		Status:        StatusPending,
		SequenceOrder: sequenceOrder,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate checks required fields.
func (r *Request) Validate() error {
	if r.ID == "" {
		return ErrInvalidApprovalID
	}
	if r.PolicyID == "" {
		return ErrPolicyIDRequired
	}
	if r.ApproverID == "" {
		return ErrApproverIDRequired
	}
	if !r.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

// Approve moves a pending request to APPROVED. Non-nil comments replace
// any existing ones.
func (r *Request) Approve(comments *string) error {
	if r.Status != StatusPending {
		return ErrNotPending
	}
	now := time.Now().UTC()
	r.Status = StatusApproved
	r.ApprovedAt = &now
	r.UpdatedAt = now
	r.setComments(comments)
	return nil
}

// Reject moves a pending request to REJECTED. Non-nil comments replace
// any existing ones.
func (r *Request) Reject(comments *string) error {
	if r.Status != StatusPending {
		return ErrNotPending
	}
	r.Status = StatusRejected
	r.UpdatedAt = time.Now().UTC()
	r.setComments(comments)
	return nil
}

// Revoke withdraws the request from any state except REVOKED.
func (r *Request) Revoke() error {
	if !r.Status.CanTransitionTo(StatusRevoked) {
		return ErrAlreadyRevoked
	}
	r.Status = StatusRevoked
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *Request) setComments(comments *string) {
	if comments == nil {
		return
	}
	c := *comments
	r.Comments = &c
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.Comments != nil {
		s := *r.Comments
		c.Comments = &s
	}
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		c.ApprovedAt = &t
	}
	return &c
}
