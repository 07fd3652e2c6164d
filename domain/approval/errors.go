package approval

import "github.com/felixgeelhaar/policykeeper/domain/fault"

var (
	// ErrApprovalNotFound indicates the approval request was not found.
	ErrApprovalNotFound = fault.New(fault.ErrNotFound, "approval request not found")

	// ErrDuplicateApproval indicates the approver already has a request for the policy.
	ErrDuplicateApproval = fault.New(fault.ErrConflict, "approval request already exists for this approver")

	// ErrNotPending indicates a decision was attempted on a request that is not pending.
	ErrNotPending = fault.New(fault.ErrInvalidState, "approval request is not pending")

	// ErrStatusChanged indicates the stored request moved on since it was read.
	ErrStatusChanged = fault.New(fault.ErrInvalidState, "approval request status changed")

	// ErrAlreadyRevoked indicates the request was already revoked.
	ErrAlreadyRevoked = fault.New(fault.ErrInvalidState, "approval request already revoked")

	// ErrApproverNotFound indicates the approver user does not exist.
	ErrApproverNotFound = fault.New(fault.ErrNotFound, "approver not found")

	// ErrInvalidApprovalID indicates an empty approval ID.
	ErrInvalidApprovalID = fault.New(fault.ErrInvalidInput, "invalid approval ID")

	// ErrPolicyIDRequired indicates a request without a policy.
	ErrPolicyIDRequired = fault.New(fault.ErrInvalidInput, "policy ID is required")

	// ErrApproverIDRequired indicates a request without an approver.
	ErrApproverIDRequired = fault.New(fault.ErrInvalidInput, "approver ID is required")

	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = fault.New(fault.ErrInvalidInput, "invalid approval status")
)
