package policy

import "github.com/felixgeelhaar/policykeeper/domain/fault"

var (
	// ErrPolicyNotFound indicates the policy does not exist or was soft-deleted.
	ErrPolicyNotFound = fault.New(fault.ErrNotFound, "policy not found")

	// ErrPolicyExists indicates a policy with this ID already exists.
	ErrPolicyExists = fault.New(fault.ErrConflict, "policy already exists")

	// ErrInvalidPolicyID indicates an empty policy ID.
	ErrInvalidPolicyID = fault.New(fault.ErrInvalidInput, "invalid policy ID")

	// ErrTitleRequired indicates an empty policy title.
	ErrTitleRequired = fault.New(fault.ErrInvalidInput, "policy title is required")

	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = fault.New(fault.ErrInvalidInput, "invalid policy status")

	// ErrInvalidVersionPointer indicates a version number below 1.
	ErrInvalidVersionPointer = fault.New(fault.ErrInvalidInput, "invalid policy version number")

	// ErrTransitionNotAllowed indicates the current status does not accept the trigger.
	ErrTransitionNotAllowed = fault.New(fault.ErrInvalidState, "policy status transition not allowed")

	// ErrApprovalsIncomplete indicates a policy cannot be approved while
	// approvals are pending or rejected.
	ErrApprovalsIncomplete = fault.New(fault.ErrInvalidState, "approval chain not complete")
)
