package version

import "github.com/felixgeelhaar/policykeeper/domain/fault"

var (
	// ErrVersionNotFound indicates the version was not found.
	ErrVersionNotFound = fault.New(fault.ErrNotFound, "policy version not found")

	// ErrDuplicateVersion indicates the policy already has a version with this number.
	ErrDuplicateVersion = fault.New(fault.ErrConflict, "version number already exists for policy")

	// ErrLastVersion indicates a delete would leave the policy without versions.
	ErrLastVersion = fault.New(fault.ErrConflict, "cannot delete the only version")

	// ErrAuthorNotFound indicates the author user does not exist.
	ErrAuthorNotFound = fault.New(fault.ErrNotFound, "author not found")

	// ErrInvalidVersionID indicates an empty version ID.
	ErrInvalidVersionID = fault.New(fault.ErrInvalidInput, "invalid version ID")

	// ErrPolicyIDRequired indicates a version without a policy.
	ErrPolicyIDRequired = fault.New(fault.ErrInvalidInput, "policy ID is required")

	// ErrContentRequired indicates empty content.
	ErrContentRequired = fault.New(fault.ErrInvalidInput, "version content is required")

	// ErrInvalidVersionNumber indicates a number below 1.
	ErrInvalidVersionNumber = fault.New(fault.ErrInvalidInput, "invalid version number")

	// ErrInvalidLabel indicates a label that is not "major.minor".
	ErrInvalidLabel = fault.New(fault.ErrInvalidInput, "invalid version label")
)
