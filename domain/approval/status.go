package approval

// Status represents the state of a single approval request.
type Status string

const (
	// StatusPending is the initial state awaiting the approver's decision.
	StatusPending Status = "PENDING"

	// StatusApproved indicates the approver signed off.
	StatusApproved Status = "APPROVED"

	// StatusRejected indicates the approver rejected the policy.
	StatusRejected Status = "REJECTED"

	// StatusRevoked indicates the request was withdrawn.
	StatusRevoked Status = "REVOKED"
)

// StatusTransitions defines valid status transitions.
var StatusTransitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusRevoked},
	StatusApproved: {StatusRevoked},
	StatusRejected: {StatusRevoked},
	StatusRevoked:  {},
}

// CanTransitionTo returns true if the transition from current status to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	for _, valid := range StatusTransitions[s] {
		if valid == target {
			return true
		}
	}
	return false
}

// IsValid returns true if s is a known status.
func (s Status) IsValid() bool {
	_, ok := StatusTransitions[s]
	return ok
}

// Completes returns true if the status counts as done for the chain.
func (s Status) Completes() bool {
	return s == StatusApproved || s == StatusRevoked
}
