package event

// Type classifies audit events.
type Type string

// Approval chain events.
const (
	TypeApprovalRequested Type = "approval.requested"
	TypeApprovalApproved  Type = "approval.approved"
	TypeApprovalRejected  Type = "approval.rejected"
	TypeApprovalRevoked   Type = "approval.revoked"
	TypeApprovalDeleted   Type = "approval.deleted"
)

// Policy lifecycle events.
const (
	TypePolicyStatusChanged Type = "policy.status_changed"
)

// Version history events.
const (
	TypeVersionCreated    Type = "version.created"
	TypeVersionDeleted    Type = "version.deleted"
	TypeVersionRolledBack Type = "version.rolled_back"
)

// ApprovalPayload contains data for approval.* events.
type ApprovalPayload struct {
	ApprovalID    string  `json:"approval_id"`
	ApproverID    string  `json:"approver_id"`
	Status        string  `json:"status"`
	SequenceOrder int     `json:"sequence_order,omitempty"`
	Comments      *string `json:"comments,omitempty"`
}

// StatusChangedPayload contains data for policy.status_changed events.
type StatusChangedPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Trigger string `json:"trigger"`
}

// VersionPayload contains data for version.created and version.deleted events.
type VersionPayload struct {
	VersionID     string `json:"version_id"`
	Version       string `json:"version"`
	VersionNumber int    `json:"version_number"`
}

// RolledBackPayload contains data for version.rolled_back events.
type RolledBackPayload struct {
	VersionID     string `json:"version_id"`
	Version       string `json:"version"`
	VersionNumber int    `json:"version_number"`
	TargetNumber  int    `json:"target_number"`
}
