// Package version provides immutable policy version snapshots and the
// repository that keeps a policy's append-only history.
package version

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PolicyVersion represents an immutable snapshot of a policy's content.
type PolicyVersion struct {
	// ID is the unique identifier.
	ID string `json:"id"`

	// PolicyID is the owning policy.
	PolicyID string `json:"policy_id"`

	// Version is the human-readable label, see Label.
	Version string `json:"version"`

	// VersionNumber is unique per policy.
	VersionNumber int `json:"version_number"`

	// Content is the full policy text at this version.
	Content string `json:"content"`

	// ChangeSummary explains what changed.
	ChangeSummary *string `json:"change_summary,omitempty"`

	// CreatedBy is the authoring user, if known.
	CreatedBy *string `json:"created_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// New creates a version snapshot with a generated ID. Empty summary and
// author are stored as absent.
func New(policyID, content, label string, number int, summary, authorID string) *PolicyVersion {
	return &PolicyVersion{
		ID:            uuid.NewString(),
		PolicyID:      policyID,
		Version:       label,
		VersionNumber: number,
		Content:       content,
		ChangeSummary: optional(summary),
		CreatedBy:     optional(authorID),
		CreatedAt:     time.Now().UTC(),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// HasContent reports whether content has anything besides whitespace.
func HasContent(content string) bool {
	return strings.TrimSpace(content) != ""
}

// Validate checks required fields.
func (v *PolicyVersion) Validate() error {
	if v.ID == "" {
		return ErrInvalidVersionID
	}
	if v.PolicyID == "" {
		return ErrPolicyIDRequired
	}
	if !HasContent(v.Content) {
		return ErrContentRequired
	}
	if v.VersionNumber < 1 {
		return ErrInvalidVersionNumber
	}
	return nil
}

// Clone returns a deep copy.
func (v *PolicyVersion) Clone() *PolicyVersion {
	if v == nil {
		return nil
	}
	c := *v
	if v.ChangeSummary != nil {
		s := *v.ChangeSummary
		c.ChangeSummary = &s
	}
	if v.CreatedBy != nil {
		s := *v.CreatedBy
		c.CreatedBy = &s
	}
	return &c
}
