// Package policy provides the policy document aggregate, its status
// lifecycle and the store the approval and versioning services consult.
package policy

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// InitialVersionLabel is the label every new policy starts at.
const InitialVersionLabel = "1.0"

// Policy is a governed document. The engine reads its existence and status,
// writes status transitions and advances the version pointer.
type Policy struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Status        Status     `json:"status"`
	Version       string     `json:"version"`
	VersionNumber int        `json:"version_number"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// New creates a draft policy at version 1.
func New(title string) *Policy {
	now := time.Now().UTC()
	return &Policy{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(title),
		Status:        StatusDraft,
		Version:       InitialVersionLabel,
		VersionNumber: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsDeleted reports whether the policy has been soft-deleted.
func (p *Policy) IsDeleted() bool {
	return p.DeletedAt != nil
}

// Validate checks the fields a store requires before persisting.
func (p *Policy) Validate() error {
	if p.ID == "" {
		return ErrInvalidPolicyID
	}
	if !p.Status.IsValid() {
		return ErrInvalidStatus
	}
	if p.VersionNumber < 1 {
		return ErrInvalidVersionPointer
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate stored records.
func (p *Policy) Clone() *Policy {
	if p == nil {
		return nil
	}
	c := *p
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		c.PublishedAt = &t
	}
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}
