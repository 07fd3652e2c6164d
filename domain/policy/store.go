package policy

import "context"

// FindOptions controls which policies FindByID resolves.
type FindOptions struct {
	// IncludeDeleted resolves soft-deleted policies too.
	IncludeDeleted bool
}

// Store defines the interface for policy persistence.
type Store interface {
	// Save persists a new policy.
	Save(ctx context.Context, p *Policy) error

	// FindByID retrieves a policy. Soft-deleted policies are reported as
	// ErrPolicyNotFound unless opts.IncludeDeleted is set.
	FindByID(ctx context.Context, id string, opts FindOptions) (*Policy, error)

	// UpdateStatus sets the status of a live policy. Moving to PUBLISHED
	// stamps PublishedAt the first time.
	UpdateStatus(ctx context.Context, id string, status Status) error

	// CurrentVersionNumber returns the policy's version pointer.
	CurrentVersionNumber(ctx context.Context, id string) (int, error)

	// SetVersion advances the version pointer. Numbers at or below the
	// current pointer are ignored.
	SetVersion(ctx context.Context, id, label string, number int) error

	// SoftDelete marks the policy deleted.
	SoftDelete(ctx context.Context, id string) error
}
