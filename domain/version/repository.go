package version

import "context"

// Repository defines the interface for policy version persistence.
// Implementations enforce unique (PolicyID, VersionNumber).
type Repository interface {
	// Save persists a new version with the number it carries. A duplicate
	// number for the policy fails with ErrDuplicateVersion.
	Save(ctx context.Context, v *PolicyVersion) error

	// Get retrieves a version by ID.
	Get(ctx context.Context, id string) (*PolicyVersion, error)

	// GetLatest retrieves the version with the highest number.
	GetLatest(ctx context.Context, policyID string) (*PolicyVersion, error)

	// GetByNumber retrieves a version by its number.
	GetByNumber(ctx context.Context, policyID string, number int) (*PolicyVersion, error)

	// ListByPolicy returns all versions of a policy, highest number first.
	ListByPolicy(ctx context.Context, policyID string) ([]*PolicyVersion, error)

	// Count returns the number of versions a policy has.
	Count(ctx context.Context, policyID string) (int, error)

	// DeleteUnlessLast removes a version unless it is the only one its
	// policy has, in which case it fails with ErrLastVersion. Counting and
	// deleting happen atomically.
	DeleteUnlessLast(ctx context.Context, id string) error

	// AppendNext atomically assigns v the number
	// max(policy pointer, highest stored number, floor) + 1 and the matching
	// Label, stores it, and advances the policy's version pointer.
	AppendNext(ctx context.Context, v *PolicyVersion, floor int) error
}
