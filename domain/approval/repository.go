package approval

import "context"

// Repository defines the interface for approval request persistence.
// Implementations enforce at most one request per (PolicyID, ApproverID).
type Repository interface {
	// Save persists a new request. A second request for the same policy and
	// approver fails with ErrDuplicateApproval.
	Save(ctx context.Context, r *Request) error

	// Get retrieves a request by ID.
	Get(ctx context.Context, id string) (*Request, error)

	// Update replaces a stored request only while its stored status is
	// still from. Otherwise it fails with ErrStatusChanged and leaves the
	// record untouched.
	Update(ctx context.Context, r *Request, from Status) error

	// Delete removes a request by ID.
	Delete(ctx context.Context, id string) error

	// FindByPolicyAndApprover returns the request for the pair, or ErrApprovalNotFound.
	FindByPolicyAndApprover(ctx context.Context, policyID, approverID string) (*Request, error)

	// List returns requests matching the filter in the filter's order.
	List(ctx context.Context, filter ListFilter) ([]*Request, error)
}

// OrderBy selects the sort order of a listing.
type OrderBy int

const (
	// OrderCreatedAsc sorts oldest first.
	OrderCreatedAsc OrderBy = iota

	// OrderCreatedDesc sorts newest first.
	OrderCreatedDesc

	// OrderSequence sorts by sequence order, then oldest first.
	OrderSequence
)

// ListFilter specifies criteria for listing requests.
type ListFilter struct {
	// PolicyID filters by policy (empty means all).
	PolicyID string

	// ApproverID filters by approver (empty means all).
	ApproverID string

	// Status filters by status (empty means all).
	Status []Status

	// OrderBy selects the sort order.
	OrderBy OrderBy
}

// Matches reports whether r satisfies the filter's predicates.
func (f ListFilter) Matches(r *Request) bool {
	if f.PolicyID != "" && r.PolicyID != f.PolicyID {
		return false
	}
	if f.ApproverID != "" && r.ApproverID != f.ApproverID {
		return false
	}
	if len(f.Status) == 0 {
		return true
	}
	for _, s := range f.Status {
		if r.Status == s {
			return true
		}
	}
	return false
}

// Less reports whether a sorts before b under the filter's order.
func (f ListFilter) Less(a, b *Request) bool {
	switch f.OrderBy {
	case OrderCreatedDesc:
		return a.CreatedAt.After(b.CreatedAt)
	case OrderSequence:
		if a.SequenceOrder != b.SequenceOrder {
			return a.SequenceOrder < b.SequenceOrder
		}
		return a.CreatedAt.Before(b.CreatedAt)
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}
