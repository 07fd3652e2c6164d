package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/felixgeelhaar/policykeeper/domain/approval"
)

// ApprovalStore is an in-memory implementation of approval.Repository.
// A (policy, approver) index enforces one request per pair.
type ApprovalStore struct {
	mu       sync.RWMutex
	requests map[string]*approval.Request
	byPair   map[pairKey]string
}

type pairKey struct {
	policyID   string
	approverID string
}

// NewApprovalStore creates a new in-memory approval store.
func NewApprovalStore() *ApprovalStore {
	return &ApprovalStore{
		requests: make(map[string]*approval.Request),
		byPair:   make(map[pairKey]string),
	}
}

// Save persists a new request.
func (s *ApprovalStore) Save(ctx context.Context, r *approval.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{r.PolicyID, r.ApproverID}
	if _, exists := s.byPair[key]; exists {
		return approval.ErrDuplicateApproval
	}
	if _, exists := s.requests[r.ID]; exists {
		return approval.ErrDuplicateApproval
	}

	s.requests[r.ID] = r.Clone()
	s.byPair[key] = r.ID
	return nil
}

// Get retrieves a request by ID.
func (s *ApprovalStore) Get(ctx context.Context, id string) (*approval.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, approval.ErrApprovalNotFound
	}
	return r.Clone(), nil
}

// Update replaces a stored request whose status is still from. Policy and
// approver cannot change.
func (s *ApprovalStore) Update(ctx context.Context, r *approval.Request, from approval.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.requests[r.ID]
	if !ok {
		return approval.ErrApprovalNotFound
	}
	if existing.PolicyID != r.PolicyID || existing.ApproverID != r.ApproverID {
		return approval.ErrDuplicateApproval
	}
	if existing.Status != from {
		return approval.ErrStatusChanged
	}
	s.requests[r.ID] = r.Clone()
	return nil
}

// Delete removes a request by ID.
func (s *ApprovalStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return approval.ErrApprovalNotFound
	}
	delete(s.byPair, pairKey{r.PolicyID, r.ApproverID})
	delete(s.requests, id)
	return nil
}

// FindByPolicyAndApprover returns the request for the pair.
func (s *ApprovalStore) FindByPolicyAndApprover(ctx context.Context, policyID, approverID string) (*approval.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPair[pairKey{policyID, approverID}]
	if !ok {
		return nil, approval.ErrApprovalNotFound
	}
	return s.requests[id].Clone(), nil
}

// List returns requests matching the filter.
func (s *ApprovalStore) List(ctx context.Context, filter approval.ListFilter) ([]*approval.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*approval.Request, 0)
	for _, r := range s.requests {
		if filter.Matches(r) {
			results = append(results, r.Clone())
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if filter.Less(results[i], results[j]) {
			return true
		}
		if filter.Less(results[j], results[i]) {
			return false
		}
		return results[i].ID < results[j].ID
	})

	return results, nil
}

// Ensure ApprovalStore implements approval.Repository
var _ approval.Repository = (*ApprovalStore)(nil)
