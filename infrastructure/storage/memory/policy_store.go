// Package memory provides in-memory storage implementations.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

// PolicyStore is an in-memory implementation of policy.Store.
type PolicyStore struct {
	mu       sync.RWMutex
	policies map[string]*policy.Policy
}

// NewPolicyStore creates a new in-memory policy store.
func NewPolicyStore() *PolicyStore {
	return &PolicyStore{
		policies: make(map[string]*policy.Policy),
	}
}

// Save persists a new policy.
func (s *PolicyStore) Save(ctx context.Context, p *policy.Policy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.policies[p.ID]; exists {
		return policy.ErrPolicyExists
	}
	s.policies[p.ID] = p.Clone()
	return nil
}

// FindByID retrieves a policy.
func (s *PolicyStore) FindByID(ctx context.Context, id string, opts policy.FindOptions) (*policy.Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.lookup(id, opts)
	if !ok {
		return nil, policy.ErrPolicyNotFound
	}
	return p.Clone(), nil
}

// lookup must be called with s.mu held.
func (s *PolicyStore) lookup(id string, opts policy.FindOptions) (*policy.Policy, bool) {
	p, ok := s.policies[id]
	if !ok || (p.IsDeleted() && !opts.IncludeDeleted) {
		return nil, false
	}
	return p, true
}

// UpdateStatus sets the status of a live policy.
func (s *PolicyStore) UpdateStatus(ctx context.Context, id string, status policy.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !status.IsValid() {
		return policy.ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.lookup(id, policy.FindOptions{})
	if !ok {
		return policy.ErrPolicyNotFound
	}
	now := time.Now().UTC()
	p.Status = status
	p.UpdatedAt = now
	if status == policy.StatusPublished && p.PublishedAt == nil {
		p.PublishedAt = &now
	}
	return nil
}

// CurrentVersionNumber returns the policy's version pointer.
func (s *PolicyStore) CurrentVersionNumber(ctx context.Context, id string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.lookup(id, policy.FindOptions{IncludeDeleted: true})
	if !ok {
		return 0, policy.ErrPolicyNotFound
	}
	return p.VersionNumber, nil
}

// SetVersion advances the version pointer.
func (s *PolicyStore) SetVersion(ctx context.Context, id, label string, number int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.lookup(id, policy.FindOptions{IncludeDeleted: true})
	if !ok {
		return policy.ErrPolicyNotFound
	}
	if number <= p.VersionNumber {
		return nil
	}
	p.Version = label
	p.VersionNumber = number
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// SoftDelete marks the policy deleted.
func (s *PolicyStore) SoftDelete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.lookup(id, policy.FindOptions{})
	if !ok {
		return policy.ErrPolicyNotFound
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	p.UpdatedAt = now
	return nil
}

// Ensure PolicyStore implements policy.Store
var _ policy.Store = (*PolicyStore)(nil)
