package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/felixgeelhaar/policykeeper/domain/version"
)

// VersionStore is an in-memory implementation of version.Repository.
// When built with a PolicyStore, AppendNext also reads and advances the
// policy's version pointer.
type VersionStore struct {
	mu       sync.RWMutex
	versions map[string]*version.PolicyVersion
	byNumber map[string]map[int]string // policyID -> number -> versionID
	policies *PolicyStore
}

// NewVersionStore creates a new in-memory version store. policies may be nil.
func NewVersionStore(policies *PolicyStore) *VersionStore {
	return &VersionStore{
		versions: make(map[string]*version.PolicyVersion),
		byNumber: make(map[string]map[int]string),
		policies: policies,
	}
}

// Save persists a new version.
func (s *VersionStore) Save(ctx context.Context, v *version.PolicyVersion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := v.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertLocked(v)
}

func (s *VersionStore) insertLocked(v *version.PolicyVersion) error {
	if _, exists := s.byNumber[v.PolicyID][v.VersionNumber]; exists {
		return version.ErrDuplicateVersion
	}
	if _, exists := s.versions[v.ID]; exists {
		return version.ErrDuplicateVersion
	}

	numbers, ok := s.byNumber[v.PolicyID]
	if !ok {
		numbers = make(map[int]string)
		s.byNumber[v.PolicyID] = numbers
	}
	numbers[v.VersionNumber] = v.ID
	s.versions[v.ID] = v.Clone()
	return nil
}

// Get retrieves a version by ID.
func (s *VersionStore) Get(ctx context.Context, id string) (*version.PolicyVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.versions[id]
	if !ok {
		return nil, version.ErrVersionNotFound
	}
	return v.Clone(), nil
}

// GetLatest retrieves the version with the highest number.
func (s *VersionStore) GetLatest(ctx context.Context, policyID string) (*version.PolicyVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	highest := s.highestLocked(policyID)
	if highest == 0 {
		return nil, version.ErrVersionNotFound
	}
	return s.versions[s.byNumber[policyID][highest]].Clone(), nil
}

// GetByNumber retrieves a version by its number.
func (s *VersionStore) GetByNumber(ctx context.Context, policyID string, number int) (*version.PolicyVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byNumber[policyID][number]
	if !ok {
		return nil, version.ErrVersionNotFound
	}
	return s.versions[id].Clone(), nil
}

// ListByPolicy returns all versions of a policy, highest number first.
func (s *VersionStore) ListByPolicy(ctx context.Context, policyID string) ([]*version.PolicyVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*version.PolicyVersion, 0, len(s.byNumber[policyID]))
	for _, id := range s.byNumber[policyID] {
		results = append(results, s.versions[id].Clone())
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].VersionNumber > results[j].VersionNumber
	})

	return results, nil
}

// Count returns the number of versions a policy has.
func (s *VersionStore) Count(ctx context.Context, policyID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byNumber[policyID]), nil
}

// DeleteUnlessLast removes a version unless it is its policy's only one.
func (s *VersionStore) DeleteUnlessLast(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.versions[id]
	if !ok {
		return version.ErrVersionNotFound
	}
	numbers := s.byNumber[v.PolicyID]
	if len(numbers) <= 1 {
		return version.ErrLastVersion
	}
	delete(numbers, v.VersionNumber)
	delete(s.versions, id)
	return nil
}

// AppendNext assigns the next number to v, stores it and advances the
// policy pointer, all under the store lock.
func (s *VersionStore) AppendNext(ctx context.Context, v *version.PolicyVersion, floor int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := max(s.highestLocked(v.PolicyID), floor)
	if s.policies != nil {
		current, err := s.policies.CurrentVersionNumber(ctx, v.PolicyID)
		if err != nil {
			return err
		}
		next = max(next, current)
	}
	next++

	v.VersionNumber = next
	v.Version = version.Label(next)
	if err := v.Validate(); err != nil {
		return err
	}
	if err := s.insertLocked(v); err != nil {
		return err
	}

	if s.policies != nil {
		return s.policies.SetVersion(ctx, v.PolicyID, v.Version, next)
	}
	return nil
}

func (s *VersionStore) highestLocked(policyID string) int {
	var highest int
	for n := range s.byNumber[policyID] {
		if n > highest {
			highest = n
		}
	}
	return highest
}

// Ensure VersionStore implements version.Repository
var _ version.Repository = (*VersionStore)(nil)
