package resilience

import (
	"context"

	"github.com/felixgeelhaar/policykeeper/domain/approval"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
	"github.com/felixgeelhaar/policykeeper/domain/user"
	"github.com/felixgeelhaar/policykeeper/domain/version"
)

// PolicyStore wraps a policy.Store with a guard.
type PolicyStore struct {
	next  policy.Store
	guard *Guard
}

// NewPolicyStore returns a guarded policy store.
func NewPolicyStore(next policy.Store, guard *Guard) *PolicyStore {
	return &PolicyStore{next: next, guard: guard}
}

// Save calls the wrapped store's Save through the guard.
func (s *PolicyStore) Save(ctx context.Context, p *policy.Policy) error {
	return s.guard.Do(ctx, func(ctx context.Context) error { return s.next.Save(ctx, p) })
}

// FindByID calls the wrapped store's FindByID through the guard.
func (s *PolicyStore) FindByID(ctx context.Context, id string, opts policy.FindOptions) (*policy.Policy, error) {
	return Call(ctx, s.guard, func(ctx context.Context) (*policy.Policy, error) {
		return s.next.FindByID(ctx, id, opts)
	})
}

// UpdateStatus calls the wrapped store's UpdateStatus through the guard.
func (s *PolicyStore) UpdateStatus(ctx context.Context, id string, status policy.Status) error {
	return s.guard.Do(ctx, func(ctx context.Context) error { return s.next.UpdateStatus(ctx, id, status) })
}

// CurrentVersionNumber calls the wrapped store's CurrentVersionNumber through the guard.
func (s *PolicyStore) CurrentVersionNumber(ctx context.Context, id string) (int, error) {
	return Call(ctx, s.guard, func(ctx context.Context) (int, error) {
		return s.next.CurrentVersionNumber(ctx, id)
	})
}

// SetVersion calls the wrapped store's SetVersion through the guard.
func (s *PolicyStore) SetVersion(ctx context.Context, id, label string, number int) error {
	return s.guard.Do(ctx, func(ctx context.Context) error { return s.next.SetVersion(ctx, id, label, number) })
}

// SoftDelete calls the wrapped store's SoftDelete through the guard.
func (s *PolicyStore) SoftDelete(ctx context.Context, id string) error {
	return s.guard.Do(ctx, func(ctx context.Context) error { return s.next.SoftDelete(ctx, id) })
}

// UserStore wraps a user.Store with a guard.
type UserStore struct {
	next  user.Store
	guard *Guard
}

// NewUserStore returns a guarded user store.
func NewUserStore(next user.Store, guard *Guard) *UserStore {
	return &UserStore{next: next, guard: guard}
}

// Save calls the wrapped store's Save through the guard.
func (s *UserStore) Save(ctx context.Context, u *user.User) error {
	return s.guard.Do(ctx, func(ctx context.Context) error { return s.next.Save(ctx, u) })
}

// Exists calls the wrapped store's Exists through the guard.
func (s *UserStore) Exists(ctx context.Context, id string) (bool, error) {
	return Call(ctx, s.guard, func(ctx context.Context) (bool, error) { return s.next.Exists(ctx, id) })
}

// ApprovalRepository wraps an approval.Repository with a guard.
type ApprovalRepository struct {
	next  approval.Repository
	guard *Guard
}

// NewApprovalRepository returns a guarded approval repository.
func NewApprovalRepository(next approval.Repository, guard *Guard) *ApprovalRepository {
	return &ApprovalRepository{next: next, guard: guard}
}

// Save calls the wrapped store's Save through the guard.
func (r *ApprovalRepository) Save(ctx context.Context, req *approval.Request) error {
	return r.guard.Do(ctx, func(ctx context.Context) error { return r.next.Save(ctx, req) })
}

// Get calls the wrapped store's Get through the guard.
func (r *ApprovalRepository) Get(ctx context.Context, id string) (*approval.Request, error) {
	return Call(ctx, r.guard, func(ctx context.Context) (*approval.Request, error) { return r.next.Get(ctx, id) })
}

// Update calls the wrapped store's Update through the guard.
func (r *ApprovalRepository) Update(ctx context.Context, req *approval.Request, from approval.Status) error {
	return r.guard.Do(ctx, func(ctx context.Context) error { return r.next.Update(ctx, req, from) })
}

// Delete calls the wrapped store's Delete through the guard.
func (r *ApprovalRepository) Delete(ctx context.Context, id string) error {
	return r.guard.Do(ctx, func(ctx context.Context) error { return r.next.Delete(ctx, id) })
}

// FindByPolicyAndApprover calls the wrapped store's FindByPolicyAndApprover through the guard.
func (r *ApprovalRepository) FindByPolicyAndApprover(ctx context.Context, policyID, approverID string) (*approval.Request, error) {
	return Call(ctx, r.guard, func(ctx context.Context) (*approval.Request, error) {
		return r.next.FindByPolicyAndApprover(ctx, policyID, approverID)
	})
}

// List calls the wrapped store's List through the guard.
func (r *ApprovalRepository) List(ctx context.Context, filter approval.ListFilter) ([]*approval.Request, error) {
	return Call(ctx, r.guard, func(ctx context.Context) ([]*approval.Request, error) {
		return r.next.List(ctx, filter)
	})
}

// VersionRepository wraps a version.Repository with a guard.
type VersionRepository struct {
	next  version.Repository
	guard *Guard
}

// NewVersionRepository returns a guarded version repository.
func NewVersionRepository(next version.Repository, guard *Guard) *VersionRepository {
	return &VersionRepository{next: next, guard: guard}
}

// Save calls the wrapped store's Save through the guard.
func (r *VersionRepository) Save(ctx context.Context, v *version.PolicyVersion) error {
	return r.guard.Do(ctx, func(ctx context.Context) error { return r.next.Save(ctx, v) })
}

// Get calls the wrapped store's Get through the guard.
func (r *VersionRepository) Get(ctx context.Context, id string) (*version.PolicyVersion, error) {
	return Call(ctx, r.guard, func(ctx context.Context) (*version.PolicyVersion, error) { return r.next.Get(ctx, id) })
}

// GetLatest calls the wrapped store's GetLatest through the guard.
func (r *VersionRepository) GetLatest(ctx context.Context, policyID string) (*version.PolicyVersion, error) {
	return Call(ctx, r.guard, func(ctx context.Context) (*version.PolicyVersion, error) {
		return r.next.GetLatest(ctx, policyID)
	})
}

// GetByNumber calls the wrapped store's GetByNumber through the guard.
func (r *VersionRepository) GetByNumber(ctx context.Context, policyID string, number int) (*version.PolicyVersion, error) {
	return Call(ctx, r.guard, func(ctx context.Context) (*version.PolicyVersion, error) {
		return r.next.GetByNumber(ctx, policyID, number)
	})
}

// ListByPolicy calls the wrapped store's ListByPolicy through the guard.
func (r *VersionRepository) ListByPolicy(ctx context.Context, policyID string) ([]*version.PolicyVersion, error) {
	return Call(ctx, r.guard, func(ctx context.Context) ([]*version.PolicyVersion, error) {
		return r.next.ListByPolicy(ctx, policyID)
	})
}

// Count calls the wrapped store's Count through the guard.
func (r *VersionRepository) Count(ctx context.Context, policyID string) (int, error) {
	return Call(ctx, r.guard, func(ctx context.Context) (int, error) { return r.next.Count(ctx, policyID) })
}

// DeleteUnlessLast calls the wrapped store's DeleteUnlessLast through the guard.
func (r *VersionRepository) DeleteUnlessLast(ctx context.Context, id string) error {
	return r.guard.Do(ctx, func(ctx context.Context) error { return r.next.DeleteUnlessLast(ctx, id) })
}

// AppendNext calls the wrapped store's AppendNext through the guard.
func (r *VersionRepository) AppendNext(ctx context.Context, v *version.PolicyVersion, floor int) error {
	return r.guard.Do(ctx, func(ctx context.Context) error { return r.next.AppendNext(ctx, v, floor) })
}

var (
	_ policy.Store        = (*PolicyStore)(nil)
	_ user.Store          = (*UserStore)(nil)
	_ approval.Repository = (*ApprovalRepository)(nil)
	_ version.Repository  = (*VersionRepository)(nil)
)
