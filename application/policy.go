package application

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/policykeeper/domain/policy"
	"github.com/felixgeelhaar/policykeeper/domain/version"
	"github.com/felixgeelhaar/policykeeper/infrastructure/logging"
	"github.com/felixgeelhaar/policykeeper/infrastructure/observability"
)

// InitialSummary is the change summary of a policy's first version.
const InitialSummary = "Initial version"

// PolicyService creates and retires policy records.
type PolicyService struct {
	policies policy.Store
	versions *VersionService
	instrument
}

// NewPolicyService creates a policy service. versions writes the initial
// snapshot of each new policy.
func NewPolicyService(policies policy.Store, versions *VersionService, opts ...Option) *PolicyService {
	return &PolicyService{
		policies:   policies,
		versions:   versions,
		instrument: newInstrument("policy", opts),
	}
}

// CreatePolicy stores a draft policy together with version 1 holding content.
func (s *PolicyService) CreatePolicy(ctx context.Context, title, content, authorID string) (p *policy.Policy, err error) {
	ctx, end := s.begin(ctx, "create")
	defer end(&err)

	if strings.TrimSpace(title) == "" {
		return nil, policy.ErrTitleRequired
	}
	if !version.HasContent(content) {
		return nil, version.ErrContentRequired
	}

	p = policy.New(title)
	if err := s.policies.Save(ctx, p); err != nil {
		return nil, err
	}
	if _, err := s.versions.CreateVersion(ctx, p.ID, content, p.Version, p.VersionNumber, InitialSummary, authorID); err != nil {
		// The draft stays without a version; remove it from view.
		_ = s.policies.SoftDelete(ctx, p.ID)
		return nil, err
	}

	logging.Info().
		Add(logging.PolicyID(p.ID)).
		Add(logging.Str("title", p.Title)).
		Msg("policy created")
	return p, nil
}

// GetPolicy returns a live policy.
func (s *PolicyService) GetPolicy(ctx context.Context, policyID string) (*policy.Policy, error) {
	return s.policies.FindByID(ctx, policyID, policy.FindOptions{})
}

// DeletePolicy soft-deletes a policy. Its versions and approvals are kept.
func (s *PolicyService) DeletePolicy(ctx context.Context, policyID string) (err error) {
	ctx, end := s.begin(ctx, "delete", observability.AttrPolicyID.String(policyID))
	defer end(&err)

	if err := s.policies.SoftDelete(ctx, policyID); err != nil {
		return err
	}
	logging.Info().Add(logging.PolicyID(policyID)).Msg("policy deleted")
	return nil
}
