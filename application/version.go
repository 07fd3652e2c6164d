package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/policykeeper/domain/event"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
	"github.com/felixgeelhaar/policykeeper/domain/user"
	"github.com/felixgeelhaar/policykeeper/domain/version"
	"github.com/felixgeelhaar/policykeeper/infrastructure/logging"
	"github.com/felixgeelhaar/policykeeper/infrastructure/observability"
)

// Version sources recorded on the versions-created metric.
const (
	sourceExplicit = "explicit"
	sourceNext     = "next"
	sourceRollback = "rollback"
)

// VersionService manages the append-only version history of each policy.
type VersionService struct {
	policies policy.Store
	users    user.Store
	versions version.Repository
	instrument
}

// NewVersionService creates a version service.
func NewVersionService(policies policy.Store, users user.Store, versions version.Repository, opts ...Option) *VersionService {
	return &VersionService{
		policies:   policies,
		users:      users,
		versions:   versions,
		instrument: newInstrument("version", opts),
	}
}

// CreateVersion stores a snapshot with a caller-chosen label and number.
// An empty label is derived from number. The number is not checked for
// uniqueness here; the store rejects an exact duplicate with a conflict.
func (s *VersionService) CreateVersion(
	ctx context.Context,
	policyID, content, label string,
	number int,
	changeSummary, authorID string,
) (v *version.PolicyVersion, err error) {
	ctx, end := s.begin(ctx, "create", observability.AttrPolicyID.String(policyID))
	defer end(&err)

	if err := s.checkCreate(ctx, policyID, content, authorID); err != nil {
		return nil, err
	}

	if label == "" {
		label = version.Label(number)
	}
	v = version.New(policyID, content, label, number, changeSummary, authorID)
	if err := s.versions.Save(ctx, v); err != nil {
		return nil, err
	}

	s.created(ctx, v, sourceExplicit)
	return v, nil
}

// CreateNextVersion stores a snapshot under the next free number and
// advances the policy's version pointer.
func (s *VersionService) CreateNextVersion(ctx context.Context, policyID, content, changeSummary, authorID string) (v *version.PolicyVersion, err error) {
	ctx, end := s.begin(ctx, "create_next", observability.AttrPolicyID.String(policyID))
	defer end(&err)

	if err := s.checkCreate(ctx, policyID, content, authorID); err != nil {
		return nil, err
	}

	v = version.New(policyID, content, "", 0, changeSummary, authorID)
	if err := s.versions.AppendNext(ctx, v, 0); err != nil {
		return nil, err
	}

	s.created(ctx, v, sourceNext)
	return v, nil
}

// RollbackToVersion appends a new version carrying the content of version
// target. The new number exceeds both target and the policy's current
// version; no existing version is changed.
func (s *VersionService) RollbackToVersion(ctx context.Context, policyID string, target int, userID string) (v *version.PolicyVersion, err error) {
	ctx, end := s.begin(ctx, "rollback", observability.AttrPolicyID.String(policyID))
	defer end(&err)

	source, err := s.versions.GetByNumber(ctx, policyID, target)
	if err != nil {
		return nil, err
	}
	if err := s.checkCreate(ctx, policyID, source.Content, userID); err != nil {
		return nil, err
	}

	v = version.New(policyID, source.Content, "", 0, version.RollbackSummary(target), userID)
	if err := s.versions.AppendNext(ctx, v, target); err != nil {
		return nil, err
	}

	s.created(ctx, v, sourceRollback)
	s.emit(ctx, policyID, event.TypeVersionRolledBack, userID, event.RolledBackPayload{
		VersionID:     v.ID,
		Version:       v.Version,
		VersionNumber: v.VersionNumber,
		TargetNumber:  target,
	})
	return v, nil
}

func (s *VersionService) checkCreate(ctx context.Context, policyID, content, authorID string) error {
	if policyID == "" {
		return version.ErrPolicyIDRequired
	}
	if _, err := s.policies.FindByID(ctx, policyID, policy.FindOptions{}); err != nil {
		return err
	}
	if authorID != "" {
		ok, err := s.users.Exists(ctx, authorID)
		if err != nil {
			return fmt.Errorf("check author: %w", err)
		}
		if !ok {
			return version.ErrAuthorNotFound
		}
	}
	if !version.HasContent(content) {
		return version.ErrContentRequired
	}
	return nil
}

func (s *VersionService) created(ctx context.Context, v *version.PolicyVersion, source string) {
	s.Metrics.RecordVersionCreated(ctx, source)
	logging.Info().
		Add(logging.PolicyID(v.PolicyID)).
		Add(logging.VersionID(v.ID)).
		Add(logging.VersionNumber(v.VersionNumber)).
		Add(logging.Str("source", source)).
		Msg("version created")

	var actor string
	if v.CreatedBy != nil {
		actor = *v.CreatedBy
	}
	s.emit(ctx, v.PolicyID, event.TypeVersionCreated, actor, event.VersionPayload{
		VersionID:     v.ID,
		Version:       v.Version,
		VersionNumber: v.VersionNumber,
	})
}

// GetVersionsByPolicy returns a policy's versions, highest number first.
func (s *VersionService) GetVersionsByPolicy(ctx context.Context, policyID string) ([]*version.PolicyVersion, error) {
	if _, err := s.policies.FindByID(ctx, policyID, policy.FindOptions{}); err != nil {
		return nil, err
	}
	return s.versions.ListByPolicy(ctx, policyID)
}

// GetVersion returns one version.
func (s *VersionService) GetVersion(ctx context.Context, versionID string) (*version.PolicyVersion, error) {
	return s.versions.Get(ctx, versionID)
}

// GetLatestVersion returns the policy's highest-numbered version.
func (s *VersionService) GetLatestVersion(ctx context.Context, policyID string) (*version.PolicyVersion, error) {
	return s.versions.GetLatest(ctx, policyID)
}

// GetVersionByNumber returns the policy's version with the given number.
func (s *VersionService) GetVersionByNumber(ctx context.Context, policyID string, number int) (*version.PolicyVersion, error) {
	return s.versions.GetByNumber(ctx, policyID, number)
}

// DeleteVersion removes a version unless it is the policy's only one.
func (s *VersionService) DeleteVersion(ctx context.Context, versionID string) (err error) {
	ctx, end := s.begin(ctx, "delete", observability.AttrVersionID.String(versionID))
	defer end(&err)

	v, err := s.versions.Get(ctx, versionID)
	if err != nil {
		return err
	}
	if err := s.versions.DeleteUnlessLast(ctx, versionID); err != nil {
		return err
	}

	logging.Info().
		Add(logging.PolicyID(v.PolicyID)).
		Add(logging.VersionID(v.ID)).
		Add(logging.VersionNumber(v.VersionNumber)).
		Msg("version deleted")
	s.emit(ctx, v.PolicyID, event.TypeVersionDeleted, "", event.VersionPayload{
		VersionID:     v.ID,
		Version:       v.Version,
		VersionNumber: v.VersionNumber,
	})
	return nil
}

// CompareVersions reports which fields differ between two versions.
func (s *VersionService) CompareVersions(ctx context.Context, versionID1, versionID2 string) (version.Comparison, error) {
	v1, err := s.versions.Get(ctx, versionID1)
	if err != nil {
		return version.Comparison{}, err
	}
	v2, err := s.versions.Get(ctx, versionID2)
	if err != nil {
		return version.Comparison{}, err
	}
	return version.Compare(v1, v2), nil
}

// GetVersionHistory returns history entries, highest number first.
func (s *VersionService) GetVersionHistory(ctx context.Context, policyID string) ([]version.HistoryEntry, error) {
	versions, err := s.GetVersionsByPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}
	return version.History(versions), nil
}
