package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/felixgeelhaar/policykeeper/domain/policy"
	"github.com/felixgeelhaar/policykeeper/domain/version"
)

// VersionStore is a SQLite-backed implementation of version.Repository.
type VersionStore struct {
	db *sql.DB
}

// NewVersionStore creates a version store on an opened database.
func NewVersionStore(db *sql.DB) *VersionStore {
	return &VersionStore{db: db}
}

const versionColumns = `id, policy_id, version, version_number, content, change_summary, created_by, created_at`

// Save persists a new version.
func (s *VersionStore) Save(ctx context.Context, v *version.PolicyVersion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return insertVersion(ctx, s.db, v)
}

func insertVersion(ctx context.Context, q queryer, v *version.PolicyVersion) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO policy_versions (`+versionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.PolicyID, v.Version, v.VersionNumber, v.Content,
		nullString(v.ChangeSummary), nullString(v.CreatedBy), toUnix(v.CreatedAt),
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return version.ErrDuplicateVersion
	case isForeignKeyViolation(err):
		return policy.ErrPolicyNotFound
	default:
		return err
	}
}

// Get retrieves a version by ID.
func (s *VersionStore) Get(ctx context.Context, id string) (*version.PolicyVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.one(ctx, `SELECT `+versionColumns+` FROM policy_versions WHERE id = ?`, id)
}

// GetLatest retrieves the version with the highest number.
func (s *VersionStore) GetLatest(ctx context.Context, policyID string) (*version.PolicyVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.one(ctx,
		`SELECT `+versionColumns+` FROM policy_versions WHERE policy_id = ? ORDER BY version_number DESC LIMIT 1`,
		policyID,
	)
}

// GetByNumber retrieves a version by policy and number.
func (s *VersionStore) GetByNumber(ctx context.Context, policyID string, number int) (*version.PolicyVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.one(ctx,
		`SELECT `+versionColumns+` FROM policy_versions WHERE policy_id = ? AND version_number = ?`,
		policyID, number,
	)
}

func (s *VersionStore) one(ctx context.Context, query string, args ...any) (*version.PolicyVersion, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, version.ErrVersionNotFound
	}
	return v, err
}

// ListByPolicy returns a policy's versions, highest number first.
func (s *VersionStore) ListByPolicy(ctx context.Context, policyID string) ([]*version.PolicyVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+versionColumns+` FROM policy_versions WHERE policy_id = ? ORDER BY version_number DESC`,
		policyID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	versions := make([]*version.PolicyVersion, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Count returns the number of versions of a policy.
func (s *VersionStore) Count(ctx context.Context, policyID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM policy_versions WHERE policy_id = ?`, policyID).Scan(&n)
	return n, err
}

// DeleteUnlessLast removes a version in one transaction, refusing when it
// is the policy's only version.
func (s *VersionStore) DeleteUnlessLast(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var policyID string
	err = tx.QueryRowContext(ctx, `SELECT policy_id FROM policy_versions WHERE id = ?`, id).Scan(&policyID)
	if errors.Is(err, sql.ErrNoRows) {
		return version.ErrVersionNotFound
	}
	if err != nil {
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM policy_versions WHERE policy_id = ?`, policyID,
	).Scan(&count); err != nil {
		return err
	}
	if count <= 1 {
		return version.ErrLastVersion
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM policy_versions WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendNext numbers v one past the highest of the stored versions, floor
// and the policy pointer, inserts it and advances the pointer, all in one
// transaction.
func (s *VersionStore) AppendNext(ctx context.Context, v *version.PolicyVersion, floor int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	current, err := currentVersionNumber(ctx, tx, v.PolicyID)
	if err != nil {
		return err
	}

	var highest int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_number), 0) FROM policy_versions WHERE policy_id = ?`, v.PolicyID,
	).Scan(&highest); err != nil {
		return err
	}

	next := max(highest, floor, current) + 1
	v.VersionNumber = next
	v.Version = version.Label(next)
	if err := v.Validate(); err != nil {
		return err
	}

	if err := insertVersion(ctx, tx, v); err != nil {
		return err
	}
	if err := setVersion(ctx, tx, v.PolicyID, v.Version, next); err != nil {
		return err
	}
	return tx.Commit()
}

func scanVersion(row rowScanner) (*version.PolicyVersion, error) {
	var (
		v                  version.PolicyVersion
		summary, createdBy sql.NullString
		createdAt          int64
	)
	if err := row.Scan(&v.ID, &v.PolicyID, &v.Version, &v.VersionNumber, &v.Content,
		&summary, &createdBy, &createdAt); err != nil {
		return nil, err
	}
	v.ChangeSummary = stringPtr(summary)
	v.CreatedBy = stringPtr(createdBy)
	v.CreatedAt = fromUnix(createdAt)
	return &v, nil
}

// Ensure VersionStore implements version.Repository
var _ version.Repository = (*VersionStore)(nil)
