package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/policykeeper/domain/policy"
	"github.com/felixgeelhaar/policykeeper/domain/version"
)

// VersionStore is a PostgreSQL-backed implementation of version.Repository.
type VersionStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewVersionStore creates a new PostgreSQL version store.
func NewVersionStore(pool *pgxpool.Pool, schema string) *VersionStore {
	if schema == "" {
		schema = "public"
	}
	return &VersionStore{pool: pool, schema: schema}
}

const versionColumns = `id, policy_id, version, version_number, content, change_summary, created_by, created_at`

func (s *VersionStore) tableName() string {
	return table(s.schema, "policy_versions")
}

// Save persists a new version.
func (s *VersionStore) Save(ctx context.Context, v *version.PolicyVersion) error {
	if err := v.Validate(); err != nil {
		return err
	}
	return s.insert(ctx, s.pool, v)
}

func (s *VersionStore) insert(ctx context.Context, q querier, v *version.PolicyVersion) error {
	_, err := q.Exec(ctx,
		`INSERT INTO `+s.tableName()+` (`+versionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		v.ID, v.PolicyID, v.Version, v.VersionNumber, v.Content, v.ChangeSummary, v.CreatedBy, v.CreatedAt,
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return version.ErrDuplicateVersion
	case isForeignKeyViolation(err):
		return policy.ErrPolicyNotFound
	default:
		return wrapError(err)
	}
}

// Get retrieves a version by ID.
func (s *VersionStore) Get(ctx context.Context, id string) (*version.PolicyVersion, error) {
	return s.one(ctx, `SELECT `+versionColumns+` FROM `+s.tableName()+` WHERE id = $1`, id)
}

// GetLatest retrieves the version with the highest number.
func (s *VersionStore) GetLatest(ctx context.Context, policyID string) (*version.PolicyVersion, error) {
	return s.one(ctx,
		`SELECT `+versionColumns+` FROM `+s.tableName()+` WHERE policy_id = $1 ORDER BY version_number DESC LIMIT 1`,
		policyID,
	)
}

// GetByNumber retrieves a version by policy and number.
func (s *VersionStore) GetByNumber(ctx context.Context, policyID string, number int) (*version.PolicyVersion, error) {
	return s.one(ctx,
		`SELECT `+versionColumns+` FROM `+s.tableName()+` WHERE policy_id = $1 AND version_number = $2`,
		policyID, number,
	)
}

func (s *VersionStore) one(ctx context.Context, query string, args ...any) (*version.PolicyVersion, error) {
	v, err := scanVersion(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, version.ErrVersionNotFound
	}
	if err != nil {
		return nil, wrapError(err)
	}
	return v, nil
}

// ListByPolicy returns a policy's versions, highest number first.
func (s *VersionStore) ListByPolicy(ctx context.Context, policyID string) ([]*version.PolicyVersion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+versionColumns+` FROM `+s.tableName()+` WHERE policy_id = $1 ORDER BY version_number DESC`,
		policyID,
	)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	versions := make([]*version.PolicyVersion, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, wrapError(err)
		}
		versions = append(versions, v)
	}
	return versions, wrapError(rows.Err())
}

// Count returns the number of versions of a policy.
func (s *VersionStore) Count(ctx context.Context, policyID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM `+s.tableName()+` WHERE policy_id = $1`, policyID,
	).Scan(&n)
	return n, wrapError(err)
}

// DeleteUnlessLast removes a version, refusing when it is the policy's
// only version. The policy row is locked so concurrent deletes serialize.
func (s *VersionStore) DeleteUnlessLast(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var policyID string
	err = tx.QueryRow(ctx, `SELECT policy_id FROM `+s.tableName()+` WHERE id = $1`, id).Scan(&policyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return version.ErrVersionNotFound
	}
	if err != nil {
		return wrapError(err)
	}
	if _, err := currentVersionNumber(ctx, tx, s.schema, policyID, true); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM `+s.tableName()+` WHERE policy_id = $1`, policyID,
	).Scan(&count); err != nil {
		return wrapError(err)
	}
	if count <= 1 {
		return version.ErrLastVersion
	}

	tag, err := tx.Exec(ctx, `DELETE FROM `+s.tableName()+` WHERE id = $1`, id)
	if err := affectedOrNotFound(tag, err, version.ErrVersionNotFound); err != nil {
		return err
	}
	return wrapError(tx.Commit(ctx))
}

// AppendNext numbers v one past the highest of the stored versions, floor
// and the policy pointer, inserts it and advances the pointer. The policy
// row is held FOR UPDATE for the whole transaction.
func (s *VersionStore) AppendNext(ctx context.Context, v *version.PolicyVersion, floor int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrapError(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	current, err := currentVersionNumber(ctx, tx, s.schema, v.PolicyID, true)
	if err != nil {
		return err
	}

	var highest int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version_number), 0) FROM `+s.tableName()+` WHERE policy_id = $1`, v.PolicyID,
	).Scan(&highest); err != nil {
		return wrapError(err)
	}

	next := max(highest, floor, current) + 1
	v.VersionNumber = next
	v.Version = version.Label(next)
	if err := v.Validate(); err != nil {
		return err
	}

	if err := s.insert(ctx, tx, v); err != nil {
		return err
	}
	if err := setVersion(ctx, tx, s.schema, v.PolicyID, v.Version, next); err != nil {
		return err
	}
	return wrapError(tx.Commit(ctx))
}

func scanVersion(row pgx.Row) (*version.PolicyVersion, error) {
	var v version.PolicyVersion
	if err := row.Scan(&v.ID, &v.PolicyID, &v.Version, &v.VersionNumber, &v.Content,
		&v.ChangeSummary, &v.CreatedBy, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.CreatedAt = v.CreatedAt.UTC()
	return &v, nil
}

// Ensure VersionStore implements version.Repository
var _ version.Repository = (*VersionStore)(nil)
