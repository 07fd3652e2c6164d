package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

// PolicyStore is a PostgreSQL-backed implementation of policy.Store.
type PolicyStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPolicyStore creates a new PostgreSQL policy store.
func NewPolicyStore(pool *pgxpool.Pool, schema string) *PolicyStore {
	if schema == "" {
		schema = "public"
	}
	return &PolicyStore{pool: pool, schema: schema}
}

const policyColumns = `id, title, status, version, version_number, created_at, updated_at, published_at, deleted_at`

// Save persists a new policy.
func (s *PolicyStore) Save(ctx context.Context, p *policy.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+table(s.schema, "policies")+` (`+policyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Title, string(p.Status), p.Version, p.VersionNumber,
		p.CreatedAt, p.UpdatedAt, p.PublishedAt, p.DeletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return policy.ErrPolicyExists
		}
		return wrapError(err)
	}
	return nil
}

// FindByID retrieves a policy.
func (s *PolicyStore) FindByID(ctx context.Context, id string, opts policy.FindOptions) (*policy.Policy, error) {
	p, err := scanPolicy(s.pool.QueryRow(ctx,
		`SELECT `+policyColumns+` FROM `+table(s.schema, "policies")+` WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, policy.ErrPolicyNotFound
	}
	if err != nil {
		return nil, wrapError(err)
	}
	if p.IsDeleted() && !opts.IncludeDeleted {
		return nil, policy.ErrPolicyNotFound
	}
	return p, nil
}

// UpdateStatus sets the status of a live policy. The first move to
// PUBLISHED stamps published_at.
func (s *PolicyStore) UpdateStatus(ctx context.Context, id string, status policy.Status) error {
	if !status.IsValid() {
		return policy.ErrInvalidStatus
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+table(s.schema, "policies")+` SET
			status = $1::text,
			updated_at = $2,
			published_at = CASE WHEN $1::text = $3::text AND published_at IS NULL THEN $2 ELSE published_at END
		 WHERE id = $4 AND deleted_at IS NULL`,
		string(status), time.Now().UTC(), string(policy.StatusPublished), id,
	)
	return affectedOrNotFound(tag, err, policy.ErrPolicyNotFound)
}

// CurrentVersionNumber returns the policy's version pointer.
func (s *PolicyStore) CurrentVersionNumber(ctx context.Context, id string) (int, error) {
	return currentVersionNumber(ctx, s.pool, s.schema, id, false)
}

// SetVersion advances the version pointer; lower numbers are ignored.
func (s *PolicyStore) SetVersion(ctx context.Context, id, label string, number int) error {
	if _, err := currentVersionNumber(ctx, s.pool, s.schema, id, false); err != nil {
		return err
	}
	return setVersion(ctx, s.pool, s.schema, id, label, number)
}

// SoftDelete marks the policy deleted.
func (s *PolicyStore) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+table(s.schema, "policies")+` SET deleted_at = $1, updated_at = $1
		 WHERE id = $2 AND deleted_at IS NULL`,
		now, id,
	)
	return affectedOrNotFound(tag, err, policy.ErrPolicyNotFound)
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// currentVersionNumber reads the pointer; forUpdate locks the policy row
// until the enclosing transaction ends.
func currentVersionNumber(ctx context.Context, q querier, schema, id string, forUpdate bool) (int, error) {
	query := `SELECT version_number FROM ` + table(schema, "policies") + ` WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var n int
	err := q.QueryRow(ctx, query, id).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, policy.ErrPolicyNotFound
	}
	return n, wrapError(err)
}

func setVersion(ctx context.Context, q querier, schema, id, label string, number int) error {
	_, err := q.Exec(ctx,
		`UPDATE `+table(schema, "policies")+` SET version = $1, version_number = $2, updated_at = $3
		 WHERE id = $4 AND version_number < $2`,
		label, number, time.Now().UTC(), id,
	)
	return wrapError(err)
}

func affectedOrNotFound(tag pgconn.CommandTag, err error, notFound error) error {
	if err != nil {
		return wrapError(err)
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

func scanPolicy(row pgx.Row) (*policy.Policy, error) {
	var (
		p      policy.Policy
		status string
	)
	if err := row.Scan(&p.ID, &p.Title, &status, &p.Version, &p.VersionNumber,
		&p.CreatedAt, &p.UpdatedAt, &p.PublishedAt, &p.DeletedAt); err != nil {
		return nil, err
	}
	p.Status = policy.Status(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	p.PublishedAt = utcPtr(p.PublishedAt)
	p.DeletedAt = utcPtr(p.DeletedAt)
	return &p, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Ensure PolicyStore implements policy.Store
var _ policy.Store = (*PolicyStore)(nil)
