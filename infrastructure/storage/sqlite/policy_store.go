package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

// PolicyStore is a SQLite-backed implementation of policy.Store.
type PolicyStore struct {
	db *sql.DB
}

// NewPolicyStore creates a policy store on an opened database.
func NewPolicyStore(db *sql.DB) *PolicyStore {
	return &PolicyStore{db: db}
}

const policyColumns = `id, title, status, version, version_number, created_at, updated_at, published_at, deleted_at`

// Save persists a new policy.
func (s *PolicyStore) Save(ctx context.Context, p *policy.Policy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO policies (`+policyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, string(p.Status), p.Version, p.VersionNumber,
		toUnix(p.CreatedAt), toUnix(p.UpdatedAt), nullTime(p.PublishedAt), nullTime(p.DeletedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return policy.ErrPolicyExists
		}
		return err
	}
	return nil
}

// FindByID retrieves a policy.
func (s *PolicyStore) FindByID(ctx context.Context, id string, opts policy.FindOptions) (*policy.Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := scanPolicy(s.db.QueryRowContext(ctx,
		`SELECT `+policyColumns+` FROM policies WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, policy.ErrPolicyNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.IsDeleted() && !opts.IncludeDeleted {
		return nil, policy.ErrPolicyNotFound
	}
	return p, nil
}

// UpdateStatus sets the status of a live policy.
func (s *PolicyStore) UpdateStatus(ctx context.Context, id string, status policy.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !status.IsValid() {
		return policy.ErrInvalidStatus
	}

	now := toUnix(time.Now())
	result, err := s.db.ExecContext(ctx,
		`UPDATE policies SET
			status = ?,
			updated_at = ?,
			published_at = CASE WHEN ? = ? AND published_at IS NULL THEN ? ELSE published_at END
		 WHERE id = ? AND deleted_at IS NULL`,
		string(status), now, string(status), string(policy.StatusPublished), now, id,
	)
	return affectedOrNotFound(result, err, policy.ErrPolicyNotFound)
}

// CurrentVersionNumber returns the policy's version pointer.
func (s *PolicyStore) CurrentVersionNumber(ctx context.Context, id string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return currentVersionNumber(ctx, s.db, id)
}

// SetVersion advances the version pointer; lower numbers are ignored.
func (s *PolicyStore) SetVersion(ctx context.Context, id, label string, number int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := currentVersionNumber(ctx, s.db, id); err != nil {
		return err
	}
	return setVersion(ctx, s.db, id, label, number)
}

// SoftDelete marks the policy deleted.
func (s *PolicyStore) SoftDelete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := toUnix(time.Now())
	result, err := s.db.ExecContext(ctx,
		`UPDATE policies SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, id,
	)
	return affectedOrNotFound(result, err, policy.ErrPolicyNotFound)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func currentVersionNumber(ctx context.Context, q queryer, id string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT version_number FROM policies WHERE id = ?`, id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, policy.ErrPolicyNotFound
	}
	return n, err
}

func setVersion(ctx context.Context, q queryer, id, label string, number int) error {
	_, err := q.ExecContext(ctx,
		`UPDATE policies SET version = ?, version_number = ?, updated_at = ?
		 WHERE id = ? AND version_number < ?`,
		label, number, toUnix(time.Now()), id, number,
	)
	return err
}

func affectedOrNotFound(result sql.Result, err error, notFound error) error {
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func scanPolicy(row rowScanner) (*policy.Policy, error) {
	var (
		p                      policy.Policy
		status                 string
		createdAt, updatedAt   int64
		publishedAt, deletedAt sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Title, &status, &p.Version, &p.VersionNumber,
		&createdAt, &updatedAt, &publishedAt, &deletedAt); err != nil {
		return nil, err
	}
	p.Status = policy.Status(status)
	p.CreatedAt = fromUnix(createdAt)
	p.UpdatedAt = fromUnix(updatedAt)
	p.PublishedAt = timePtr(publishedAt)
	p.DeletedAt = timePtr(deletedAt)
	return &p, nil
}

// Ensure PolicyStore implements policy.Store
var _ policy.Store = (*PolicyStore)(nil)
