package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/policykeeper/domain/approval"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

// ApprovalStore is a PostgreSQL-backed implementation of approval.Repository.
type ApprovalStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewApprovalStore creates a new PostgreSQL approval store.
func NewApprovalStore(pool *pgxpool.Pool, schema string) *ApprovalStore {
	if schema == "" {
		schema = "public"
	}
	return &ApprovalStore{pool: pool, schema: schema}
}

const approvalColumns = `id, policy_id, approver_id, status, sequence_order, comments, created_at, updated_at, approved_at`

func (s *ApprovalStore) tableName() string {
	return table(s.schema, "approval_requests")
}

// Save persists a new request.
func (s *ApprovalStore) Save(ctx context.Context, r *approval.Request) error {
	if err := r.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.tableName()+` (`+approvalColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.PolicyID, r.ApproverID, string(r.Status), r.SequenceOrder, r.Comments,
		r.CreatedAt, r.UpdatedAt, r.ApprovedAt,
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return approval.ErrDuplicateApproval
	case isForeignKeyViolation(err):
		return policy.ErrPolicyNotFound
	default:
		return wrapError(err)
	}
}

// Get retrieves a request by ID.
func (s *ApprovalStore) Get(ctx context.Context, id string) (*approval.Request, error) {
	return s.one(ctx, `SELECT `+approvalColumns+` FROM `+s.tableName()+` WHERE id = $1`, id)
}

// FindByPolicyAndApprover returns the request for the pair.
func (s *ApprovalStore) FindByPolicyAndApprover(ctx context.Context, policyID, approverID string) (*approval.Request, error) {
	return s.one(ctx,
		`SELECT `+approvalColumns+` FROM `+s.tableName()+` WHERE policy_id = $1 AND approver_id = $2`,
		policyID, approverID,
	)
}

func (s *ApprovalStore) one(ctx context.Context, query string, args ...any) (*approval.Request, error) {
	r, err := scanApproval(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, approval.ErrApprovalNotFound
	}
	if err != nil {
		return nil, wrapError(err)
	}
	return r, nil
}

// Update replaces a stored request whose status is still from. Policy and
// approver are immutable.
func (s *ApprovalStore) Update(ctx context.Context, r *approval.Request, from approval.Status) error {
	if err := r.Validate(); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.tableName()+` SET
			status = $1, sequence_order = $2, comments = $3, updated_at = $4, approved_at = $5
		 WHERE id = $6 AND status = $7`,
		string(r.Status), r.SequenceOrder, r.Comments, r.UpdatedAt, r.ApprovedAt, r.ID, string(from),
	)
	if err := affectedOrNotFound(tag, err, approval.ErrStatusChanged); !errors.Is(err, approval.ErrStatusChanged) {
		return err
	}

	var exists int
	err = s.pool.QueryRow(ctx, `SELECT 1 FROM `+s.tableName()+` WHERE id = $1`, r.ID).Scan(&exists)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return approval.ErrApprovalNotFound
	case err != nil:
		return wrapError(err)
	}
	return approval.ErrStatusChanged
}

// Delete removes a request by ID.
func (s *ApprovalStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.tableName()+` WHERE id = $1`, id)
	return affectedOrNotFound(tag, err, approval.ErrApprovalNotFound)
}

// List returns requests matching the filter.
func (s *ApprovalStore) List(ctx context.Context, filter approval.ListFilter) ([]*approval.Request, error) {
	query, args := s.buildListSQL(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(err)
	}
	defer rows.Close()

	results := make([]*approval.Request, 0)
	for rows.Next() {
		r, err := scanApproval(rows)
		if err != nil {
			return nil, wrapError(err)
		}
		results = append(results, r)
	}
	return results, wrapError(rows.Err())
}

func (s *ApprovalStore) buildListSQL(filter approval.ListFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.PolicyID != "" {
		conditions = append(conditions, "policy_id = "+arg(filter.PolicyID))
	}
	if filter.ApproverID != "" {
		conditions = append(conditions, "approver_id = "+arg(filter.ApproverID))
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, st := range filter.Status {
			statuses[i] = string(st)
		}
		conditions = append(conditions, "status = ANY("+arg(statuses)+")")
	}

	query := `SELECT ` + approvalColumns + ` FROM ` + s.tableName()
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	switch filter.OrderBy {
	case approval.OrderCreatedDesc:
		query += " ORDER BY created_at DESC, id"
	case approval.OrderSequence:
		query += " ORDER BY sequence_order, created_at, id"
	default:
		query += " ORDER BY created_at, id"
	}
	return query, args
}

func scanApproval(row pgx.Row) (*approval.Request, error) {
	var (
		r      approval.Request
		status string
	)
	if err := row.Scan(&r.ID, &r.PolicyID, &r.ApproverID, &status, &r.SequenceOrder,
		&r.Comments, &r.CreatedAt, &r.UpdatedAt, &r.ApprovedAt); err != nil {
		return nil, err
	}
	r.Status = approval.Status(status)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	r.ApprovedAt = utcPtr(r.ApprovedAt)
	return &r, nil
}

// Ensure ApprovalStore implements approval.Repository
var _ approval.Repository = (*ApprovalStore)(nil)
