package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/felixgeelhaar/policykeeper/domain/approval"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

// ApprovalStore is a SQLite-backed implementation of approval.Repository.
// The (policy_id, approver_id) unique index backs the one-request-per-pair rule.
type ApprovalStore struct {
	db *sql.DB
}

// NewApprovalStore creates an approval store on an opened database.
func NewApprovalStore(db *sql.DB) *ApprovalStore {
	return &ApprovalStore{db: db}
}

const approvalColumns = `id, policy_id, approver_id, status, sequence_order, comments, created_at, updated_at, approved_at`

// Save persists a new request.
func (s *ApprovalStore) Save(ctx context.Context, r *approval.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO approval_requests (`+approvalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.PolicyID, r.ApproverID, string(r.Status), r.SequenceOrder, nullString(r.Comments),
		toUnix(r.CreatedAt), toUnix(r.UpdatedAt), nullTime(r.ApprovedAt),
	)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return approval.ErrDuplicateApproval
	case isForeignKeyViolation(err):
		return policy.ErrPolicyNotFound
	default:
		return err
	}
}

// Get retrieves a request by ID.
func (s *ApprovalStore) Get(ctx context.Context, id string) (*approval.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.one(ctx, `SELECT `+approvalColumns+` FROM approval_requests WHERE id = ?`, id)
}

// FindByPolicyAndApprover returns the request for the pair.
func (s *ApprovalStore) FindByPolicyAndApprover(ctx context.Context, policyID, approverID string) (*approval.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.one(ctx,
		`SELECT `+approvalColumns+` FROM approval_requests WHERE policy_id = ? AND approver_id = ?`,
		policyID, approverID,
	)
}

func (s *ApprovalStore) one(ctx context.Context, query string, args ...any) (*approval.Request, error) {
	r, err := scanApproval(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, approval.ErrApprovalNotFound
	}
	return r, err
}

// Update replaces a stored request whose status is still from. Policy and
// approver are immutable.
func (s *ApprovalStore) Update(ctx context.Context, r *approval.Request, from approval.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE approval_requests SET
			status = ?, sequence_order = ?, comments = ?, updated_at = ?, approved_at = ?
		 WHERE id = ? AND status = ?`,
		string(r.Status), r.SequenceOrder, nullString(r.Comments),
		toUnix(r.UpdatedAt), nullTime(r.ApprovedAt), r.ID, string(from),
	)
	if err := affectedOrNotFound(result, err, approval.ErrStatusChanged); !errors.Is(err, approval.ErrStatusChanged) {
		return err
	}

	// No row matched: tell a stale status from a missing request.
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM approval_requests WHERE id = ?`, r.ID).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return approval.ErrApprovalNotFound
	case err != nil:
		return err
	}
	return approval.ErrStatusChanged
}

// Delete removes a request by ID.
func (s *ApprovalStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM approval_requests WHERE id = ?`, id)
	return affectedOrNotFound(result, err, approval.ErrApprovalNotFound)
}

// List returns requests matching the filter.
func (s *ApprovalStore) List(ctx context.Context, filter approval.ListFilter) ([]*approval.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	where, args := buildApprovalWhere(filter)
	query := `SELECT ` + approvalColumns + ` FROM approval_requests`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY " + approvalOrder(filter.OrderBy)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	results := make([]*approval.Request, 0)
	for rows.Next() {
		r, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func buildApprovalWhere(filter approval.ListFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if filter.PolicyID != "" {
		conditions = append(conditions, "policy_id = ?")
		args = append(args, filter.PolicyID)
	}
	if filter.ApproverID != "" {
		conditions = append(conditions, "approver_id = ?")
		args = append(args, filter.ApproverID)
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	return strings.Join(conditions, " AND "), args
}

func approvalOrder(order approval.OrderBy) string {
	switch order {
	case approval.OrderCreatedDesc:
		return "created_at DESC, id"
	case approval.OrderSequence:
		return "sequence_order, created_at, id"
	default:
		return "created_at, id"
	}
}

func scanApproval(row rowScanner) (*approval.Request, error) {
	var (
		r                    approval.Request
		status               string
		comments             sql.NullString
		createdAt, updatedAt int64
		approvedAt           sql.NullInt64
	)
	if err := row.Scan(&r.ID, &r.PolicyID, &r.ApproverID, &status, &r.SequenceOrder,
		&comments, &createdAt, &updatedAt, &approvedAt); err != nil {
		return nil, err
	}
	r.Status = approval.Status(status)
	r.Comments = stringPtr(comments)
	r.CreatedAt = fromUnix(createdAt)
	r.UpdatedAt = fromUnix(updatedAt)
	r.ApprovedAt = timePtr(approvedAt)
	return &r, nil
}

// Ensure ApprovalStore implements approval.Repository
var _ approval.Repository = (*ApprovalStore)(nil)
