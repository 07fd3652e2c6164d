package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/felixgeelhaar/policykeeper/domain/approval"
	"github.com/felixgeelhaar/policykeeper/domain/fault"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
)

func TestWrapError(t *testing.T) {
	t.Parallel()

	boom := errors.New("some database error")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"nil", nil, nil},
		{"deadline", context.DeadlineExceeded, fault.ErrOperationTimeout},
		{"wrapped deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), fault.ErrOperationTimeout},
		{"other", boom, fault.ErrConnectionFailed},
		{"domain error untouched", policy.ErrPolicyNotFound, policy.ErrPolicyNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := wrapError(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Errorf("wrapError(nil) = %v", got)
				}
				return
			}
			if !errors.Is(got, tt.sentinel) {
				t.Errorf("wrapError() = %v, want %v", got, tt.sentinel)
			}
			if !errors.Is(got, tt.err) {
				t.Error("wrapped error should contain the original")
			}
		})
	}
}

func TestConstraintCodes(t *testing.T) {
	t.Parallel()

	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	foreign := &pgconn.PgError{Code: "23503"}

	if !isUniqueViolation(unique) || isForeignKeyViolation(unique) {
		t.Error("23505 should be a unique violation only")
	}
	if !isForeignKeyViolation(foreign) || isUniqueViolation(foreign) {
		t.Error("23503 should be a foreign key violation only")
	}
	if isUniqueViolation(errors.New("duplicate key")) {
		t.Error("plain errors are not constraint violations")
	}
}

func TestTable(t *testing.T) {
	t.Parallel()

	if got := table("", "policies"); got != `"public"."policies"` {
		t.Errorf("table() = %s", got)
	}
	if got := table("gov", "events"); got != `"gov"."events"` {
		t.Errorf("table() = %s", got)
	}
}

func TestApprovalStore_buildListSQL(t *testing.T) {
	t.Parallel()

	store := NewApprovalStore(nil, "gov")

	t.Run("no filter", func(t *testing.T) {
		t.Parallel()

		query, args := store.buildListSQL(approval.ListFilter{})
		want := `SELECT ` + approvalColumns + ` FROM "gov"."approval_requests" ORDER BY created_at, id`
		if query != want {
			t.Errorf("query = %s", query)
		}
		if len(args) != 0 {
			t.Errorf("args = %v", args)
		}
	})

	t.Run("all filters", func(t *testing.T) {
		t.Parallel()

		query, args := store.buildListSQL(approval.ListFilter{
			PolicyID:   "p1",
			ApproverID: "alice",
			Status:     []approval.Status{approval.StatusPending},
			OrderBy:    approval.OrderSequence,
		})
		want := `SELECT ` + approvalColumns + ` FROM "gov"."approval_requests"` +
			` WHERE policy_id = $1 AND approver_id = $2 AND status = ANY($3)` +
			` ORDER BY sequence_order, created_at, id`
		if query != want {
			t.Errorf("query = %s", query)
		}
		if len(args) != 3 {
			t.Fatalf("args length = %d, want 3", len(args))
		}
		if statuses, ok := args[2].([]string); !ok || statuses[0] != "PENDING" {
			t.Errorf("status arg = %#v", args[2])
		}
	})

	t.Run("newest first", func(t *testing.T) {
		t.Parallel()

		query, _ := store.buildListSQL(approval.ListFilter{OrderBy: approval.OrderCreatedDesc})
		want := `SELECT ` + approvalColumns + ` FROM "gov"."approval_requests" ORDER BY created_at DESC, id`
		if query != want {
			t.Errorf("query = %s", query)
		}
	})
}
