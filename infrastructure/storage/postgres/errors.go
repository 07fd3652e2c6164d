package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/felixgeelhaar/policykeeper/domain/fault"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation
}

// wrapError joins infrastructure errors with the matching fault sentinel.
// Errors that already carry a domain kind pass through unchanged.
func wrapError(err error) error {
	if err == nil || fault.Kind(err) != nil {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(fault.ErrOperationTimeout, err)
	}
	return errors.Join(fault.ErrConnectionFailed, err)
}
