package sqlite

import (
	"context"
	"database/sql"

	"github.com/felixgeelhaar/policykeeper/domain/user"
)

// UserStore is a SQLite-backed implementation of user.Store.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store on an opened database.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Save persists a new user.
func (s *UserStore) Save(ctx context.Context, u *user.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.ID == "" {
		return user.ErrInvalidUserID
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, name) VALUES (?, ?)`, u.ID, u.Name)
	if isUniqueViolation(err) {
		return user.ErrUserExists
	}
	return err
}

// Exists reports whether a user with id exists.
func (s *UserStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists)
	return exists, err
}

// Ensure UserStore implements user.Store
var _ user.Store = (*UserStore)(nil)
