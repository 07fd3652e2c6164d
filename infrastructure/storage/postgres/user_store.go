package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/policykeeper/domain/user"
)

// UserStore is a PostgreSQL-backed implementation of user.Store.
type UserStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewUserStore creates a new PostgreSQL user store.
func NewUserStore(pool *pgxpool.Pool, schema string) *UserStore {
	if schema == "" {
		schema = "public"
	}
	return &UserStore{pool: pool, schema: schema}
}

// Save persists a new user.
func (s *UserStore) Save(ctx context.Context, u *user.User) error {
	if u.ID == "" {
		return user.ErrInvalidUserID
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+table(s.schema, "users")+` (id, name) VALUES ($1, $2)`,
		u.ID, u.Name,
	)
	if isUniqueViolation(err) {
		return user.ErrUserExists
	}
	return wrapError(err)
}

// Exists reports whether a user with id exists.
func (s *UserStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table(s.schema, "users")+` WHERE id = $1)`, id,
	).Scan(&exists)
	return exists, wrapError(err)
}

// Ensure UserStore implements user.Store
var _ user.Store = (*UserStore)(nil)
