package memory

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/policykeeper/domain/user"
)

// UserStore is an in-memory implementation of user.Store.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]user.User
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]user.User)}
}

// Save persists a new user.
func (s *UserStore) Save(ctx context.Context, u *user.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.ID == "" {
		return user.ErrInvalidUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; exists {
		return user.ErrUserExists
	}
	s.users[u.ID] = *u
	return nil
}

// Exists reports whether a user with the ID exists.
func (s *UserStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.users[id]
	return ok, nil
}

var _ user.Store = (*UserStore)(nil)
