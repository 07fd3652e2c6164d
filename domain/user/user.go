// Package user provides the minimal user record the engine checks approvers
// and authors against.
package user

import (
	"context"

	"github.com/felixgeelhaar/policykeeper/domain/fault"
)

// User is a person who can approve or author policy versions.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Store defines the interface for user lookups.
type Store interface {
	// Save persists a new user.
	Save(ctx context.Context, u *User) error

	// Exists reports whether a user with the ID exists.
	Exists(ctx context.Context, id string) (bool, error)
}

var (
	// ErrUserExists indicates a user with this ID already exists.
	ErrUserExists = fault.New(fault.ErrConflict, "user already exists")

	// ErrInvalidUserID indicates an empty user ID.
	ErrInvalidUserID = fault.New(fault.ErrInvalidInput, "invalid user ID")
)
