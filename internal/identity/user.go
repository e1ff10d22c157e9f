// Package identity provides the user directory consumed by the session
// subsystem: credential lookup, account status, and the per-user token
// version used for global session invalidation.
package identity

import (
	"context"
	"errors"
)

// Status is the lifecycle state of an account.
type Status string

const (
	// StatusActive is a normal, usable account.
	StatusActive Status = "active"
	// StatusInactive is a suspended or not-yet-activated account.
	StatusInactive Status = "inactive"
	// StatusDeleted is a soft-deleted account.
	StatusDeleted Status = "deleted"
)

// User is the identity snapshot needed by the auth core.
type User struct {
	ID           int64
	Username     string
	Email        string
	Status       Status
	TokenVersion int64
}

// UserAuth couples a user with its stored password hash for login checks.
type UserAuth struct {
	User
	PasswordHash string
}

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("identity: user not found")

// IsNotFound reports whether err is the directory's absence marker.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Directory resolves users and owns the token-version counter.
//
// Bumping the token version invalidates every token minted before the bump,
// across all devices, regardless of individual expiry.
type Directory interface {
	// ResolveByIdentifier looks a user up by username or email.
	ResolveByIdentifier(ctx context.Context, identifier string) (UserAuth, error)

	// GetByID loads the current identity snapshot for a known user id.
	GetByID(ctx context.Context, id int64) (User, error)

	// BumpTokenVersion atomically increments the user's token version and
	// returns the new value.
	BumpTokenVersion(ctx context.Context, id int64) (int64, error)
}
