package session

import "errors"

var (
	// ErrInvalidCredentials is returned when the user is unknown or the
	// password check fails.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserInactive is returned when the account is not active.
	ErrUserInactive = errors.New("user not active")

	// ErrTokenTypeInvalid is returned when a correctly signed token carries
	// the wrong type for the operation (access where refresh is expected,
	// or vice versa).
	ErrTokenTypeInvalid = errors.New("wrong token type")

	// ErrDeviceMismatch is returned when the device asserted in a refresh
	// token does not match the device presenting it.
	ErrDeviceMismatch = errors.New("device mismatch")

	// ErrRefreshNotFound is returned when no live session exists for the
	// (user, device) pair.
	ErrRefreshNotFound = errors.New("refresh session not found")

	// ErrRefreshMismatch is returned when the presented refresh token does
	// not match the stored session record. The session is deleted as a side
	// effect, forcing re-login on that device.
	ErrRefreshMismatch = errors.New("refresh token mismatch")

	// ErrRefreshReused is returned when an already-rotated refresh token is
	// presented again. All of the user's outstanding tokens are invalidated
	// before this error surfaces.
	ErrRefreshReused = errors.New("refresh token reuse detected")

	// ErrSessionInvalidated is returned when the token's version no longer
	// matches the user's current token version (a logout-all or a
	// reuse-triggered bump happened since issuance).
	ErrSessionInvalidated = errors.New("session invalidated")

	// ErrSessionNotFound is the store-level absence marker: never logged in
	// on this device, or the session expired or was deleted.
	ErrSessionNotFound = errors.New("session not found")
)
