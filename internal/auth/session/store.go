// Package session implements the refresh-session lifecycle: issuance,
// rotation with reuse detection, per-device and global revocation.
//
// Refresh tokens are signed JWTs, but the server additionally keeps one live
// session record per (user, device) holding the token id and a hash of the
// full token string, plus a replay ledger of consumed token ids. The service
// in this package orchestrates codec, store, and user directory; it never
// bypasses the store.
package session

import (
	"context"
	"time"
)

// Session is the server-side record of the single live refresh token for a
// (user, device) pair. The raw token is never stored, only its hash.
type Session struct {
	TokenID   string
	TokenHash string
	ExpiresAt time.Time
}

// Store abstracts persistence for session records, the device index, and the
// replay ledger.
//
// Implementations must make each single-key read-modify-write serializable;
// the rotation path's correctness under concurrent refresh relies on
// MarkUsed being an atomic insert-if-absent.
type Store interface {
	// Store overwrites the session record for (userID, deviceID) and adds
	// the device to the user's device index. Any previous record for the
	// exact pair is implicitly discarded.
	Store(ctx context.Context, userID int64, deviceID string, s Session) error

	// Get returns the live session for (userID, deviceID), judging expiry
	// against now. Absence is ErrSessionNotFound.
	Get(ctx context.Context, now time.Time, userID int64, deviceID string) (Session, error)

	// Delete removes the session record and the device-index entry.
	// Deleting an absent session is not an error.
	Delete(ctx context.Context, userID int64, deviceID string) error

	// DeleteAll removes every session for the user and clears the device
	// index. Best-effort complete from the caller's point of view.
	DeleteAll(ctx context.Context, userID int64) error

	// Devices enumerates the device ids with a live session for the user.
	Devices(ctx context.Context, now time.Time, userID int64) ([]string, error)

	// MarkUsed inserts tokenID into the replay ledger with the given expiry
	// (the token's own remaining lifetime). It reports whether this call was
	// the first to mark the id, so concurrent rotations of the same token
	// have exactly one winner.
	MarkUsed(ctx context.Context, tokenID string, expiresAt time.Time) (first bool, err error)

	// IsUsed reports whether tokenID is present in the replay ledger.
	IsUsed(ctx context.Context, now time.Time, tokenID string) (bool, error)

	// PurgeExpired removes expired session records and ledger entries.
	// Called periodically by the app janitor.
	PurgeExpired(ctx context.Context, now time.Time) error
}
