package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/potato-club/ripple-server/internal/auth/token"
	"github.com/potato-club/ripple-server/internal/identity"
)

// Service implements login, refresh rotation, logout, and logout-all by
// combining the token codec, the session store, and the user directory.
//
// No in-process lock is taken: correctness under concurrent rotation relies
// on the store's per-key atomicity and on MarkUsed's insert-if-absent
// contract.
type Service struct {
	codec *token.Codec
	store Store
	users identity.Directory
	log   *slog.Logger

	dummyHash string
	now       func() time.Time
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// ServiceOption configures optional Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service.
func NewService(codec *token.Codec, store Store, users identity.Directory, log *slog.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		codec: codec,
		store: store,
		users: users,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}

	// Dummy hash for timing-resistant login checks.
	s.dummyHash = identity.DummyHash()

	return s
}

// Login verifies credentials and opens a session for deviceID, overwriting
// any prior session for that exact device.
func (s *Service) Login(ctx context.Context, identifier, password, deviceID string) (TokenPair, error) {
	ua, err := s.users.ResolveByIdentifier(ctx, identifier)
	if err != nil {
		if identity.IsNotFound(err) {
			// Timing resistance: perform a dummy verify when user is missing.
			if s.dummyHash != "" {
				_, _ = identity.VerifyPassword(password, s.dummyHash)
			}
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("login: resolve user: %w", err)
	}

	ok, err := identity.VerifyPassword(password, ua.PasswordHash)
	if err != nil || !ok {
		return TokenPair{}, ErrInvalidCredentials
	}
	if ua.Status != identity.StatusActive {
		return TokenPair{}, ErrUserInactive
	}

	return s.issuePair(ctx, ua.ID, ua.TokenVersion, deviceID)
}

// Refresh rotates a refresh token. The checks run strictly in order; each
// failure short-circuits with no side effect beyond the ones documented on
// the error.
func (s *Service) Refresh(ctx context.Context, refreshToken, deviceID string) (TokenPair, error) {
	now := s.now()

	// 1. Signature, structure, expiry.
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}

	// 2. Must be a refresh token.
	if claims.TokenType != token.TypeRefresh {
		return TokenPair{}, ErrTokenTypeInvalid
	}

	// 3. Defense in depth: recompute remaining lifetime without leeway.
	remaining := claims.ExpiresAt.Time.Sub(now)
	if remaining <= 0 {
		return TokenPair{}, token.ErrTokenExpired
	}

	// 4. The device asserted in the token must match the channel presenting it.
	if claims.DeviceID != deviceID {
		return TokenPair{}, ErrDeviceMismatch
	}

	// 5. Replay check. A consumed token id presented again is a theft
	// signal: poison every outstanding token for the user.
	used, err := s.store.IsUsed(ctx, now, claims.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh: replay check: %w", err)
	}
	if used {
		return TokenPair{}, s.handleReuse(ctx, claims.UserID, claims.ID)
	}

	// 6. Live session for the pair.
	sess, err := s.store.Get(ctx, now, claims.UserID, deviceID)
	if err != nil {
		if IsNotFound(err) {
			return TokenPair{}, ErrRefreshNotFound
		}
		return TokenPair{}, fmt.Errorf("refresh: load session: %w", err)
	}

	// 7. The stored record must match the presented token exactly. A
	// mismatch is suspicious: drop the session and force re-login.
	if sess.TokenID != claims.ID || !token.SecureCompare(sess.TokenHash, token.HashHex(refreshToken)) {
		if err := s.store.Delete(ctx, claims.UserID, deviceID); err != nil {
			return TokenPair{}, fmt.Errorf("refresh: delete mismatched session: %w", err)
		}
		return TokenPair{}, ErrRefreshMismatch
	}

	// 8. Re-resolve the user.
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("refresh: resolve user: %w", err)
	}
	if u.Status != identity.StatusActive {
		return TokenPair{}, ErrUserInactive
	}

	// 9. A version bump since issuance invalidates the token.
	if u.TokenVersion != claims.Version {
		return TokenPair{}, ErrSessionInvalidated
	}

	// 10. Rotate. Marking the old id used comes first and doubles as the
	// winner-takes-all check for concurrent rotations of the same token.
	first, err := s.store.MarkUsed(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh: mark used: %w", err)
	}
	if !first {
		return TokenPair{}, s.handleReuse(ctx, claims.UserID, claims.ID)
	}

	return s.issuePair(ctx, u.ID, u.TokenVersion, deviceID)
}

// Logout closes the session for (token subject, deviceID). A garbage or
// wrong-type token is a silent no-op: logout must never fail observably.
func (s *Service) Logout(ctx context.Context, accessToken, deviceID string) error {
	claims, err := s.codec.Verify(accessToken)
	if err != nil || claims.TokenType != token.TypeAccess {
		return nil
	}
	if err := s.store.Delete(ctx, claims.UserID, deviceID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// LogoutAll closes every session for the token's subject, across all
// devices. Same decode tolerance as Logout.
func (s *Service) LogoutAll(ctx context.Context, accessToken string) error {
	claims, err := s.codec.Verify(accessToken)
	if err != nil || claims.TokenType != token.TypeAccess {
		return nil
	}
	if err := s.store.DeleteAll(ctx, claims.UserID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}
	return nil
}

// Devices lists the device ids with a live session for the user.
func (s *Service) Devices(ctx context.Context, userID int64) ([]string, error) {
	return s.store.Devices(ctx, s.now(), userID)
}

// RevokeDevice closes the session for one of the user's devices.
func (s *Service) RevokeDevice(ctx context.Context, userID int64, deviceID string) error {
	return s.store.Delete(ctx, userID, deviceID)
}

// handleReuse bumps the user's token version so every outstanding token dies
// at its next version check, then returns ErrRefreshReused. The mandatory
// write happens before the error surfaces.
func (s *Service) handleReuse(ctx context.Context, userID int64, tokenID string) error {
	if _, err := s.users.BumpTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("refresh: revoke on reuse: %w", err)
	}
	s.log.Warn("auth.refresh.reuse_detected", "user_id", userID, "token_id", tokenID)
	return ErrRefreshReused
}

// issuePair mints an access/refresh pair at the given version and stores the
// new session record. The store write is last, after all validation, to keep
// the half-written window minimal.
func (s *Service) issuePair(ctx context.Context, userID, version int64, deviceID string) (TokenPair, error) {
	access, accessExp, err := s.codec.IssueAccess(userID, version)
	if err != nil {
		return TokenPair{}, err
	}

	refresh, tokenID, refreshExp, err := s.codec.IssueRefresh(userID, version, deviceID)
	if err != nil {
		return TokenPair{}, err
	}

	err = s.store.Store(ctx, userID, deviceID, Session{
		TokenID:   tokenID,
		TokenHash: token.HashHex(refresh),
		ExpiresAt: refreshExp,
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("issue pair: store session: %w", err)
	}

	return TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IsNotFound reports whether err is the store's absence marker.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
