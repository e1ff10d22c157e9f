// Package token issues and verifies the signed access/refresh tokens used by
// the session subsystem.
//
// Tokens are self-contained HS256 JWTs. The codec is a pure cryptographic
// boundary: it checks signature, structure, and expiry only. Business rules
// (expected type, version match, device binding) belong to the session
// service.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token types recognized by the codec. Anything else fails verification.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// minSecretBytes is the minimum HMAC key length (256 bits).
const minSecretBytes = 32

// Claims is the full claim set carried by Ripple tokens.
//
// Access tokens carry no ID (jti) and no DeviceID; refresh tokens carry both.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"uid"`
	TokenType string `json:"typ"`
	Version   int64  `json:"ver"`
	DeviceID  string `json:"did,omitempty"`
}

// Config defines the codec parameters.
type Config struct {
	// Secret is the symmetric signing key. Must be at least 32 bytes.
	Secret []byte

	// AccessTTL is the lifetime of access tokens (minutes scale).
	AccessTTL time.Duration

	// RefreshTTL is the lifetime of refresh tokens (days scale).
	RefreshTTL time.Duration

	// ClockSkew is the leeway applied to expiry checks during verification.
	ClockSkew time.Duration
}

// Codec signs and verifies tokens. It holds no persisted state.
type Codec struct {
	cfg Config
	now func() time.Time
}

// Option configures optional Codec behavior.
type Option func(*Codec)

// WithClock overrides the time source, for deterministic expiry tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec validates the configuration and builds a Codec.
// It fails fast with ErrWeakSecret if the key is shorter than 256 bits.
func NewCodec(cfg Config, opts ...Option) (*Codec, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("%w: got %d bytes, want at least %d", ErrWeakSecret, len(cfg.Secret), minSecretBytes)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token: non-positive TTL")
	}
	if cfg.ClockSkew < 0 {
		return nil, fmt.Errorf("token: negative clock skew")
	}

	c := &Codec{
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IssueAccess produces a short-lived access token for userID at the given
// token version.
func (c *Codec) IssueAccess(userID, version int64) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(c.cfg.AccessTTL)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:    userID,
		TokenType: TypeAccess,
		Version:   version,
	})

	signed, err := t.SignedString(c.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign access token: %w", err)
	}
	return signed, exp, nil
}

// IssueRefresh produces a long-lived refresh token bound to deviceID, with a
// freshly generated unique token id. The id is returned alongside the token
// so callers can index the session record without re-parsing.
func (c *Codec) IssueRefresh(userID, version int64, deviceID string) (signed, tokenID string, exp time.Time, err error) {
	now := c.now()
	exp = now.Add(c.cfg.RefreshTTL)
	tokenID = uuid.NewString()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:    userID,
		TokenType: TypeRefresh,
		Version:   version,
		DeviceID:  deviceID,
	})

	signed, err = t.SignedString(c.cfg.Secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("token: sign refresh token: %w", err)
	}
	return signed, tokenID, exp, nil
}

// Verify checks signature, structure, and expiry, and returns the decoded
// claims. Expiry is judged against the injected clock with the configured
// leeway. It does not decide whether the type is the one the caller wants;
// it only rejects types it does not recognize at all.
func (c *Codec) Verify(raw string) (Claims, error) {
	claims := Claims{}
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.cfg.Secret, nil
	},
		jwt.WithTimeFunc(c.now),
		jwt.WithLeeway(c.cfg.ClockSkew),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !parsed.Valid {
		return Claims{}, ErrTokenInvalid
	}
	if claims.UserID <= 0 {
		return Claims{}, ErrTokenInvalid
	}
	if claims.TokenType != TypeAccess && claims.TokenType != TypeRefresh {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}
