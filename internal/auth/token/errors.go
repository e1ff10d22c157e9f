package token

import "errors"

var (
	// ErrTokenInvalid is returned when the signature does not match, the
	// structure is malformed, or the type claim is absent or unrecognized.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenExpired is returned when the token is past its expiry beyond
	// the configured clock-skew allowance.
	ErrTokenExpired = errors.New("token expired")

	// ErrWeakSecret is returned at construction when the signing key is
	// shorter than 256 bits.
	ErrWeakSecret = errors.New("token signing secret too short")
)
