package identity

import (
	"github.com/alexedwards/argon2id"
)

// HashPassword derives an argon2id hash suitable for storage.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}

// VerifyPassword checks password against a stored argon2id hash.
// It returns (false, nil) on a clean mismatch and a non-nil error only for
// malformed hashes.
func VerifyPassword(password, hash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, hash)
}

// DummyHash produces a throwaway hash used to keep login timing flat when
// the looked-up user does not exist. Callers compute it once at startup.
func DummyHash() string {
	h, err := argon2id.CreateHash("dummy-password-for-timing-only", argon2id.DefaultParams)
	if err != nil {
		return ""
	}
	return h
}
