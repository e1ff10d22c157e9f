package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashHex returns the SHA-256 hex digest of a token string. Session records
// store this digest, never the raw token.
func HashHex(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SecureCompare compares two strings in constant time so length and prefix
// information is not leaked via timing.
func SecureCompare(s1, s2 string) bool {
	return subtle.ConstantTimeCompare([]byte(s1), []byte(s2)) == 1
}
