package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// RandomHex returns n cryptographically random bytes hex-encoded
// (2n characters).
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewJTI generates a fresh access token identifier: 32 random bytes, hex.
func NewJTI() (string, error) {
	return RandomHex(32)
}

// NewRefreshToken generates an opaque refresh token value: 64 random bytes,
// hex. Only its hash is ever persisted.
func NewRefreshToken() (string, error) {
	return RandomHex(64)
}

// HashToken returns the SHA-256 hex digest used to look up refresh tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
