// Package token issues and verifies single-use account tokens (password
// reset, email verification). Only the SHA-256 hash of a token is ever
// stored; the raw value goes out in the email link and nowhere else.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// ResetTTL bounds how long a password reset link stays valid.
	ResetTTL = 10 * time.Minute

	// VerificationTTL bounds how long an email verification link stays valid.
	VerificationTTL = 24 * time.Hour

	rawBytes = 32
)

// Token carries a freshly issued raw token together with its stored form.
type Token struct {
	Raw       string
	Hash      string
	ExpiresAt time.Time
}

// Issue generates a new random token expiring after ttl.
func Issue(ttl time.Duration) (Token, error) {
	buf := make([]byte, rawBytes)
	if _, err := rand.Read(buf); err != nil {
		return Token{}, fmt.Errorf("generating token: %w", err)
	}
	raw := hex.EncodeToString(buf)
	return Token{
		Raw:       raw,
		Hash:      Hash(raw),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// Hash returns the hex-encoded SHA-256 digest of a raw token, the form
// persisted alongside the user record.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Matches compares a raw token against a stored hash in constant time and
// checks that the token has not expired.
func Matches(raw, storedHash string, expiresAt *time.Time, now time.Time) bool {
	if storedHash == "" || expiresAt == nil || !now.Before(*expiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(Hash(raw)), []byte(storedHash)) == 1
}
