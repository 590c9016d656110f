package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// ResetTokenTTL is how long an issued reset token stays redeemable.
	ResetTokenTTL = 10 * time.Minute

	resetTokenBytes = 20
)

// HashResetToken returns the digest stored in place of a raw reset token.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IssueResetToken generates a fresh reset token, records its digest and
// expiry on u and returns the raw value for delivery. Any previous token is
// overwritten. Persisting u is the caller's job.
func (u *User) IssueResetToken(now time.Time, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = ResetTokenTTL
	}

	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	raw := hex.EncodeToString(buf)

	expires := now.Add(ttl).UTC()
	u.PasswordResetToken = HashResetToken(raw)
	u.PasswordResetExpires = &expires
	return raw, nil
}

// ResetTokenMatches reports whether raw is the live reset token of u at now.
func (u *User) ResetTokenMatches(raw string, now time.Time) bool {
	if u.PasswordResetToken == "" || u.PasswordResetExpires == nil {
		return false
	}
	if !u.PasswordResetExpires.After(now) {
		return false
	}
	digest := HashResetToken(raw)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(u.PasswordResetToken)) == 1
}

// HasResetToken reports whether u carries any reset-token state.
func (u *User) HasResetToken() bool {
	return u.PasswordResetToken != "" || u.PasswordResetExpires != nil
}

// ClearResetToken drops any outstanding reset token from u.
func (u *User) ClearResetToken() {
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
}
