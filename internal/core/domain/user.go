package domain

import (
	"strings"
	"time"
)

// Role is the access level granted to an account.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleStaff    Role = "STAFF"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// User models an account that can sign in to the clinic API.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	DisplayName  string `json:"displayName"`
	Role         Role   `json:"role"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`

	// PasswordResetToken holds the digest of the outstanding reset token, never the raw value.
	PasswordResetToken   string     `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Sanitized returns a copy of u safe to hand to callers outside the core:
// the password digest and any reset-token state are blanked.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	clone.PasswordResetToken = ""
	clone.PasswordResetExpires = nil
	return &clone
}

// NormalizeEmail lower-cases and trims an address so lookups and uniqueness
// checks are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
