package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired access token")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrDeliveryFailed     = errors.New("reset email delivery failed")

	ErrUserNotFound   = errors.New("user not found")
	ErrEmailUnchanged = errors.New("new email is the same as the current email")
	ErrEmailInUse     = errors.New("email already in use")
	ErrUsernameTaken  = errors.New("username already exists")
)

// ValidationError reports input that failed validation. Each entry in Errors
// is a human-readable message about one field.
type ValidationError struct {
	Errors []string
}

func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: msgs}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, ", ")
}
