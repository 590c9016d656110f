package ports

import (
	"context"

	"github.com/beautyclinic/clinic-api/internal/core/domain"
)

// SignInResult is returned by a successful sign-in.
type SignInResult struct {
	Token string
	User  *domain.User
}

// AuthService covers credential sign-in, the password-reset lifecycle and
// email changes. Users returned from it are always sanitized.
type AuthService interface {
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyResetToken(ctx context.Context, token string) (*domain.User, error)
	ResetPassword(ctx context.Context, token, newPassword string) (*domain.User, error)
	ChangeEmail(ctx context.Context, userID int64, newEmail string) (*domain.User, error)
}
