package ports

import (
	"context"
	"time"

	"github.com/beautyclinic/clinic-api/internal/core/domain"
)

// UserFilter narrows and pages a user listing.
type UserFilter struct {
	Role  domain.Role
	Skip  int64
	Limit int64
}

// UserRepository defines the persistence contract for user accounts.
// Lookups that find nothing return domain.ErrUserNotFound.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindByResetToken returns the user whose stored reset digest equals
	// digest and whose token is still live at now.
	FindByResetToken(ctx context.Context, digest string, now time.Time) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]*domain.User, int64, error)
	Update(ctx context.Context, user *domain.User) error
	// ConsumeResetToken atomically replaces the password digest and clears the
	// reset fields, but only while the stored reset digest still equals digest
	// and has not expired. It returns domain.ErrInvalidResetToken otherwise.
	ConsumeResetToken(ctx context.Context, id int64, digest, passwordHash string, now time.Time) error
	Delete(ctx context.Context, id int64) error
}
