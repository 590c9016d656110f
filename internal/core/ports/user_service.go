package ports

import (
	"context"

	"github.com/beautyclinic/clinic-api/internal/core/domain"
)

// CreateUserInput carries the fields required to open an account.
type CreateUserInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	Role        domain.Role
	PhoneNumber string
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	Username    *string
	Email       *string
	Password    *string
	DisplayName *string
	Role        *domain.Role
	PhoneNumber *string
}

// ListUsersInput selects one page of users. Zero values fall back to defaults.
type ListUsersInput struct {
	Page  int
	Limit int
	Role  domain.Role
}

type ListUsersResult struct {
	Users      []*domain.User
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// UserService manages user accounts on behalf of staff and administrators.
type UserService interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	ListUsers(ctx context.Context, in ListUsersInput) (*ListUsersResult, error)
	UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id int64) error
}
