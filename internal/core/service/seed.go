package service

import (
	"context"
	"errors"

	"github.com/beautyclinic/clinic-api/internal/core/domain"
	"github.com/beautyclinic/clinic-api/internal/core/ports"
)

// SeedPasswords holds the initial passwords of the bootstrap accounts.
type SeedPasswords struct {
	Admin    string
	Staff    string
	Customer string
}

// DefaultSeedUsers returns the bootstrap admin, staff and customer accounts.
func DefaultSeedUsers(pw SeedPasswords) []ports.CreateUserInput {
	return []ports.CreateUserInput{
		{Username: "adminuser", Email: "admin@example.com", Password: pw.Admin, DisplayName: "Admin User", Role: domain.RoleAdmin, PhoneNumber: "081234567890"},
		{Username: "staffuser", Email: "staff@example.com", Password: pw.Staff, DisplayName: "Staff User", Role: domain.RoleStaff, PhoneNumber: "081234567891"},
		{Username: "customeruser", Email: "customer@example.com", Password: pw.Customer, DisplayName: "Customer User", Role: domain.RoleCustomer, PhoneNumber: "081234567892"},
	}
}

// Seed creates each account in seeds that does not exist yet and returns how
// many were created. Accounts whose username or email is taken are skipped.
func (s *UserService) Seed(ctx context.Context, seeds []ports.CreateUserInput) (int, error) {
	created := 0
	for _, in := range seeds {
		_, err := s.CreateUser(ctx, in)
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrUsernameTaken), errors.Is(err, domain.ErrEmailInUse):
			s.log.Debug().Str("username", in.Username).Msg("seed user already present")
		default:
			return created, err
		}
	}
	return created, nil
}
