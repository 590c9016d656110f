package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog"

	"github.com/beautyclinic/clinic-api/internal/core/domain"
	"github.com/beautyclinic/clinic-api/internal/core/ports"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100

	// DefaultPhoneRegion is used to interpret phone numbers written without a country code.
	DefaultPhoneRegion = "ID"

	invalidPhoneMessage = "Phone number is not valid."
)

// UserService implements account management for staff and administrators.
type UserService struct {
	users       ports.UserRepository
	hasher      ports.PasswordHasher
	phoneRegion string
	log         zerolog.Logger
	now         func() time.Time
}

func NewUserService(users ports.UserRepository, hasher ports.PasswordHasher, phoneRegion string, log zerolog.Logger) *UserService {
	if phoneRegion == "" {
		phoneRegion = DefaultPhoneRegion
	}
	return &UserService{
		users:       users,
		hasher:      hasher,
		phoneRegion: strings.ToUpper(phoneRegion),
		log:         log,
		now:         time.Now,
	}
}

func (s *UserService) CreateUser(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleCustomer
	}

	var problems []string
	if strings.TrimSpace(in.Username) == "" {
		problems = append(problems, "Username is required.")
	}
	if domain.NormalizeEmail(in.Email) == "" {
		problems = append(problems, "Email is required.")
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		problems = append(problems, "Display name is required.")
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		problems = append(problems, fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLength))
	}
	if !role.Valid() {
		problems = append(problems, "Invalid role.")
	}
	phone, ok := normalizePhone(in.PhoneNumber, s.phoneRegion)
	if !ok {
		problems = append(problems, invalidPhoneMessage)
	}
	if len(problems) > 0 {
		return nil, domain.NewValidationError(problems...)
	}

	username := strings.TrimSpace(in.Username)
	email := domain.NormalizeEmail(in.Email)
	if err := s.ensureUsernameFree(ctx, username, 0); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Role:         role,
		PhoneNumber:  phone,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", created.ID).Str("role", string(created.Role)).Msg("user created")
	return created.Sanitized(), nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

func (s *UserService) ListUsers(ctx context.Context, in ports.ListUsersInput) (*ports.ListUsersResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if in.Role != "" && !in.Role.Valid() {
		return nil, domain.NewValidationError("Invalid role.")
	}

	users, total, err := s.users.List(ctx, ports.UserFilter{
		Role:  in.Role,
		Skip:  int64((page - 1) * limit),
		Limit: int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	out := make([]*domain.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Sanitized())
	}

	return &ports.ListUsersResult{
		Users:      out,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id int64, in ports.UpdateUserInput) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return nil, domain.NewValidationError("Username cannot be empty.")
		}
		if username != user.Username {
			if err := s.ensureUsernameFree(ctx, username, user.ID); err != nil {
				return nil, err
			}
			user.Username = username
		}
	}
	if in.Email != nil {
		email := domain.NormalizeEmail(*in.Email)
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" {
			return nil, domain.NewValidationError("Display name cannot be empty.")
		}
		user.DisplayName = name
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, domain.NewValidationError("Invalid role.")
		}
		user.Role = *in.Role
	}
	if in.PhoneNumber != nil {
		phone, ok := normalizePhone(*in.PhoneNumber, s.phoneRegion)
		if !ok {
			return nil, domain.NewValidationError(invalidPhoneMessage)
		}
		user.PhoneNumber = phone
	}
	if in.Password != nil {
		if utf8.RuneCountInString(*in.Password) < MinPasswordLength {
			return nil, domain.NewValidationError(fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLength))
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", user.ID).Msg("user updated")
	return user.Sanitized(), nil
}

func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

func (s *UserService) ensureUsernameFree(ctx context.Context, username string, self int64) error {
	existing, err := s.users.FindByUsername(ctx, username)
	switch {
	case err == nil && existing.ID != self:
		return domain.ErrUsernameTaken
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return fmt.Errorf("check username: %w", err)
	}
	return nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string, self int64) error {
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != self:
		return domain.ErrEmailInUse
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return fmt.Errorf("check email: %w", err)
	}
	return nil
}

// normalizePhone returns raw in E.164 form. A blank number is valid and stays blank.
func normalizePhone(raw, region string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", true
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	return phonenumbers.Format(num, phonenumbers.E164), true
}
