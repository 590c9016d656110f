package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/beautyclinic/clinic-api/internal/core/domain"
	"github.com/beautyclinic/clinic-api/internal/core/ports"
)

const (
	MinPasswordLength = 8

	resetEmailSubject = "Password Reset Token"

	// decoyPassword is hashed once and checked against on unknown emails so
	// sign-in takes the same time whether or not the account exists.
	decoyPassword = "clinic-api-decoy-password"
)

// AuthService implements sign-in, the password-reset lifecycle and email changes.
type AuthService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	tokens   ports.TokenIssuer
	notifier ports.Notifier
	throttle ports.ResetThrottle
	log      zerolog.Logger

	resetTTL time.Duration
	now      func() time.Time

	decoyOnce   sync.Once
	decoyDigest string
}

// NewAuthService wires the service. throttle may be nil, in which case every
// forgot-password request for a known account sends an email.
func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	notifier ports.Notifier,
	throttle ports.ResetThrottle,
	resetTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	if resetTTL <= 0 {
		resetTTL = domain.ResetTokenTTL
	}
	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		throttle: throttle,
		log:      log,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// SignIn exchanges an email and password for a bearer token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*ports.SignInResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Matches(password, s.decoy())
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("sign in: %w", err)
	}

	if !s.hasher.Matches(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Msg("user signed in")
	return &ports.SignInResult{Token: token, User: user.Sanitized()}, nil
}

// ForgotPassword issues a reset token for the account behind email and mails
// it. An unknown email succeeds silently so callers cannot probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.log.Debug().Msg("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("forgot password: %w", err)
	}

	// 1. Throttle repeat requests; fail open when the throttle store is down.
	// The claimed window is released again if no email goes out.
	claimed := false
	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, user.ID)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("reset throttle check failed, continuing")
		case !allowed:
			s.log.Info().Int64("user_id", user.ID).Msg("password reset throttled")
			return nil
		default:
			claimed = true
		}
	}
	sent := false
	defer func() {
		if claimed && !sent {
			s.releaseThrottle(ctx, user.ID)
		}
	}()

	// 2. Issue and persist the digest before anything leaves the process.
	raw, err := user.IssueResetToken(s.now(), s.resetTTL)
	if err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("forgot password: save reset token: %w", err)
	}

	// 3. Deliver. On failure roll the token back so no undelivered token stays live.
	msg := ports.Message{
		To:      user.Email,
		Subject: resetEmailSubject,
		Text:    "You are receiving this email because you requested a password reset. Please use the following token: " + raw,
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("reset email delivery failed")

		user.ClearResetToken()
		if uerr := s.users.Update(ctx, user); uerr != nil {
			s.log.Error().Err(uerr).Int64("user_id", user.ID).Msg("failed to clear reset token after delivery failure")
		}
		return domain.ErrDeliveryFailed
	}

	sent = true
	s.log.Info().Int64("user_id", user.ID).Msg("password reset token issued")
	return nil
}

func (s *AuthService) releaseThrottle(ctx context.Context, userID int64) {
	if err := s.throttle.Release(ctx, userID); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("failed to release reset throttle")
	}
}

// VerifyResetToken reports whether token is live without consuming it.
func (s *AuthService) VerifyResetToken(ctx context.Context, token string) (*domain.User, error) {
	user, err := s.findByResetToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// ResetPassword redeems token and sets newPassword. A token can be redeemed once.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (*domain.User, error) {
	if utf8.RuneCountInString(newPassword) < MinPasswordLength {
		return nil, domain.NewValidationError(fmt.Sprintf("New password is required and must be at least %d characters long.", MinPasswordLength))
	}

	user, err := s.findByResetToken(ctx, token)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("reset password: %w", err)
	}

	if err := s.users.ConsumeResetToken(ctx, user.ID, user.PasswordResetToken, hash, s.now()); err != nil {
		if errors.Is(err, domain.ErrInvalidResetToken) {
			return nil, domain.ErrInvalidResetToken
		}
		return nil, fmt.Errorf("reset password: %w", err)
	}

	user.PasswordHash = hash
	user.ClearResetToken()
	s.log.Info().Int64("user_id", user.ID).Msg("password reset")
	return user.Sanitized(), nil
}

// ChangeEmail moves the account userID to newEmail.
func (s *AuthService) ChangeEmail(ctx context.Context, userID int64, newEmail string) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("change email: %w", err)
	}

	newEmail = domain.NormalizeEmail(newEmail)
	if newEmail == user.Email {
		return nil, domain.ErrEmailUnchanged
	}

	existing, err := s.users.FindByEmail(ctx, newEmail)
	switch {
	case err == nil && existing.ID != user.ID:
		return nil, domain.ErrEmailInUse
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("change email: %w", err)
	}

	user.Email = newEmail
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailInUse) {
			return nil, domain.ErrEmailInUse
		}
		return nil, fmt.Errorf("change email: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Msg("email changed")
	return user.Sanitized(), nil
}

// decoy returns a digest of decoyPassword produced by the configured hasher.
// A hashing failure leaves it empty, which never matches.
func (s *AuthService) decoy() string {
	s.decoyOnce.Do(func() {
		digest, err := s.hasher.Hash(decoyPassword)
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to hash sign-in decoy")
			return
		}
		s.decoyDigest = digest
	})
	return s.decoyDigest
}

func (s *AuthService) findByResetToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrInvalidResetToken
	}

	now := s.now()
	user, err := s.users.FindByResetToken(ctx, domain.HashResetToken(token), now)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidResetToken
		}
		return nil, fmt.Errorf("find reset token: %w", err)
	}
	if !user.ResetTokenMatches(token, now) {
		return nil, domain.ErrInvalidResetToken
	}
	return user, nil
}
