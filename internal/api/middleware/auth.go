package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/beautyclinic/clinic-api/internal/api/handler"
	"github.com/beautyclinic/clinic-api/internal/api/metrics"
	"github.com/beautyclinic/clinic-api/internal/core/domain"
	"github.com/beautyclinic/clinic-api/internal/core/ports"
)

const (
	msgNoToken      = "Not authorized, no token provided."
	msgTokenFailed  = "Not authorized, token failed."
	msgUserNotFound = "Not authorized, user not found."
)

// UserLoader is the slice of the user store Protect needs.
type UserLoader interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

// Protect authenticates the bearer token and attaches the sanitized account
// to the context under handler.ContextKeyUser. The account is reloaded on
// every request, so a deleted user is locked out even with a live token.
func Protect(tokens ports.TokenIssuer, users UserLoader, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				metrics.AccessDeniedTotal.WithLabelValues("no_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, msgNoToken)
			}

			userID, err := tokens.Verify(token)
			if err != nil {
				log.Debug().Err(err).Msg("token verification failed")
				metrics.AccessDeniedTotal.WithLabelValues("token_failed").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, msgTokenFailed)
			}

			user, err := users.FindByID(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					metrics.AccessDeniedTotal.WithLabelValues("user_not_found").Inc()
					return echo.NewHTTPError(http.StatusUnauthorized, msgUserNotFound)
				}
				return fmt.Errorf("load authenticated user: %w", err)
			}

			c.Set(handler.ContextKeyUser, user.Sanitized())
			return next(c)
		}
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
