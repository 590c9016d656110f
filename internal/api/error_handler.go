package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/beautyclinic/clinic-api/internal/api/handler"
	"github.com/beautyclinic/clinic-api/internal/core/domain"
)

const msgUnexpected = "An unexpected error occurred."

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps domain errors
// to status codes and renders them as handler.ErrorEnvelope. Unknown errors
// are logged and reported as a generic 500.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg, details := resolveError(err, log, c)
		body := handler.ErrorEnvelope{
			Success: false,
			Status:  statusLabel(code),
			Message: msg,
			Errors:  details,
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string, []string) {
	// Errors raised by middleware, echo's router and the binder.
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			log.Debug().Err(he.Internal).Int("status", he.Code).Msg("http error")
		}
		return he.Code, fmt.Sprintf("%v", he.Message), nil
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Error(), ve.Errors
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials.", nil
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "Not authorized, token failed.", nil
	case errors.Is(err, domain.ErrInvalidResetToken):
		return http.StatusBadRequest, "Invalid or expired token.", nil
	case errors.Is(err, domain.ErrDeliveryFailed):
		return http.StatusInternalServerError, "There was an error sending the email.", nil
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "User not found.", nil
	case errors.Is(err, domain.ErrEmailUnchanged):
		return http.StatusBadRequest, "New email is the same as the current email.", nil
	case errors.Is(err, domain.ErrEmailInUse):
		return http.StatusConflict, "This email is already in use by another account.", nil
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict, "Username already exists.", nil
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, msgUnexpected, nil
}

func statusLabel(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	}
	if code >= 500 {
		return "error"
	}
	return "fail"
}
