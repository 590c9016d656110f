package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/beautyclinic/clinic-api/internal/api/metrics"
	"github.com/beautyclinic/clinic-api/internal/core/domain"
	"github.com/beautyclinic/clinic-api/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email" message:"Please provide a valid email address." example:"admin@example.com"`
	Password string `json:"password" validate:"required" message:"Password cannot be empty." example:"adminpassword"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email" message:"Please provide a valid email address." example:"customer@example.com"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"min=8" message:"New password is required and must be at least 8 characters long." example:"n3w-passw0rd"`
}

type changeEmailRequest struct {
	NewEmail string `json:"newEmail" validate:"required,email" message:"Please provide a valid new email address." example:"new.address@example.com"`
}

type signInResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// SignIn exchanges credentials for a bearer token.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  Envelope{data=signInResponse}
// @Failure      400   {object}  ErrorEnvelope
// @Failure      401   {object}  ErrorEnvelope
// @Failure      429   {object}  ErrorEnvelope
// @Router       /api/v1/auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.SignInsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			metrics.SignInsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.SignInsTotal.WithLabelValues("success").Inc()
	return sendSuccess(c, http.StatusOK, "Signed in successfully.", signInResponse{Token: res.Token, User: res.User})
}

// ForgotPassword emails a reset token. The response is the same whether or
// not the address belongs to an account.
//
// @Summary      Request a password reset token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  Envelope
// @Failure      400   {object}  ErrorEnvelope
// @Failure      429   {object}  ErrorEnvelope
// @Failure      500   {object}  ErrorEnvelope
// @Router       /api/v1/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authService.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		if errors.Is(err, domain.ErrDeliveryFailed) {
			metrics.ResetRequestsTotal.WithLabelValues("delivery_failed").Inc()
		} else {
			metrics.ResetRequestsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.ResetRequestsTotal.WithLabelValues("accepted").Inc()
	return sendSuccess(c, http.StatusOK, "Password reset email sent. Check your inbox.", nil)
}

// VerifyResetToken checks a reset token without consuming it.
//
// @Summary      Verify a password reset token
// @Tags         auth
// @Produce      json
// @Param        token  path      string  true  "Raw reset token"
// @Success      200    {object}  Envelope{data=domain.User}
// @Failure      400    {object}  ErrorEnvelope
// @Router       /api/v1/auth/verify-reset-token/{token} [get]
func (h *AuthHandler) VerifyResetToken(c echo.Context) error {
	user, err := h.authService.VerifyResetToken(c.Request().Context(), c.Param("token"))
	if err != nil {
		return err
	}
	return sendSuccess(c, http.StatusOK, "Token is valid.", user)
}

// ResetPassword redeems a reset token and sets a new password.
//
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token  path      string                true  "Raw reset token"
// @Param        body   body      resetPasswordRequest  true  "New password"
// @Success      200    {object}  Envelope{data=domain.User}
// @Failure      400    {object}  ErrorEnvelope
// @Router       /api/v1/auth/reset-password/{token} [put]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.ResetsTotal.WithLabelValues("invalid_password").Inc()
		return err
	}

	user, err := h.authService.ResetPassword(c.Request().Context(), c.Param("token"), req.NewPassword)
	if err != nil {
		var ve *domain.ValidationError
		switch {
		case errors.Is(err, domain.ErrInvalidResetToken):
			metrics.ResetsTotal.WithLabelValues("invalid_token").Inc()
		case errors.As(err, &ve):
			metrics.ResetsTotal.WithLabelValues("invalid_password").Inc()
		default:
			metrics.ResetsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.ResetsTotal.WithLabelValues("success").Inc()
	return sendSuccess(c, http.StatusOK, "Password has been reset successfully.", user)
}

// ChangeEmail moves the signed-in account to a new email address.
//
// @Summary      Change email address
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changeEmailRequest  true  "New email"
// @Success      200   {object}  Envelope{data=domain.User}
// @Failure      400   {object}  ErrorEnvelope
// @Failure      401   {object}  ErrorEnvelope
// @Failure      404   {object}  ErrorEnvelope
// @Failure      409   {object}  ErrorEnvelope
// @Router       /api/v1/auth/change-email [put]
func (h *AuthHandler) ChangeEmail(c echo.Context) error {
	current, err := requireUser(c)
	if err != nil {
		return err
	}

	var req changeEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.ChangeEmail(c.Request().Context(), current.ID, req.NewEmail)
	if err != nil {
		return err
	}
	return sendSuccess(c, http.StatusOK, "Email address updated successfully.", user)
}

// bindAndValidate decodes the request body into req and runs the registered validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload.").SetInternal(err)
	}
	return c.Validate(req)
}
