package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/beautyclinic/clinic-api/internal/core/domain"
)

// ContextKeyUser is where Protect stores the authenticated *domain.User.
const ContextKeyUser = "user"

// CurrentUser returns the user attached by Protect, or nil.
func CurrentUser(c echo.Context) *domain.User {
	u, _ := c.Get(ContextKeyUser).(*domain.User)
	return u
}

// requireUser is the fast-fail guard for handlers mounted behind Protect.
func requireUser(c echo.Context) (*domain.User, error) {
	u := CurrentUser(c)
	if u == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Not authorized, no token provided.")
	}
	return u, nil
}
