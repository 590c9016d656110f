package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/beautyclinic/clinic-api/internal/api/handler"
	"github.com/beautyclinic/clinic-api/internal/api/metrics"
	"github.com/beautyclinic/clinic-api/internal/core/domain"
)

// Authorize admits only users whose role is in allowedRoles. It must run
// after Protect; without an attached user the caller is treated as "guest".
func Authorize(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := "guest"
			if u := handler.CurrentUser(c); u != nil {
				if _, ok := allowed[u.Role]; ok {
					return next(c)
				}
				role = string(u.Role)
			}

			metrics.AccessDeniedTotal.WithLabelValues("forbidden_role").Inc()
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("User role '%s' is not authorized to access this route.", role))
		}
	}
}
