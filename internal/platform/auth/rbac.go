// Package auth provides role gating for the front-desk API. Authentication
// itself happens upstream (API gateway); this layer only enforces the role
// the gateway asserts.
package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RoleHeader carries the gateway-asserted staff role.
const RoleHeader = "X-Staff-Role"

// RequireRole rejects requests whose asserted role is not in the allow list.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := c.Request().Header.Get(RoleHeader)
			if role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing staff role")
			}
			if !allowed[role] {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			c.Set("staff_role", role)
			return next(c)
		}
	}
}
