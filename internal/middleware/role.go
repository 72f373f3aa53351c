package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

// RequireRole admits callers whose token role is one of roles.  It must run
// after JWTAuth, which stores the role under "role".
func RequireRole(roles ...string) echo.MiddlewareFunc {
	if len(roles) == 0 {
		panic("RequireRole needs at least one role")
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if !slices.Contains(roles, role) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
