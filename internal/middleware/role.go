package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lecturer-claims/internal/model"
)

// RequireRole returns a middleware that rejects any request whose
// authenticated role is not in the allowed set. Route groups use it
// so that, for example, only a coordinator ever reaches the verify
// handler; the lifecycle engine re-checks role against its transition
// table anyway, so a misconfigured route cannot move a claim.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[string(r)] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v := c.Get("role")
			role, ok := v.(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
