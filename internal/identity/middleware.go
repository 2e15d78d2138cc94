package identity

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/apperr"
)

// Middleware authenticates the bearer token and attaches the resolved
// identity to the request context. Roles and status are re-read from the
// database each request so a suspension takes effect immediately.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization header"})
		}
		userID, err := VerifySession(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return apperr.Respond(c, err)
		}
		ident, err := Resolve(c.Request().Context(), userID)
		if err != nil {
			return apperr.Respond(c, err)
		}
		set(c, ident)
		return next(c)
	}
}

// AdminGuard restricts a route group to active admins.
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ident, ok := From(c)
		if !ok || !ident.Roles.Has(RoleAdmin) || ident.Status != "ACTIVE" {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access only"})
		}
		return next(c)
	}
}
