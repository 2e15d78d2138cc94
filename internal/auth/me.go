package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/identity"
)

// Me returns the resolved identity of the caller.
func Me(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": ident.UserID,
		"email":   ident.Email,
		"roles":   ident.Roles.Strings(),
		"status":  ident.Status,
	})
}
