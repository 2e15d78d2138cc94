package identity

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
)

// Identity is the resolved caller of a request: who they are, what roles they
// hold, and their account status. It is produced once per request by the JWT
// middleware and passed through the echo context; there is no process-global
// session state.
type Identity struct {
	UserID string
	Email  string
	Roles  RoleSet
	Status string
}

const contextKey = "identity"

// Resolve loads the identity for a user id from the users table.
func Resolve(ctx context.Context, userID string) (Identity, error) {
	var ident Identity
	var roles []string
	err := db.Conn.QueryRow(ctx,
		`SELECT id::text, email, roles, status FROM users WHERE id = $1`, userID,
	).Scan(&ident.UserID, &ident.Email, &roles, &ident.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Identity{}, apperr.New(apperr.CodeUnauthenticated, "unknown user")
		}
		return Identity{}, apperr.Wrap(err, apperr.CodeUnexpected, "failed to resolve user")
	}
	ident.Roles = NewRoleSet(roles...)
	return ident, nil
}

// From returns the identity stored on the request context.
func From(c echo.Context) (Identity, bool) {
	ident, ok := c.Get(contextKey).(Identity)
	return ident, ok
}

// set stores the identity on the request context.
func set(c echo.Context, ident Identity) {
	c.Set(contextKey, ident)
}

// Require returns the identity or an Unauthenticated error.
func Require(c echo.Context) (Identity, error) {
	ident, ok := From(c)
	if !ok || ident.UserID == "" {
		return Identity{}, apperr.New(apperr.CodeUnauthenticated, "unauthenticated")
	}
	return ident, nil
}

// RequireRole returns the identity if it holds any of the roles and its
// account is active. Suspended and rejected accounts can read but never
// mutate.
func RequireRole(c echo.Context, roles ...Role) (Identity, error) {
	ident, err := Require(c)
	if err != nil {
		return Identity{}, err
	}
	if !ident.Roles.HasAny(roles...) {
		return Identity{}, apperr.Newf(apperr.CodeForbidden, "%s role required", roles[0])
	}
	if ident.Status != "ACTIVE" {
		return Identity{}, apperr.New(apperr.CodeForbidden, "account is not active")
	}
	return ident, nil
}
