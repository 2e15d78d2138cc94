package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/alerts"
	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
	"github.com/fixhub-app/fixhub/internal/workflow"
)

type userRow struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Roles        []string  `json:"roles"`
	Status       string    `json:"status"`
	StatusReason string    `json:"status_reason,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListUsers returns every account, newest first, optionally filtered by
// status.
func ListUsers(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT id::text, name, email, roles, status, COALESCE(status_reason, ''), created_at
        FROM users
        WHERE ($1 = '' OR status = $1)
        ORDER BY created_at DESC`, c.QueryParam("status"))
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to list users"))
	}
	defer rows.Close()

	out := []userRow{}
	for rows.Next() {
		var u userRow
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Roles, &u.Status, &u.StatusReason, &u.CreatedAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan user"))
		}
		out = append(out, u)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out})
}

// moderateUser runs one transition on a user account.
func moderateUser(c echo.Context, to workflow.Status, notice string) error {
	ident, err := identity.RequireRole(c, identity.RoleAdmin)
	if err != nil {
		return apperr.Respond(c, err)
	}

	userID := c.Param("id")
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.Bind(&req)

	ctx := context.Background()
	var status string
	err = db.Conn.QueryRow(ctx,
		`SELECT status FROM users WHERE id = $1`, userID).Scan(&status)
	if err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeNotFound, "user not found"))
	}

	from := workflow.Status(status)
	if err := workflow.Users.Check(from, to, ident.Roles, req.Reason); err != nil {
		return apperr.Respond(c, err)
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to start transaction"))
	}
	defer tx.Rollback(ctx)

	if err := workflow.Users.Apply(ctx, tx, userID, from, to); err != nil {
		return apperr.Respond(c, err)
	}
	// reinstating clears the recorded reason
	_, err = tx.Exec(ctx,
		`UPDATE users SET status_reason = NULLIF($1, '') WHERE id = $2`, req.Reason, userID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to record reason"))
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to commit"))
	}

	if notice != "" {
		body := notice
		if req.Reason != "" {
			body += " Reason: " + req.Reason
		}
		_ = alerts.CreateNotification(userID, "account:"+string(to), "Account update", body, nil)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": string(to)})
}

// SuspendUser freezes an ACTIVE account. Suspended users fail every
// role-guarded route until reinstated.
func SuspendUser(c echo.Context) error {
	return moderateUser(c, workflow.UserSuspended, "Your account was suspended.")
}

// ActivateUser reinstates a suspended or rejected account.
func ActivateUser(c echo.Context) error {
	return moderateUser(c, workflow.UserActive, "Your account is active again.")
}

// RejectUser permanently declines an account, pending or active.
func RejectUser(c echo.Context) error {
	return moderateUser(c, workflow.UserRejected, "Your account was declined.")
}
