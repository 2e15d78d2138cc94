package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/alerts"
	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
	"github.com/fixhub-app/fixhub/internal/workflow"
)

// RequestMagicLink emails a one-time sign-in link. Always answers 200 so the
// endpoint cannot be used to probe which emails are registered.
func RequestMagicLink(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "email is required"))
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx := context.Background()
	var userID string
	err := db.Conn.QueryRow(ctx, `SELECT id::text FROM users WHERE email = $1`, email).Scan(&userID)
	if err == nil {
		raw, hash, tokenErr := identity.NewMagicToken()
		if tokenErr == nil {
			_, _ = db.Conn.Exec(ctx,
				`INSERT INTO login_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`,
				userID, hash, time.Now().Add(identity.MagicLinkTTL))
			_ = alerts.EnqueueMagicLink(userID, email, raw)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "If that email is registered, a sign-in link is on its way.",
	})
}

// VerifyMagicLink redeems a one-time token: marks it used, activates a
// PENDING account, and issues a session.
func VerifyMagicLink(c echo.Context) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "token is required"))
	}

	ctx := context.Background()
	hash := identity.HashMagicToken(req.Token)

	// Single-use: the UPDATE only matches an unused, unexpired token.
	var userID string
	err := db.Conn.QueryRow(ctx, `
        UPDATE login_tokens SET used_at = NOW()
        WHERE token_hash = $1 AND used_at IS NULL AND expires_at > NOW()
        RETURNING user_id::text`, hash,
	).Scan(&userID)
	if err == pgx.ErrNoRows {
		return apperr.Respond(c, apperr.New(apperr.CodeUnauthenticated, "link is invalid, expired or already used"))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to verify token"))
	}

	var status string
	if err := db.Conn.QueryRow(ctx, `SELECT status FROM users WHERE id = $1`, userID).Scan(&status); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load user"))
	}

	// First verification activates the account.
	if workflow.Status(status) == workflow.UserPending {
		_, err = db.Conn.Exec(ctx,
			`UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
			string(workflow.UserActive), userID, string(workflow.UserPending))
		if err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to activate user"))
		}
		status = string(workflow.UserActive)
	}

	token, err := identity.IssueSession(userID, time.Now())
	if err != nil {
		return apperr.Respond(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":   token,
		"user_id": userID,
		"status":  status,
	})
}
