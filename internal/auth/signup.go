package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/fixhub-app/fixhub/internal/alerts"
	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
	"github.com/fixhub-app/fixhub/internal/workflow"
)

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Signup registers a new CLIENT-role user. The account starts PENDING and is
// activated by the first magic-link verification.
func Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "name, email and a password of at least 8 characters are required"))
	}

	ctx := context.Background()

	var exists bool
	if err := db.Conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, req.Email,
	).Scan(&exists); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to check email"))
	}
	if exists {
		return apperr.Respond(c, apperr.New(apperr.CodeConflict, "email already registered"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to hash password"))
	}

	var userID string
	err = db.Conn.QueryRow(ctx,
		`INSERT INTO users (name, email, phone, password_hash, roles, status)
         VALUES ($1, $2, $3, $4, '{CLIENT}', $5)
         RETURNING id::text`,
		req.Name, req.Email, req.Phone, string(hash), string(workflow.UserPending),
	).Scan(&userID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create user"))
	}

	// Verification link doubles as the welcome flow.
	if raw, hash, err := identity.NewMagicToken(); err == nil {
		_, _ = db.Conn.Exec(ctx,
			`INSERT INTO login_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`,
			userID, hash, time.Now().Add(identity.MagicLinkTTL))
		_ = alerts.EnqueueMagicLink(userID, req.Email, raw)
	}
	_ = alerts.EnqueueWelcomeEmail(userID, req.Email, req.Name)

	return c.JSON(http.StatusCreated, echo.Map{
		"user_id": userID,
		"message": "Account created. Check your email to verify and sign in.",
	})
}
