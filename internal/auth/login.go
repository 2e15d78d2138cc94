package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates with email+password and issues a 7-day session token.
func Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "email and password are required"))
	}

	var userID, status string
	var passwordHash *string
	err := db.Conn.QueryRow(context.Background(),
		`SELECT id::text, status, password_hash FROM users WHERE email = $1`, req.Email,
	).Scan(&userID, &status, &passwordHash)
	if err == pgx.ErrNoRows {
		return apperr.Respond(c, apperr.New(apperr.CodeUnauthenticated, "invalid credentials"))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load user"))
	}
	if passwordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*passwordHash), []byte(req.Password)) != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeUnauthenticated, "invalid credentials"))
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
