package badge

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
	"github.com/fixhub-app/fixhub/internal/workflow"
)

// Request is a fixer's application for a verification badge. It needs a
// paid verification fee before an admin will look at it, and can loop
// through MORE_INFO_NEEDED back to review.
type Request struct {
	ID              string    `json:"id"`
	FixerID         string    `json:"fixer_id"`
	BadgeType       string    `json:"badge_type"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"payment_status"`
	AdminNotes      string    `json:"admin_notes,omitempty"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func load(ctx context.Context, id string) (*Request, error) {
	var b Request
	var notes, reason *string
	err := db.Conn.QueryRow(ctx, `
        SELECT id::text, fixer_id::text, badge_type, status, payment_status,
               admin_notes, rejection_reason, created_at
        FROM badge_requests WHERE id = $1`, id,
	).Scan(&b.ID, &b.FixerID, &b.BadgeType, &b.Status, &b.PaymentStatus,
		&notes, &reason, &b.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.CodeNotFound, "badge request not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load badge request")
	}
	if notes != nil {
		b.AdminNotes = *notes
	}
	if reason != nil {
		b.RejectionReason = *reason
	}
	return &b, nil
}

// Create opens a badge request. A fixer can hold at most one open request
// per badge type.
func Create(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleFixer)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req struct {
		BadgeType string `json:"badge_type"`
	}
	if err := c.Bind(&req); err != nil || req.BadgeType == "" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "badge_type is required"))
	}

	ctx := context.Background()
	var open int
	err = db.Conn.QueryRow(ctx, `
        SELECT COUNT(*) FROM badge_requests
        WHERE fixer_id = $1 AND badge_type = $2
          AND status NOT IN ('APPROVED','REJECTED')`,
		ident.UserID, req.BadgeType).Scan(&open)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to check open requests"))
	}
	if open > 0 {
		return apperr.Respond(c, apperr.New(apperr.CodeConflict, "you already have an open request for this badge"))
	}

	var id string
	err = db.Conn.QueryRow(ctx, `
        INSERT INTO badge_requests (fixer_id, badge_type) VALUES ($1, $2)
        RETURNING id::text`, ident.UserID, req.BadgeType).Scan(&id)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create badge request"))
	}

	return c.JSON(http.StatusCreated, echo.Map{"id": id, "status": "PENDING"})
}

// Resubmit sends a MORE_INFO_NEEDED request back into review. The payment
// already on file carries over.
func Resubmit(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	b, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	if b.FixerID != ident.UserID {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, "not your badge request"))
	}

	from := workflow.Status(b.Status)
	if err := workflow.Badges.Check(from, workflow.BadgePending, ident.Roles, ""); err != nil {
		return apperr.Respond(c, err)
	}
	if err := workflow.Badges.Apply(ctx, db.Conn, b.ID, from, workflow.BadgePending); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "PENDING"})
}

// Mine lists the caller's badge requests.
func Mine(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT id::text, fixer_id::text, badge_type, status, payment_status,
               COALESCE(admin_notes, ''), COALESCE(rejection_reason, ''), created_at
        FROM badge_requests WHERE fixer_id = $1 ORDER BY created_at DESC`, ident.UserID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to list badge requests"))
	}
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		var b Request
		if err := rows.Scan(&b.ID, &b.FixerID, &b.BadgeType, &b.Status, &b.PaymentStatus,
			&b.AdminNotes, &b.RejectionReason, &b.CreatedAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan badge request"))
		}
		out = append(out, b)
	}
	return c.JSON(http.StatusOK, echo.Map{"badge_requests": out})
}
