package badge

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/alerts"
	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
	"github.com/fixhub-app/fixhub/internal/workflow"
)

// ListOpen returns badge requests an admin can act on.
func ListOpen(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT b.id::text, b.fixer_id::text, u.email, b.badge_type, b.status,
               b.payment_status, b.created_at
        FROM badge_requests b JOIN users u ON u.id = b.fixer_id
        WHERE b.status IN ('PENDING','PAYMENT_RECEIVED','MORE_INFO_NEEDED')
        ORDER BY b.created_at ASC`)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to list badge requests"))
	}
	defer rows.Close()

	out := []echo.Map{}
	for rows.Next() {
		var b Request
		var email string
		if err := rows.Scan(&b.ID, &b.FixerID, &email, &b.BadgeType, &b.Status,
			&b.PaymentStatus, &b.CreatedAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan badge request"))
		}
		out = append(out, echo.Map{
			"id":             b.ID,
			"fixer_id":       b.FixerID,
			"fixer_email":    email,
			"badge_type":     b.BadgeType,
			"status":         b.Status,
			"payment_status": b.PaymentStatus,
			"created_at":     b.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"badge_requests": out})
}

// ConfirmPayment moves a PENDING request to PAYMENT_RECEIVED after an admin
// has matched the verification fee against the payment records. Applicants
// cannot confirm their own payment.
func ConfirmPayment(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleAdmin)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	b, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}

	from := workflow.Status(b.Status)
	if err := workflow.Badges.Check(from, workflow.BadgePaymentReceived, ident.Roles, ""); err != nil {
		return apperr.Respond(c, err)
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to start transaction"))
	}
	defer tx.Rollback(ctx)

	if err := workflow.Badges.Apply(ctx, tx, b.ID, from, workflow.BadgePaymentReceived); err != nil {
		return apperr.Respond(c, err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE badge_requests SET payment_status = 'PAID' WHERE id = $1`, b.ID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to record payment"))
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to commit"))
	}

	return c.JSON(http.StatusOK, echo.Map{"status": "PAYMENT_RECEIVED"})
}

// decide moves a badge request to an admin-chosen status and records the
// reason in the right column for that status.
func decide(c echo.Context, to workflow.Status, decision string) error {
	ident, err := identity.RequireRole(c, identity.RoleAdmin)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}

	ctx := context.Background()
	b, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}

	from := workflow.Status(b.Status)
	if err := workflow.Badges.Check(from, to, ident.Roles, req.Reason); err != nil {
		return apperr.Respond(c, err)
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to start transaction"))
	}
	defer tx.Rollback(ctx)

	if err := workflow.Badges.Apply(ctx, tx, b.ID, from, to); err != nil {
		return apperr.Respond(c, err)
	}
	switch to {
	case workflow.BadgeRejected:
		_, err = tx.Exec(ctx,
			`UPDATE badge_requests SET rejection_reason = $1 WHERE id = $2`, req.Reason, b.ID)
	case workflow.BadgeMoreInfoNeeded:
		_, err = tx.Exec(ctx,
			`UPDATE badge_requests SET admin_notes = $1 WHERE id = $2`, req.Reason, b.ID)
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to record reason"))
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to commit"))
	}

	var email string
	if err := db.Conn.QueryRow(ctx,
		`SELECT email FROM users WHERE id = $1`, b.FixerID).Scan(&email); err == nil {
		_ = alerts.EnqueueBadgeDecision(b.ID, b.FixerID, email, decision, req.Reason)
	}
	body := "Your " + b.BadgeType + " badge request was " + decision
	if req.Reason != "" {
		body += ": " + req.Reason
	}
	_ = alerts.CreateNotification(b.FixerID, "badge:"+decision, "Badge review decision", body, &b.ID)

	return c.JSON(http.StatusOK, echo.Map{"status": string(to)})
}

// Approve grants the badge.
func Approve(c echo.Context) error {
	return decide(c, workflow.BadgeApproved, "APPROVED")
}

// Reject declines the badge request with a reason.
func Reject(c echo.Context) error {
	return decide(c, workflow.BadgeRejected, "REJECTED")
}

// RequestInfo asks the fixer for more documentation.
func RequestInfo(c echo.Context) error {
	return decide(c, workflow.BadgeMoreInfoNeeded, "MORE_INFO_NEEDED")
}
