package gig

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

// ListPendingReview returns gigs waiting on an admin decision, including
// ACTIVE gigs flagged with pending edits.
func ListPendingReview(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	rows, err := db.Conn.Query(ctx, `
        SELECT g.id::text, g.fixer_id::text, u.email, g.title, g.category_id,
               g.status, g.pending_changes, g.created_at
        FROM gigs g JOIN users u ON u.id = g.fixer_id
        WHERE g.status = 'PENDING_REVIEW' OR g.pending_changes
        ORDER BY g.created_at ASC`)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to list gigs"))
	}
	defer rows.Close()

	out := []echo.Map{}
	for rows.Next() {
		var g Gig
		var email string
		if err := rows.Scan(&g.ID, &g.FixerID, &email, &g.Title, &g.CategoryID,
			&g.Status, &g.PendingChanges, &g.CreatedAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan gig"))
		}
		out = append(out, echo.Map{
			"id":              g.ID,
			"fixer_id":        g.FixerID,
			"fixer_email":     email,
			"title":           g.Title,
			"category_id":     g.CategoryID,
			"status":          g.Status,
			"pending_changes": g.PendingChanges,
			"created_at":      g.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"gigs": out})
}

// Approve activates a reviewed gig, or clears the pending-changes flag on a
// live gig whose edit passed re-review.
func Approve(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleAdmin)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	g, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}

	from := workflow.Status(g.Status)
	if from == workflow.GigActive && g.PendingChanges {
		_, err = db.Conn.Exec(ctx,
			`UPDATE gigs SET pending_changes = FALSE, updated_at = NOW() WHERE id = $1`, g.ID)
		if err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to clear review flag"))
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "changes approved"})
	}

	if err := workflow.Gigs.Check(from, workflow.GigActive, ident.Roles, ""); err != nil {
		return apperr.Respond(c, err)
	}
	if err := workflow.Gigs.Apply(ctx, db.Conn, g.ID, from, workflow.GigActive); err != nil {
		return apperr.Respond(c, err)
	}

	notifyDecision(g, "APPROVED", "")
	return c.JSON(http.StatusOK, echo.Map{"message": "gig approved"})
}

// Reject sends a gig back to DRAFT with a reason. On an ACTIVE gig this only
// rejects the pending edit; the live listing is untouched.
func Reject(c echo.Context) error {
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
	g, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}

	from := workflow.Status(g.Status)
	if from == workflow.GigActive && g.PendingChanges {
		if req.Reason == "" {
			return apperr.Respond(c, apperr.New(apperr.CodeValidation, "a reason is required"))
		}
		_, err = db.Conn.Exec(ctx, `
            UPDATE gigs SET pending_changes = FALSE, rejection_reason = $1, updated_at = NOW()
            WHERE id = $2`, req.Reason, g.ID)
		if err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to reject changes"))
		}
		notifyDecision(g, "CHANGES_REJECTED", req.Reason)
		return c.JSON(http.StatusOK, echo.Map{"message": "changes rejected"})
	}

	if err := workflow.Gigs.Check(from, workflow.GigDraft, ident.Roles, req.Reason); err != nil {
		return apperr.Respond(c, err)
	}
	if err := workflow.Gigs.Apply(ctx, db.Conn, g.ID, from, workflow.GigDraft); err != nil {
		return apperr.Respond(c, err)
	}
	_, err = db.Conn.Exec(ctx,
		`UPDATE gigs SET rejection_reason = $1 WHERE id = $2`, req.Reason, g.ID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to record reason"))
	}

	notifyDecision(g, "REJECTED", req.Reason)
	return c.JSON(http.StatusOK, echo.Map{"message": "gig rejected"})
}

func notifyDecision(g *Gig, decision, reason string) {
	var email string
	err := db.Conn.QueryRow(context.Background(),
		`SELECT email FROM users WHERE id = $1`, g.FixerID).Scan(&email)
	if err == nil {
		_ = alerts.EnqueueGigDecision(g.ID, g.FixerID, email, decision, reason)
	}
	body := "Your gig \"" + g.Title + "\" was " + decision
	if reason != "" {
		body += ": " + reason
	}
	_ = alerts.CreateNotification(g.FixerID, "gig:"+decision, "Gig review decision", body, &g.ID)
}
