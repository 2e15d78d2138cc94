package fixer

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/alerts"
	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
)

// ListPendingProfiles returns profiles awaiting first review or re-review.
func ListPendingProfiles(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	rows, err := db.Conn.Query(ctx, `
        SELECT fp.id::text, fp.user_id::text, u.email, fp.display_name,
               fp.category_ids, fp.pending_changes, fp.created_at
        FROM fixer_profiles fp
        JOIN users u ON u.id = fp.user_id
        WHERE fp.approved_at IS NULL OR fp.pending_changes
        ORDER BY fp.created_at ASC`)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to list profiles"))
	}
	defer rows.Close()

	out := []echo.Map{}
	for rows.Next() {
		var p Profile
		var email string
		if err := rows.Scan(&p.ID, &p.UserID, &email, &p.DisplayName,
			&p.CategoryIDs, &p.PendingChanges, &p.CreatedAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan profile"))
		}
		out = append(out, echo.Map{
			"id":              p.ID,
			"user_id":         p.UserID,
			"email":           email,
			"display_name":    p.DisplayName,
			"category_ids":    p.CategoryIDs,
			"pending_changes": p.PendingChanges,
			"created_at":      p.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"profiles": out})
}

// ApproveProfile marks the profile approved and grants the FIXER role.
func ApproveProfile(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	profileID := c.Param("id")
	ctx := context.Background()

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to start transaction"))
	}
	defer tx.Rollback(ctx)

	var userID string
	err = tx.QueryRow(ctx, `
        UPDATE fixer_profiles
        SET approved_at = COALESCE(approved_at, NOW()),
            pending_changes = FALSE, rejection_reason = NULL, updated_at = NOW()
        WHERE id = $1
        RETURNING user_id::text`, profileID,
	).Scan(&userID)
	if err == pgx.ErrNoRows {
		return apperr.Respond(c, apperr.New(apperr.CodeNotFound, "fixer profile not found"))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to approve profile"))
	}

	_, err = tx.Exec(ctx, `
        UPDATE users SET roles = array_append(roles, $1)
        WHERE id = $2 AND NOT ($1 = ANY(roles))`,
		string(identity.RoleFixer), userID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to grant fixer role"))
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to commit"))
	}

	_ = alerts.CreateNotification(userID, "fixer:approved", "Fixer profile approved",
		"Your fixer profile is live. You can now publish gigs and send quotes.", &profileID)

	return c.JSON(http.StatusOK, echo.Map{"message": "profile approved"})
}

// RejectProfile records a rejection reason. The user keeps whatever roles
// they already have; a re-reviewed edit keeps the profile live.
func RejectProfile(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	profileID := c.Param("id")
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil || req.Reason == "" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "a rejection reason is required"))
	}

	ctx := context.Background()
	var userID string
	err := db.Conn.QueryRow(ctx, `
        UPDATE fixer_profiles
        SET pending_changes = FALSE, rejection_reason = $1, updated_at = NOW()
        WHERE id = $2
        RETURNING user_id::text`, req.Reason, profileID,
	).Scan(&userID)
	if err == pgx.ErrNoRows {
		return apperr.Respond(c, apperr.New(apperr.CodeNotFound, "fixer profile not found"))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to reject profile"))
	}

	_ = alerts.CreateNotification(userID, "fixer:rejected", "Fixer profile needs changes",
		req.Reason, &profileID)

	return c.JSON(http.StatusOK, echo.Map{"message": "profile rejected"})
}
