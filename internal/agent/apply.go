package agent

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
)

// Apply submits an agent application. One application per user; re-applying
// while a record exists in any state is a conflict.
func Apply(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if ident.Status != "ACTIVE" {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, "account is not active"))
	}

	var req struct {
		BusinessName             string   `json:"businessName"`
		RequestedNeighborhoodIDs []string `json:"requestedNeighborhoodIds"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}
	if strings.TrimSpace(req.BusinessName) == "" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "businessName is required"))
	}
	if len(req.RequestedNeighborhoodIDs) == 0 {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "at least one requested neighborhood is required"))
	}

	ctx := context.Background()

	var exists bool
	if err := db.Conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM agents WHERE user_id = $1)`, ident.UserID,
	).Scan(&exists); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to check application"))
	}
	if exists {
		return apperr.Respond(c, apperr.New(apperr.CodeConflict, "an agent application already exists for this account"))
	}

	var agentID string
	err = db.Conn.QueryRow(ctx,
		`INSERT INTO agents (user_id, business_name, requested_neighborhood_ids)
         VALUES ($1, $2, $3) RETURNING id::text`,
		ident.UserID, req.BusinessName, req.RequestedNeighborhoodIDs,
	).Scan(&agentID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create application"))
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"agent_id": agentID,
		"status":   "PENDING",
		"message":  "Application submitted. An admin will review it.",
	})
}

// Me returns the caller's agent record.
func Me(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	a, err := loadByUser(context.Background(), ident.UserID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

func loadByUser(ctx context.Context, userID string) (*Agent, error) {
	var a Agent
	var reason *string
	var created time.Time
	err := db.Conn.QueryRow(ctx, `
        SELECT id::text, user_id::text, business_name, status, status_reason,
               requested_neighborhood_ids, approved_neighborhood_ids,
               commission_percentage::text, fixer_bonus_enabled,
               wallet_balance, total_earned, created_at
        FROM agents WHERE user_id = $1`, userID,
	).Scan(&a.ID, &a.UserID, &a.BusinessName, &a.Status, &reason,
		&a.RequestedNeighborhoodIDs, &a.ApprovedNeighborhoodIDs,
		&a.CommissionPercentage, &a.FixerBonusEnabled,
		&a.WalletBalance, &a.TotalEarned, &created)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.CodeNotFound, "no agent record for this account")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load agent")
	}
	if reason != nil {
		a.StatusReason = *reason
	}
	a.CreatedAt = created
	return &a, nil
}

// ListCommissions returns the caller's commission ledger, newest first.
func ListCommissions(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleAgent)
	if err != nil {
		return apperr.Respond(c, err)
	}

	a, err := loadByUser(context.Background(), ident.UserID)
	if err != nil {
		return apperr.Respond(c, err)
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT id::text, order_id::text, fixer_id::text, amount, percentage::text,
               order_amount, status, reversed_amount, created_at
        FROM agent_commissions WHERE agent_id = $1 ORDER BY created_at DESC`, a.ID,
	)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load commissions"))
	}
	defer rows.Close()

	items := []Commission{}
	for rows.Next() {
		var cm Commission
		if err := rows.Scan(&cm.ID, &cm.OrderID, &cm.FixerID, &cm.Amount, &cm.Percentage,
			&cm.OrderAmount, &cm.Status, &cm.ReversedAmount, &cm.CreatedAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to read commission"))
		}
		items = append(items, cm)
	}
	return c.JSON(http.StatusOK, echo.Map{"commissions": items})
}
