package order

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/alerts"
	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
	"github.com/fixhub-app/fixhub/internal/ledger"
	"github.com/fixhub-app/fixhub/internal/workflow"
)

// Settle releases a PAID order's escrow. The status change and every purse
// movement commit in one transaction; retrying a settlement that already
// went through fails on the status precondition and moves nothing.
func Settle(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleAdmin)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	o, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}

	from := workflow.Status(o.Status)
	if err := workflow.Orders.Check(from, workflow.OrderSettled, ident.Roles, ""); err != nil {
		return apperr.Respond(c, err)
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to start transaction"))
	}
	defer tx.Rollback(ctx)

	if err := workflow.Orders.Apply(ctx, tx, o.ID, from, workflow.OrderSettled); err != nil {
		return apperr.Respond(c, err)
	}
	res, err := ledger.Settle(ctx, tx, o.ID)
	if err != nil {
		_ = alerts.EnqueueAdminAlert("ERROR", "settlement failed for order "+o.ID+": "+err.Error())
		return apperr.Respond(c, err)
	}
	if err := tx.Commit(ctx); err != nil {
		_ = alerts.EnqueueAdminAlert("ERROR", "settlement commit failed for order "+o.ID+": "+err.Error())
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to commit settlement"))
	}

	var fixerEmail string
	if err := db.Conn.QueryRow(ctx,
		`SELECT email FROM users WHERE id = $1`, o.FixerID).Scan(&fixerEmail); err == nil {
		_ = alerts.EnqueueOrderEvent(o.ID, o.ClientID, o.FixerID, fixerEmail, "SETTLED", res.FixerPayout)
	}
	_ = alerts.CreateNotification(o.FixerID, "order:settled", "Payment released",
		"Escrow for your order was released to your purse.", &o.ID)

	return c.JSON(http.StatusOK, echo.Map{
		"message":          "order settled",
		"platform_fee":     res.PlatformFee,
		"agent_commission": res.AgentCommission,
		"fixer_payout":     res.FixerPayout,
	})
}

// AutoRelease settles every PAID order that has sat in escrow longer than
// the auto_release_escrow_days window. Each order settles in its own
// transaction so one failure does not hold the rest back.
func AutoRelease(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	days := ledger.AutoReleaseDays(ctx, db.Conn)

	rows, err := db.Conn.Query(ctx, `
        SELECT id::text, fixer_id::text FROM orders
        WHERE status = 'PAID' AND updated_at < NOW() - make_interval(days => $1)
        ORDER BY updated_at ASC`, days)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to list due orders"))
	}
	type due struct{ id, fixerID string }
	var pending []due
	for rows.Next() {
		var d due
		if err := rows.Scan(&d.id, &d.fixerID); err != nil {
			rows.Close()
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan order"))
		}
		pending = append(pending, d)
	}
	rows.Close()

	released := []string{}
	for _, d := range pending {
		if err := settleOne(ctx, d.id); err != nil {
			_ = alerts.EnqueueAdminAlert("ERROR", "auto-release failed for order "+d.id+": "+err.Error())
			continue
		}
		_ = alerts.CreateNotification(d.fixerID, "order:settled", "Payment released",
			"Escrow for your order was released to your purse.", &d.id)
		released = append(released, d.id)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"window_days": days,
		"released":    released,
		"failed":      len(pending) - len(released),
	})
}

func settleOne(ctx context.Context, orderID string) error {
	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeUnexpected, "failed to start transaction")
	}
	defer tx.Rollback(ctx)

	if err := workflow.Orders.Apply(ctx, tx, orderID, workflow.OrderPaid, workflow.OrderSettled); err != nil {
		return err
	}
	if _, err := ledger.Settle(ctx, tx, orderID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// checkReversal gates commission clawback. Funds only move out of a
// commission once the order has settled, and every clawback carries a
// refund reason for the ledger.
func checkReversal(status workflow.Status, reason string) error {
	if status != workflow.OrderSettled {
		return apperr.New(apperr.CodeInvalidTransition, "only settled orders can be refunded")
	}
	if strings.TrimSpace(reason) == "" {
		return apperr.New(apperr.CodeValidation, "a refund reason is required")
	}
	return nil
}

// ReverseCommission claws back part of an accrued agent commission when a
// settled order is refunded off-platform. It only applies to SETTLED orders,
// needs a recorded refund reason, and reverses a commission at most once.
func ReverseCommission(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}

	ctx := context.Background()
	o, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	if err := checkReversal(workflow.Status(o.Status), req.Reason); err != nil {
		return apperr.Respond(c, err)
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to start transaction"))
	}
	defer tx.Rollback(ctx)

	reversed, err := ledger.ReverseCommission(ctx, tx, o.ID, req.Reason)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to commit reversal"))
	}

	return c.JSON(http.StatusOK, echo.Map{"reversed_amount": reversed})
}
