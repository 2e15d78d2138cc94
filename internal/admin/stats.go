package admin

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
)

// Stats returns headline marketplace counts plus the money currently held
// in escrow (PAID orders awaiting settlement).
func Stats(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	var users, fixers, agents, gigs, requests, orders int
	var escrow, platformRevenue int64

	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&users)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM fixer_profiles WHERE approved_at IS NOT NULL`).Scan(&fixers)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM agents WHERE status = 'ACTIVE'`).Scan(&agents)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM gigs WHERE status = 'ACTIVE'`).Scan(&gigs)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM service_requests`).Scan(&requests)
	_ = db.Conn.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orders)
	_ = db.Conn.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE status = 'PAID'`).Scan(&escrow)
	_ = db.Conn.QueryRow(ctx,
		`SELECT COALESCE(available_balance, 0) FROM purses WHERE user_id IS NULL`).Scan(&platformRevenue)

	return c.JSON(http.StatusOK, echo.Map{
		"users":            users,
		"active_fixers":    fixers,
		"active_agents":    agents,
		"active_gigs":      gigs,
		"service_requests": requests,
		"orders":           orders,
		"escrow_held":      escrow,
		"platform_revenue": platformRevenue,
	})
}
