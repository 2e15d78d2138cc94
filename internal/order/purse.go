package order

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
)

// Purse is a user's money position in minor units. The platform's own purse
// is the single row with a NULL user id.
type Purse struct {
	UserID            string `json:"user_id,omitempty"`
	AvailableBalance  int64  `json:"available_balance"`
	PendingBalance    int64  `json:"pending_balance"`
	CommissionBalance int64  `json:"commission_balance"`
	TotalRevenue      int64  `json:"total_revenue"`
}

// MyPurse returns the caller's purse; a user who has never been paid gets
// zeros, not a 404.
func MyPurse(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	p := Purse{UserID: ident.UserID}
	err = db.Conn.QueryRow(context.Background(), `
        SELECT available_balance, pending_balance, commission_balance, total_revenue
        FROM purses WHERE user_id = $1`, ident.UserID,
	).Scan(&p.AvailableBalance, &p.PendingBalance, &p.CommissionBalance, &p.TotalRevenue)
	if err != nil && err != pgx.ErrNoRows {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load purse"))
	}
	return c.JSON(http.StatusOK, p)
}

// ListPurses returns every purse, platform row first.
func ListPurses(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT COALESCE(user_id::text, ''), available_balance, pending_balance,
               commission_balance, total_revenue
        FROM purses ORDER BY user_id NULLS FIRST`)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to list purses"))
	}
	defer rows.Close()

	out := []Purse{}
	for rows.Next() {
		var p Purse
		if err := rows.Scan(&p.UserID, &p.AvailableBalance, &p.PendingBalance,
			&p.CommissionBalance, &p.TotalRevenue); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan purse"))
		}
		out = append(out, p)
	}
	return c.JSON(http.StatusOK, echo.Map{"purses": out})
}
