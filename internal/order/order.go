package order

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/fixhub-app/fixhub/internal/alerts"
	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
	"github.com/fixhub-app/fixhub/internal/ledger"
	"github.com/fixhub-app/fixhub/internal/workflow"
)

// Order is one paid engagement between a client and a fixer, opened either
// from a gig package or an accepted quote. The platform fee is fixed at
// creation; the agent commission, if any, is derived at settlement.
type Order struct {
	ID          string    `json:"id"`
	GigID       string    `json:"gig_id,omitempty"`
	PackageID   string    `json:"package_id,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
	QuoteID     string    `json:"quote_id,omitempty"`
	ClientID    string    `json:"client_id"`
	FixerID     string    `json:"fixer_id"`
	Status      string    `json:"status"`
	TotalAmount int64     `json:"total_amount"`
	PlatformFee int64     `json:"platform_fee"`
	FixerAmount int64     `json:"fixer_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

func load(ctx context.Context, id string) (*Order, error) {
	var o Order
	var gigID, pkgID, reqID, quoteID *string
	err := db.Conn.QueryRow(ctx, `
        SELECT id::text, gig_id::text, package_id::text, request_id::text, quote_id::text,
               client_id::text, fixer_id::text, status, total_amount, platform_fee,
               fixer_amount, created_at
        FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &gigID, &pkgID, &reqID, &quoteID,
		&o.ClientID, &o.FixerID, &o.Status, &o.TotalAmount, &o.PlatformFee,
		&o.FixerAmount, &o.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load order")
	}
	if gigID != nil {
		o.GigID = *gigID
	}
	if pkgID != nil {
		o.PackageID = *pkgID
	}
	if reqID != nil {
		o.RequestID = *reqID
	}
	if quoteID != nil {
		o.QuoteID = *quoteID
	}
	return &o, nil
}

// Create opens an order for a package of an ACTIVE gig.
func Create(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleClient)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req struct {
		PackageID string `json:"package_id"`
	}
	if err := c.Bind(&req); err != nil || req.PackageID == "" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "package_id is required"))
	}

	ctx := context.Background()
	var (
		gigID, fixerID, gigStatus string
		price                     int64
		revisions                 int
	)
	err = db.Conn.QueryRow(ctx, `
        SELECT g.id::text, g.fixer_id::text, g.status, p.price, p.revisions
        FROM gig_packages p JOIN gigs g ON g.id = p.gig_id
        WHERE p.id = $1`, req.PackageID,
	).Scan(&gigID, &fixerID, &gigStatus, &price, &revisions)
	if err == pgx.ErrNoRows {
		return apperr.Respond(c, apperr.New(apperr.CodeNotFound, "package not found"))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load package"))
	}
	if workflow.Status(gigStatus) != workflow.GigActive {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "gig is not accepting orders"))
	}
	if fixerID == ident.UserID {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "you cannot order your own gig"))
	}

	split := ledger.ComputeSplit(price, ledger.PlatformCommission(ctx, db.Conn), decimal.Zero)

	var orderID string
	err = db.Conn.QueryRow(ctx, `
        INSERT INTO orders (gig_id, package_id, client_id, fixer_id,
                            total_amount, platform_fee, fixer_amount, revisions_allowed)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id::text`,
		gigID, req.PackageID, ident.UserID, fixerID,
		split.Total, split.PlatformFee, split.FixerAmount, revisions,
	).Scan(&orderID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create order"))
	}

	var fixerEmail string
	if err := db.Conn.QueryRow(ctx,
		`SELECT email FROM users WHERE id = $1`, fixerID).Scan(&fixerEmail); err == nil {
		_ = alerts.EnqueueOrderEvent(orderID, ident.UserID, fixerID, fixerEmail, "CREATED", price)
	}
	_ = alerts.CreateNotification(fixerID, "order:created", "New order",
		"A client ordered one of your gig packages.", &orderID)

	return c.JSON(http.StatusCreated, echo.Map{"order_id": orderID, "total_amount": price})
}

// transition runs one lifecycle step after checking the caller is the right
// party on the order.
func transition(c echo.Context, to workflow.Status, party func(*Order, identity.Identity) bool, event string) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	o, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	if !party(o, ident) {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, "not your order"))
	}

	from := workflow.Status(o.Status)
	if err := workflow.Orders.Check(from, to, ident.Roles, ""); err != nil {
		return apperr.Respond(c, err)
	}
	if err := workflow.Orders.Apply(ctx, db.Conn, o.ID, from, to); err != nil {
		return apperr.Respond(c, err)
	}

	other := o.FixerID
	if ident.UserID == o.FixerID {
		other = o.ClientID
	}
	_ = alerts.CreateNotification(other, "order:"+event, "Order update",
		"Order moved to "+string(to)+".", &o.ID)

	return c.JSON(http.StatusOK, echo.Map{"status": string(to)})
}

func isFixer(o *Order, i identity.Identity) bool  { return o.FixerID == i.UserID }
func isClient(o *Order, i identity.Identity) bool { return o.ClientID == i.UserID }

// Start marks the work begun. Fixer only.
func Start(c echo.Context) error {
	return transition(c, workflow.OrderInProgress, isFixer, "started")
}

// Complete marks the work delivered. Fixer only.
func Complete(c echo.Context) error {
	return transition(c, workflow.OrderCompleted, isFixer, "completed")
}

// Pay records the client's payment on a completed order. Settlement is a
// separate admin step; until then the money sits in escrow.
func Pay(c echo.Context) error {
	return transition(c, workflow.OrderPaid, isClient, "paid")
}

// Cancel voids an order that has not been started.
func Cancel(c echo.Context) error {
	return transition(c, workflow.OrderCancelled, isClient, "cancelled")
}

// Mine lists the caller's orders on either side of the table.
func Mine(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT id::text, COALESCE(gig_id::text, ''), COALESCE(package_id::text, ''),
               COALESCE(request_id::text, ''), COALESCE(quote_id::text, ''),
               client_id::text, fixer_id::text, status, total_amount, platform_fee,
               fixer_amount, created_at
        FROM orders WHERE client_id = $1 OR fixer_id = $1
        ORDER BY created_at DESC`, ident.UserID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to list orders"))
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.GigID, &o.PackageID, &o.RequestID, &o.QuoteID,
			&o.ClientID, &o.FixerID, &o.Status, &o.TotalAmount, &o.PlatformFee,
			&o.FixerAmount, &o.CreatedAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan order"))
		}
		out = append(out, o)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": out})
}

// Get returns one order to either party or an admin.
func Get(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	o, err := load(context.Background(), c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	if o.ClientID != ident.UserID && o.FixerID != ident.UserID && !ident.Roles.Has(identity.RoleAdmin) {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, "not your order"))
	}
	return c.JSON(http.StatusOK, o)
}
