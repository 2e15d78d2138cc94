package request

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

// Quote is a fixer's offer on a service request. INSPECTION_REQUIRED quotes
// carry an inspection fee the client must pay before the quote can be
// accepted.
type Quote struct {
	ID                string    `json:"id"`
	RequestID         string    `json:"request_id"`
	FixerID           string    `json:"fixer_id"`
	Amount            int64     `json:"amount"`
	Message           string    `json:"message,omitempty"`
	QuoteType         string    `json:"quote_type"`
	InspectionFee     int64     `json:"inspection_fee,omitempty"`
	InspectionFeePaid bool      `json:"inspection_fee_paid"`
	CreatedAt         time.Time `json:"created_at"`
}

// NormalizeQuote applies the quote_type rules shared by direct and delegated
// quotes: STANDARD quotes carry no inspection fee, INSPECTION_REQUIRED quotes
// need a positive one. An empty type defaults to STANDARD.
func NormalizeQuote(quoteType string, fee int64) (string, int64, error) {
	if quoteType == "" {
		quoteType = "STANDARD"
	}
	switch quoteType {
	case "STANDARD":
		fee = 0
	case "INSPECTION_REQUIRED":
		if fee <= 0 {
			return "", 0, apperr.New(apperr.CodeValidation, "inspection quotes need a positive inspection_fee")
		}
	default:
		return "", 0, apperr.New(apperr.CodeValidation, "quote_type must be STANDARD or INSPECTION_REQUIRED")
	}
	return quoteType, fee, nil
}

func loadQuote(ctx context.Context, id string) (*Quote, error) {
	var q Quote
	var msg *string
	err := db.Conn.QueryRow(ctx, `
        SELECT id::text, request_id::text, fixer_id::text, amount, message,
               quote_type, inspection_fee, inspection_fee_paid, created_at
        FROM quotes WHERE id = $1`, id,
	).Scan(&q.ID, &q.RequestID, &q.FixerID, &q.Amount, &msg,
		&q.QuoteType, &q.InspectionFee, &q.InspectionFeePaid, &q.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.CodeNotFound, "quote not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load quote")
	}
	if msg != nil {
		q.Message = *msg
	}
	return &q, nil
}

// SubmitQuote places a quote on an APPROVED request. One quote per fixer
// per request.
func SubmitQuote(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleFixer)
	if err != nil {
		return apperr.Respond(c, err)
	}

	requestID := c.Param("id")
	var req struct {
		Amount        int64  `json:"amount"`
		Message       string `json:"message"`
		QuoteType     string `json:"quote_type"`
		InspectionFee int64  `json:"inspection_fee"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}
	if req.Amount <= 0 {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "a positive amount is required"))
	}
	req.QuoteType, req.InspectionFee, err = NormalizeQuote(req.QuoteType, req.InspectionFee)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	r, err := load(ctx, requestID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if workflow.Status(r.Status) != workflow.RequestApproved {
		return apperr.Respond(c, apperr.New(apperr.CodeInvalidTransition, "request is not open for quotes"))
	}
	if r.ClientID == ident.UserID {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "you cannot quote your own request"))
	}

	var quoteID string
	err = db.Conn.QueryRow(ctx, `
        INSERT INTO quotes (request_id, fixer_id, amount, message, quote_type, inspection_fee)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (request_id, fixer_id) DO NOTHING
        RETURNING id::text`,
		requestID, ident.UserID, req.Amount, req.Message, req.QuoteType, req.InspectionFee,
	).Scan(&quoteID)
	if err == pgx.ErrNoRows {
		return apperr.Respond(c, apperr.New(apperr.CodeConflict, "you already quoted this request"))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create quote"))
	}

	var clientEmail string
	if err := db.Conn.QueryRow(ctx,
		`SELECT email FROM users WHERE id = $1`, r.ClientID).Scan(&clientEmail); err == nil {
		_ = alerts.EnqueueQuoteReceived(quoteID, r.ClientID, clientEmail, req.Amount)
	}
	_ = alerts.CreateNotification(r.ClientID, "quote:received", "New quote on your request",
		req.Message, &quoteID)

	return c.JSON(http.StatusCreated, echo.Map{"quote_id": quoteID})
}

// ListQuotes shows a request's quotes to its owner.
func ListQuotes(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	r, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	if r.ClientID != ident.UserID && !ident.Roles.Has(identity.RoleAdmin) {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, "not your request"))
	}

	rows, err := db.Conn.Query(ctx, `
        SELECT id::text, request_id::text, fixer_id::text, amount, COALESCE(message, ''),
               quote_type, inspection_fee, inspection_fee_paid, created_at
        FROM quotes WHERE request_id = $1 ORDER BY created_at ASC`, r.ID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to list quotes"))
	}
	defer rows.Close()

	out := []Quote{}
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.ID, &q.RequestID, &q.FixerID, &q.Amount, &q.Message,
			&q.QuoteType, &q.InspectionFee, &q.InspectionFeePaid, &q.CreatedAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan quote"))
		}
		out = append(out, q)
	}
	return c.JSON(http.StatusOK, echo.Map{"quotes": out})
}

// PayInspection settles an inspection fee. The fee goes straight to the
// fixer's purse, no platform cut and no agent commission; it unlocks the
// quote for acceptance.
func PayInspection(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	q, err := loadQuote(ctx, c.Param("quoteId"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	r, err := load(ctx, q.RequestID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if r.ClientID != ident.UserID {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, "not your request"))
	}
	if q.QuoteType != "INSPECTION_REQUIRED" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "this quote has no inspection fee"))
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to start transaction"))
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
        UPDATE quotes SET inspection_fee_paid = TRUE
        WHERE id = $1 AND inspection_fee_paid = FALSE`, q.ID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to mark fee paid"))
	}
	if tag.RowsAffected() == 0 {
		return apperr.Respond(c, apperr.New(apperr.CodeConflict, "inspection fee already paid"))
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO purses (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, q.FixerID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to ensure purse"))
	}
	_, err = tx.Exec(ctx, `
        UPDATE purses
        SET available_balance = available_balance + $1,
            total_revenue = total_revenue + $1,
            updated_at = NOW()
        WHERE user_id = $2`, q.InspectionFee, q.FixerID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to credit fixer"))
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to commit"))
	}

	_ = alerts.CreateNotification(q.FixerID, "quote:inspection_paid", "Inspection fee paid",
		"The client paid your inspection fee. You can schedule the visit.", &q.ID)

	return c.JSON(http.StatusOK, echo.Map{"message": "inspection fee paid"})
}

// AcceptQuote locks the request to one quote and opens an order for the
// quoted amount. The platform fee is fixed at acceptance time from the
// current commission setting.
func AcceptQuote(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	q, err := loadQuote(ctx, c.Param("quoteId"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	r, err := load(ctx, q.RequestID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if r.ClientID != ident.UserID {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, "not your request"))
	}
	if q.QuoteType == "INSPECTION_REQUIRED" && !q.InspectionFeePaid {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "pay the inspection fee before accepting this quote"))
	}

	from := workflow.Status(r.Status)
	if err := workflow.Requests.Check(from, workflow.RequestAccepted, ident.Roles, ""); err != nil {
		return apperr.Respond(c, err)
	}

	split := ledger.ComputeSplit(q.Amount, ledger.PlatformCommission(ctx, db.Conn), decimal.Zero)

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to start transaction"))
	}
	defer tx.Rollback(ctx)

	if err := workflow.Requests.Apply(ctx, tx, r.ID, from, workflow.RequestAccepted); err != nil {
		return apperr.Respond(c, err)
	}
	_, err = tx.Exec(ctx,
		`UPDATE service_requests SET accepted_quote_id = $1 WHERE id = $2`, q.ID, r.ID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to record accepted quote"))
	}

	var orderID string
	err = tx.QueryRow(ctx, `
        INSERT INTO orders (request_id, quote_id, client_id, fixer_id, total_amount, platform_fee, fixer_amount)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id::text`,
		r.ID, q.ID, r.ClientID, q.FixerID, split.Total, split.PlatformFee, split.FixerAmount,
	).Scan(&orderID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create order"))
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to commit"))
	}

	var fixerEmail string
	if err := db.Conn.QueryRow(ctx,
		`SELECT email FROM users WHERE id = $1`, q.FixerID).Scan(&fixerEmail); err == nil {
		_ = alerts.EnqueueOrderEvent(orderID, r.ClientID, q.FixerID, fixerEmail, "CREATED", q.Amount)
	}
	_ = alerts.CreateNotification(q.FixerID, "order:created", "Quote accepted",
		"Your quote was accepted. A new order is waiting for you.", &orderID)

	return c.JSON(http.StatusCreated, echo.Map{"order_id": orderID})
}
