package agent

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/alerts"
	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
	"github.com/fixhub-app/fixhub/internal/request"
	"github.com/fixhub-app/fixhub/internal/territory"
	"github.com/fixhub-app/fixhub/internal/workflow"
)

// CreateGigFor creates a DRAFT gig on a managed fixer's behalf. The gig is
// owned by the fixer; the AgentGig join row marks the delegation so the
// ledger can attribute commission at settlement.
func CreateGigFor(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleAgent)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req struct {
		FixerID        string `json:"fixer_id"`
		Title          string `json:"title"`
		Description    string `json:"description"`
		CategoryID     string `json:"category_id"`
		NeighborhoodID string `json:"neighborhood_id"`
		Packages       []struct {
			Name         string `json:"name"`
			Description  string `json:"description"`
			Price        int64  `json:"price"`
			DeliveryDays int    `json:"delivery_days"`
			Revisions    int    `json:"revisions"`
		} `json:"packages"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}
	if req.FixerID == "" || req.Title == "" || req.CategoryID == "" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "fixer_id, title and category_id are required"))
	}
	if len(req.Packages) == 0 {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "at least one package is required"))
	}
	for _, p := range req.Packages {
		if p.Name == "" || p.Price <= 0 {
			return apperr.Respond(c, apperr.New(apperr.CodeValidation, "each package needs a name and a positive price"))
		}
	}

	ctx := context.Background()
	a, err := loadByUser(ctx, ident.UserID)
	if err != nil {
		return apperr.Respond(c, err)
	}

	decision, agentFixerID, err := territory.CanCreateGigFor(ctx, a.ID, req.FixerID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if !decision.Allowed {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, decision.Reason))
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to start transaction"))
	}
	defer tx.Rollback(ctx)

	var gigID string
	err = tx.QueryRow(ctx, `
        INSERT INTO gigs (fixer_id, title, description, category_id, neighborhood_id, status)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id::text`,
		req.FixerID, req.Title, req.Description, req.CategoryID, req.NeighborhoodID,
		string(workflow.GigDraft),
	).Scan(&gigID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create gig"))
	}

	for _, p := range req.Packages {
		_, err = tx.Exec(ctx, `
            INSERT INTO gig_packages (gig_id, name, description, price, delivery_days, revisions)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			gigID, p.Name, p.Description, p.Price, p.DeliveryDays, p.Revisions)
		if err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create package"))
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO agent_gigs (agent_fixer_id, gig_id) VALUES ($1, $2)`,
		agentFixerID, gigID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to record delegation"))
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to commit"))
	}

	_ = alerts.CreateNotification(req.FixerID, "gig:delegated", "Gig created by your agent",
		a.BusinessName+" drafted a gig for you: "+req.Title, &gigID)

	return c.JSON(http.StatusCreated, echo.Map{"gig_id": gigID, "status": "DRAFT"})
}

// QuoteFor submits a quote on a managed fixer's behalf against an APPROVED
// service request, subject to the territory and category checks.
func QuoteFor(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleAgent)
	if err != nil {
		return apperr.Respond(c, err)
	}

	requestID := c.Param("id")
	var req struct {
		FixerID       string `json:"fixer_id"`
		Amount        int64  `json:"amount"`
		Message       string `json:"message"`
		QuoteType     string `json:"quote_type"`
		InspectionFee int64  `json:"inspection_fee"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}
	if req.FixerID == "" || req.Amount <= 0 {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "fixer_id and a positive amount are required"))
	}
	req.QuoteType, req.InspectionFee, err = request.NormalizeQuote(req.QuoteType, req.InspectionFee)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	a, err := loadByUser(ctx, ident.UserID)
	if err != nil {
		return apperr.Respond(c, err)
	}

	decision, agentFixerID, err := territory.CanQuoteForFixer(ctx, a.ID, req.FixerID, requestID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if !decision.Allowed {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, decision.Reason))
	}

	var clientID, clientEmail, reqStatus string
	err = db.Conn.QueryRow(ctx, `
        SELECT sr.client_id::text, u.email, sr.status
        FROM service_requests sr JOIN users u ON u.id = sr.client_id
        WHERE sr.id = $1`, requestID,
	).Scan(&clientID, &clientEmail, &reqStatus)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load request"))
	}
	if workflow.Status(reqStatus) != workflow.RequestApproved {
		return apperr.Respond(c, apperr.New(apperr.CodeInvalidTransition, "request is not open for quotes"))
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to start transaction"))
	}
	defer tx.Rollback(ctx)

	var quoteID string
	err = tx.QueryRow(ctx, `
        INSERT INTO quotes (request_id, fixer_id, amount, message, quote_type, inspection_fee)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (request_id, fixer_id) DO NOTHING
        RETURNING id::text`,
		requestID, req.FixerID, req.Amount, req.Message, req.QuoteType, req.InspectionFee,
	).Scan(&quoteID)
	if err == pgx.ErrNoRows {
		return apperr.Respond(c, apperr.New(apperr.CodeConflict, "this fixer already quoted that request"))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create quote"))
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO agent_quotes (agent_fixer_id, quote_id) VALUES ($1, $2)`,
		agentFixerID, quoteID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to record delegation"))
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to commit"))
	}

	_ = alerts.EnqueueQuoteReceived(quoteID, clientID, clientEmail, req.Amount)
	_ = alerts.CreateNotification(clientID, "quote:received", "New quote on your request", req.Message, &quoteID)

	return c.JSON(http.StatusCreated, echo.Map{"quote_id": quoteID})
}
