package request

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
	"github.com/fixhub-app/fixhub/internal/workflow"
)

// ServiceRequest is a client's custom job posting. It goes through admin
// moderation before fixers can quote on it.
type ServiceRequest struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"client_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	CategoryID      string    `json:"category_id"`
	NeighborhoodID  string    `json:"neighborhood_id"`
	Budget          int64     `json:"budget,omitempty"`
	Status          string    `json:"status"`
	AcceptedQuoteID string    `json:"accepted_quote_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func load(ctx context.Context, id string) (*ServiceRequest, error) {
	var r ServiceRequest
	var desc, accepted *string
	var budget *int64
	err := db.Conn.QueryRow(ctx, `
        SELECT id::text, client_id::text, title, description, category_id,
               neighborhood_id, budget, status, accepted_quote_id::text, created_at
        FROM service_requests WHERE id = $1`, id,
	).Scan(&r.ID, &r.ClientID, &r.Title, &desc, &r.CategoryID,
		&r.NeighborhoodID, &budget, &r.Status, &accepted, &r.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.CodeNotFound, "service request not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load request")
	}
	if desc != nil {
		r.Description = *desc
	}
	if budget != nil {
		r.Budget = *budget
	}
	if accepted != nil {
		r.AcceptedQuoteID = *accepted
	}
	return &r, nil
}

// Create posts a service request. It stays PENDING until an admin approves
// it for the open board.
func Create(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleClient)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req struct {
		Title          string `json:"title"`
		Description    string `json:"description"`
		CategoryID     string `json:"category_id"`
		NeighborhoodID string `json:"neighborhood_id"`
		Budget         int64  `json:"budget"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}
	if req.Title == "" || req.CategoryID == "" || req.NeighborhoodID == "" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "title, category_id and neighborhood_id are required"))
	}
	if req.Budget < 0 {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "budget cannot be negative"))
	}

	var id string
	err = db.Conn.QueryRow(context.Background(), `
        INSERT INTO service_requests (client_id, title, description, category_id, neighborhood_id, budget)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0))
        RETURNING id::text`,
		ident.UserID, req.Title, req.Description, req.CategoryID, req.NeighborhoodID, req.Budget,
	).Scan(&id)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create request"))
	}

	return c.JSON(http.StatusCreated, echo.Map{"id": id, "status": "PENDING"})
}

// Mine lists the caller's own service requests.
func Mine(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT id::text, client_id::text, title, COALESCE(description, ''), category_id,
               neighborhood_id, COALESCE(budget, 0), status,
               COALESCE(accepted_quote_id::text, ''), created_at
        FROM service_requests WHERE client_id = $1 ORDER BY created_at DESC`, ident.UserID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to list requests"))
	}
	defer rows.Close()

	out := []ServiceRequest{}
	for rows.Next() {
		var r ServiceRequest
		if err := rows.Scan(&r.ID, &r.ClientID, &r.Title, &r.Description, &r.CategoryID,
			&r.NeighborhoodID, &r.Budget, &r.Status, &r.AcceptedQuoteID, &r.CreatedAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan request"))
		}
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": out})
}

// Open lists APPROVED requests for fixers to quote on, with optional
// category and neighborhood filters.
func Open(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleFixer, identity.RoleAgent); err != nil {
		return apperr.Respond(c, err)
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT id::text, client_id::text, title, COALESCE(description, ''), category_id,
               neighborhood_id, COALESCE(budget, 0), status, '', created_at
        FROM service_requests
        WHERE status = 'APPROVED'
          AND ($1 = '' OR category_id = $1)
          AND ($2 = '' OR neighborhood_id = $2)
        ORDER BY created_at DESC
        LIMIT 100`,
		c.QueryParam("category_id"), c.QueryParam("neighborhood_id"))
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to list requests"))
	}
	defer rows.Close()

	out := []ServiceRequest{}
	for rows.Next() {
		var r ServiceRequest
		if err := rows.Scan(&r.ID, &r.ClientID, &r.Title, &r.Description, &r.CategoryID,
			&r.NeighborhoodID, &r.Budget, &r.Status, &r.AcceptedQuoteID, &r.CreatedAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan request"))
		}
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": out})
}

// Cancel withdraws a request that has not yet been accepted.
func Cancel(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	r, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	if r.ClientID != ident.UserID {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, "not your request"))
	}

	from := workflow.Status(r.Status)
	if err := workflow.Requests.Check(from, workflow.RequestCancelled, ident.Roles, ""); err != nil {
		return apperr.Respond(c, err)
	}
	if err := workflow.Requests.Apply(ctx, db.Conn, r.ID, from, workflow.RequestCancelled); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "request cancelled"})
}

// Approve publishes a PENDING request to the open board.
func Approve(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleAdmin)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	r, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}

	from := workflow.Status(r.Status)
	if err := workflow.Requests.Check(from, workflow.RequestApproved, ident.Roles, ""); err != nil {
		return apperr.Respond(c, err)
	}
	if err := workflow.Requests.Apply(ctx, db.Conn, r.ID, from, workflow.RequestApproved); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "request approved"})
}

// ListPending returns requests awaiting moderation.
func ListPending(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT sr.id::text, sr.client_id::text, sr.title, COALESCE(sr.description, ''),
               sr.category_id, sr.neighborhood_id, COALESCE(sr.budget, 0), sr.status, '', sr.created_at
        FROM service_requests sr
        WHERE sr.status = 'PENDING'
        ORDER BY sr.created_at ASC`)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to list requests"))
	}
	defer rows.Close()

	out := []ServiceRequest{}
	for rows.Next() {
		var r ServiceRequest
		if err := rows.Scan(&r.ID, &r.ClientID, &r.Title, &r.Description, &r.CategoryID,
			&r.NeighborhoodID, &r.Budget, &r.Status, &r.AcceptedQuoteID, &r.CreatedAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan request"))
		}
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": out})
}
