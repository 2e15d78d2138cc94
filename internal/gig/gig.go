package gig

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

// Gig is a productized service listing owned by a fixer.
type Gig struct {
	ID              string    `json:"id"`
	FixerID         string    `json:"fixer_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	CategoryID      string    `json:"category_id"`
	NeighborhoodID  string    `json:"neighborhood_id,omitempty"`
	Status          string    `json:"status"`
	PendingChanges  bool      `json:"pending_changes"`
	RejectionReason string    `json:"rejection_reason,omitempty"`
	Packages        []Package `json:"packages,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Package is a fixed-price tier of a gig.
type Package struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Price        int64  `json:"price"`
	DeliveryDays int    `json:"delivery_days"`
	Revisions    int    `json:"revisions"`
}

func load(ctx context.Context, id string) (*Gig, error) {
	var g Gig
	var desc, hood, reason *string
	err := db.Conn.QueryRow(ctx, `
        SELECT id::text, fixer_id::text, title, description, category_id,
               neighborhood_id, status, pending_changes, rejection_reason, created_at
        FROM gigs WHERE id = $1`, id,
	).Scan(&g.ID, &g.FixerID, &g.Title, &desc, &g.CategoryID,
		&hood, &g.Status, &g.PendingChanges, &reason, &g.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.CodeNotFound, "gig not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load gig")
	}
	if desc != nil {
		g.Description = *desc
	}
	if hood != nil {
		g.NeighborhoodID = *hood
	}
	if reason != nil {
		g.RejectionReason = *reason
	}
	return &g, nil
}

func loadPackages(ctx context.Context, gigID string) ([]Package, error) {
	rows, err := db.Conn.Query(ctx, `
        SELECT id::text, name, COALESCE(description, ''), price, delivery_days, revisions
        FROM gig_packages WHERE gig_id = $1 ORDER BY price ASC`, gigID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load packages")
	}
	defer rows.Close()

	out := []Package{}
	for rows.Next() {
		var p Package
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.DeliveryDays, &p.Revisions); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan package")
		}
		out = append(out, p)
	}
	return out, nil
}

// canManage reports whether ident owns the gig outright or manages its
// fixer through an approved roster delegation on this gig.
func canManage(ctx context.Context, ident identity.Identity, g *Gig) (bool, error) {
	if g.FixerID == ident.UserID {
		return true, nil
	}
	if ident.Roles.Has(identity.RoleAdmin) {
		return true, nil
	}
	if !ident.Roles.Has(identity.RoleAgent) {
		return false, nil
	}
	var n int
	err := db.Conn.QueryRow(ctx, `
        SELECT COUNT(*) FROM agent_gigs ag
        JOIN agent_fixers af ON af.id = ag.agent_fixer_id
        JOIN agents a ON a.id = af.agent_id
        WHERE ag.gig_id = $1 AND a.user_id = $2 AND af.vet_status = 'APPROVED'`,
		g.ID, ident.UserID).Scan(&n)
	if err != nil {
		return false, apperr.Wrap(err, apperr.CodeUnexpected, "failed to check delegation")
	}
	return n > 0, nil
}

// Create drafts a new gig for the calling fixer.
func Create(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleFixer)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req struct {
		Title          string `json:"title"`
		Description    string `json:"description"`
		CategoryID     string `json:"category_id"`
		NeighborhoodID string `json:"neighborhood_id"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}
	if req.Title == "" || req.CategoryID == "" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "title and category_id are required"))
	}

	var id string
	err = db.Conn.QueryRow(context.Background(), `
        INSERT INTO gigs (fixer_id, title, description, category_id, neighborhood_id)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''))
        RETURNING id::text`,
		ident.UserID, req.Title, req.Description, req.CategoryID, req.NeighborhoodID,
	).Scan(&id)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create gig"))
	}

	return c.JSON(http.StatusCreated, echo.Map{"id": id, "status": "DRAFT"})
}

// Update edits a gig. Edits to an ACTIVE gig flag it for re-review but keep
// it live and orderable while the review is pending.
func Update(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	g, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	ok, err := canManage(ctx, ident, g)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if !ok {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, "not your gig"))
	}

	var req struct {
		Title          string `json:"title"`
		Description    string `json:"description"`
		CategoryID     string `json:"category_id"`
		NeighborhoodID string `json:"neighborhood_id"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}
	if req.Title == "" || req.CategoryID == "" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "title and category_id are required"))
	}

	_, err = db.Conn.Exec(ctx, `
        UPDATE gigs
        SET title = $1, description = $2, category_id = $3,
            neighborhood_id = NULLIF($4, ''),
            pending_changes = (status = 'ACTIVE'),
            rejection_reason = NULL,
            updated_at = NOW()
        WHERE id = $5`,
		req.Title, req.Description, req.CategoryID, req.NeighborhoodID, g.ID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to update gig"))
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "gig updated"})
}

// AddPackage attaches a price tier to a DRAFT or ACTIVE gig.
func AddPackage(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	g, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	ok, err := canManage(ctx, ident, g)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if !ok {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, "not your gig"))
	}

	var req struct {
		Name         string `json:"name"`
		Description  string `json:"description"`
		Price        int64  `json:"price"`
		DeliveryDays int    `json:"delivery_days"`
		Revisions    int    `json:"revisions"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}
	if req.Name == "" || req.Price <= 0 {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "name and a positive price are required"))
	}
	if req.DeliveryDays <= 0 {
		req.DeliveryDays = 1
	}

	var id string
	err = db.Conn.QueryRow(ctx, `
        INSERT INTO gig_packages (gig_id, name, description, price, delivery_days, revisions)
        VALUES ($1, $2, $3, $4, $5, $6) RETURNING id::text`,
		g.ID, req.Name, req.Description, req.Price, req.DeliveryDays, req.Revisions,
	).Scan(&id)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create package"))
	}

	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// Submit moves a DRAFT gig into review. A gig without at least one package
// cannot be submitted.
func Submit(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	g, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	ok, err := canManage(ctx, ident, g)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if !ok {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, "not your gig"))
	}

	var pkgs int
	if err := db.Conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM gig_packages WHERE gig_id = $1`, g.ID).Scan(&pkgs); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to count packages"))
	}
	if pkgs == 0 {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "add at least one package before submitting"))
	}

	from := workflow.Status(g.Status)
	if err := workflow.Gigs.Check(from, workflow.GigPendingReview, ident.Roles, ""); err != nil {
		return apperr.Respond(c, err)
	}
	if err := workflow.Gigs.Apply(ctx, db.Conn, g.ID, from, workflow.GigPendingReview); err != nil {
		return apperr.Respond(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "gig submitted for review"})
}

// setPauseState handles the ACTIVE<->PAUSED toggle shared by Pause and Resume.
func setPauseState(c echo.Context, from, to workflow.Status) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	g, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	if g.FixerID != ident.UserID && !ident.Roles.Has(identity.RoleAdmin) {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, "not your gig"))
	}

	if err := workflow.Gigs.Check(workflow.Status(g.Status), to, ident.Roles, ""); err != nil {
		return apperr.Respond(c, err)
	}
	if err := workflow.Gigs.Apply(ctx, db.Conn, g.ID, from, to); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": string(to)})
}

// Pause hides an ACTIVE gig from discovery without deleting it.
func Pause(c echo.Context) error {
	return setPauseState(c, workflow.GigActive, workflow.GigPaused)
}

// Resume puts a PAUSED gig back into discovery.
func Resume(c echo.Context) error {
	return setPauseState(c, workflow.GigPaused, workflow.GigActive)
}

// Mine lists the caller's own gigs in every status.
func Mine(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	rows, err := db.Conn.Query(ctx, `
        SELECT id::text, fixer_id::text, title, COALESCE(description, ''), category_id,
               COALESCE(neighborhood_id, ''), status, pending_changes,
               COALESCE(rejection_reason, ''), created_at
        FROM gigs WHERE fixer_id = $1 ORDER BY created_at DESC`, ident.UserID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to list gigs"))
	}
	defer rows.Close()

	out := []Gig{}
	for rows.Next() {
		var g Gig
		if err := rows.Scan(&g.ID, &g.FixerID, &g.Title, &g.Description, &g.CategoryID,
			&g.NeighborhoodID, &g.Status, &g.PendingChanges, &g.RejectionReason, &g.CreatedAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan gig"))
		}
		out = append(out, g)
	}
	return c.JSON(http.StatusOK, echo.Map{"gigs": out})
}
