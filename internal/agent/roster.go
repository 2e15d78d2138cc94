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
)

// AddFixer proposes an agent-fixer relationship. It starts PENDING and only
// counts for delegation once an admin vets it.
func AddFixer(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleAgent)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req struct {
		FixerID string `json:"fixer_id"`
	}
	if err := c.Bind(&req); err != nil || req.FixerID == "" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "fixer_id is required"))
	}

	ctx := context.Background()
	a, err := loadByUser(ctx, ident.UserID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if a.Status != "ACTIVE" {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, "agent is not active"))
	}

	var fixerEmail string
	err = db.Conn.QueryRow(ctx, `
        SELECT email FROM users WHERE id = $1 AND 'FIXER' = ANY(roles)`, req.FixerID,
	).Scan(&fixerEmail)
	if err == pgx.ErrNoRows {
		return apperr.Respond(c, apperr.New(apperr.CodeNotFound, "no fixer with that id"))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load fixer"))
	}

	var relID string
	err = db.Conn.QueryRow(ctx, `
        INSERT INTO agent_fixers (agent_id, fixer_id) VALUES ($1, $2)
        ON CONFLICT (agent_id, fixer_id) DO NOTHING
        RETURNING id::text`, a.ID, req.FixerID,
	).Scan(&relID)
	if err == pgx.ErrNoRows {
		return apperr.Respond(c, apperr.New(apperr.CodeConflict, "relationship already exists"))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create relationship"))
	}

	_ = alerts.EnqueueRosterDecision(relID, req.FixerID, fixerEmail, "PROPOSED")
	_ = alerts.CreateNotification(req.FixerID, "roster:proposed", "Agent invitation",
		a.BusinessName+" wants to manage your listings.", &relID)

	return c.JSON(http.StatusCreated, echo.Map{"relationship_id": relID, "vet_status": "PENDING"})
}

// AddClient links a client the agency sources work for. Like fixer links it
// starts PENDING and only counts once an admin vets it.
func AddClient(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleAgent)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req struct {
		ClientID string `json:"client_id"`
	}
	if err := c.Bind(&req); err != nil || req.ClientID == "" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "client_id is required"))
	}

	ctx := context.Background()
	a, err := loadByUser(ctx, ident.UserID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	if a.Status != "ACTIVE" {
		return apperr.Respond(c, apperr.New(apperr.CodeForbidden, "agent is not active"))
	}

	var exists bool
	err = db.Conn.QueryRow(ctx, `
        SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND 'CLIENT' = ANY(roles))`,
		req.ClientID).Scan(&exists)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load client"))
	}
	if !exists {
		return apperr.Respond(c, apperr.New(apperr.CodeNotFound, "no client with that id"))
	}

	var relID string
	err = db.Conn.QueryRow(ctx, `
        INSERT INTO agent_clients (agent_id, client_id) VALUES ($1, $2)
        ON CONFLICT (agent_id, client_id) DO NOTHING
        RETURNING id::text`, a.ID, req.ClientID,
	).Scan(&relID)
	if err == pgx.ErrNoRows {
		return apperr.Respond(c, apperr.New(apperr.CodeConflict, "relationship already exists"))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to create relationship"))
	}

	_ = alerts.CreateNotification(req.ClientID, "roster:proposed", "Agent invitation",
		a.BusinessName+" wants to source work for you.", &relID)

	return c.JSON(http.StatusCreated, echo.Map{"relationship_id": relID, "vet_status": "PENDING"})
}

// Roster lists the agent's fixer and client relationships.
func Roster(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleAgent)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	a, err := loadByUser(ctx, ident.UserID)
	if err != nil {
		return apperr.Respond(c, err)
	}

	list := func(query string) ([]RosterEntry, error) {
		rows, err := db.Conn.Query(ctx, query, a.ID)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load roster")
		}
		defer rows.Close()

		items := []RosterEntry{}
		for rows.Next() {
			var e RosterEntry
			if err := rows.Scan(&e.ID, &e.AgentID, &e.MemberID, &e.VetStatus, &e.CreatedAt); err != nil {
				return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to read roster entry")
			}
			items = append(items, e)
		}
		return items, nil
	}

	fixers, err := list(`
        SELECT id::text, agent_id::text, fixer_id::text, vet_status, created_at
        FROM agent_fixers WHERE agent_id = $1 ORDER BY created_at DESC`)
	if err != nil {
		return apperr.Respond(c, err)
	}
	clients, err := list(`
        SELECT id::text, agent_id::text, client_id::text, vet_status, created_at
        FROM agent_clients WHERE agent_id = $1 ORDER BY created_at DESC`)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"fixers": fixers, "clients": clients})
}

// VetRelationship is the admin decision on an agent-fixer pairing.
func VetRelationship(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	var req struct {
		Decision string `json:"decision"` // APPROVED | REJECTED
	}
	if err := c.Bind(&req); err != nil ||
		(req.Decision != "APPROVED" && req.Decision != "REJECTED") {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "decision must be APPROVED or REJECTED"))
	}

	ctx := context.Background()
	var fixerID, fixerEmail string
	err := db.Conn.QueryRow(ctx, `
        UPDATE agent_fixers af SET vet_status = $1
        FROM users u
        WHERE af.id = $2 AND af.vet_status = 'PENDING' AND u.id = af.fixer_id
        RETURNING af.fixer_id::text, u.email`, req.Decision, c.Param("id"),
	).Scan(&fixerID, &fixerEmail)
	if err == pgx.ErrNoRows {
		return apperr.Respond(c, apperr.New(apperr.CodeInvalidTransition, "relationship is not pending"))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to vet relationship"))
	}

	relID := c.Param("id")
	_ = alerts.EnqueueRosterDecision(relID, fixerID, fixerEmail, req.Decision)

	return c.JSON(http.StatusOK, echo.Map{"relationship_id": relID, "vet_status": req.Decision})
}

// VetClientRelationship is the admin decision on an agent-client pairing.
func VetClientRelationship(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	var req struct {
		Decision string `json:"decision"` // APPROVED | REJECTED
	}
	if err := c.Bind(&req); err != nil ||
		(req.Decision != "APPROVED" && req.Decision != "REJECTED") {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "decision must be APPROVED or REJECTED"))
	}

	ctx := context.Background()
	var clientID string
	err := db.Conn.QueryRow(ctx, `
        UPDATE agent_clients SET vet_status = $1
        WHERE id = $2 AND vet_status = 'PENDING'
        RETURNING client_id::text`, req.Decision, c.Param("id"),
	).Scan(&clientID)
	if err == pgx.ErrNoRows {
		return apperr.Respond(c, apperr.New(apperr.CodeInvalidTransition, "relationship is not pending"))
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to vet relationship"))
	}

	relID := c.Param("id")
	_ = alerts.CreateNotification(clientID, "roster:"+req.Decision,
		"Agent relationship "+req.Decision, "Your agent link was "+req.Decision+" by an admin.", &relID)

	return c.JSON(http.StatusOK, echo.Map{"relationship_id": relID, "vet_status": req.Decision})
}
