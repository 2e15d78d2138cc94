package gig

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/workflow"
)

// Browse lists ACTIVE gigs, optionally filtered by category and
// neighborhood. Paused and draft gigs never appear here.
func Browse(c echo.Context) error {
	ctx := context.Background()
	rows, err := db.Conn.Query(ctx, `
        SELECT g.id::text, g.fixer_id::text, g.title, COALESCE(g.description, ''),
               g.category_id, COALESCE(g.neighborhood_id, ''), g.created_at
        FROM gigs g
        WHERE g.status = 'ACTIVE'
          AND ($1 = '' OR g.category_id = $1)
          AND ($2 = '' OR g.neighborhood_id = $2)
        ORDER BY g.created_at DESC
        LIMIT 100`,
		c.QueryParam("category_id"), c.QueryParam("neighborhood_id"))
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to browse gigs"))
	}
	defer rows.Close()

	out := []Gig{}
	for rows.Next() {
		var g Gig
		if err := rows.Scan(&g.ID, &g.FixerID, &g.Title, &g.Description,
			&g.CategoryID, &g.NeighborhoodID, &g.CreatedAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan gig"))
		}
		g.Status = string(workflow.GigActive)
		out = append(out, g)
	}
	return c.JSON(http.StatusOK, echo.Map{"gigs": out})
}

// Get returns one ACTIVE gig with its packages.
func Get(c echo.Context) error {
	ctx := context.Background()
	g, err := load(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	if workflow.Status(g.Status) != workflow.GigActive {
		return apperr.Respond(c, apperr.New(apperr.CodeNotFound, "gig not found"))
	}

	g.Packages, err = loadPackages(ctx, g.ID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(http.StatusOK, g)
}
