package agent

import (
	"context"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/fixhub-app/fixhub/internal/alerts"
	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
	"github.com/fixhub-app/fixhub/internal/workflow"
)

// agentRow is the slice of the agents table the admin decisions need.
type agentRow struct {
	ID     string
	UserID string
	Email  string
	Status workflow.Status
}

func loadRow(ctx context.Context, agentID string) (*agentRow, error) {
	var r agentRow
	var status string
	err := db.Conn.QueryRow(ctx, `
        SELECT a.id::text, a.user_id::text, u.email, a.status
        FROM agents a JOIN users u ON u.id = a.user_id
        WHERE a.id = $1`, agentID,
	).Scan(&r.ID, &r.UserID, &r.Email, &status)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.CodeNotFound, "agent not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load agent")
	}
	r.Status = workflow.Status(status)
	return &r, nil
}

func parsePercentage(v float64) (decimal.Decimal, error) {
	pct := decimal.NewFromFloat(v)
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Decimal{}, apperr.New(apperr.CodeValidation, "commissionPercentage must be between 0 and 100")
	}
	return pct, nil
}

// Approve activates a PENDING agent. Requires a non-empty set of approved
// neighborhoods; the requested set is cleared on approval.
func Approve(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleAdmin)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req struct {
		ApprovedNeighborhoodIDs []string `json:"approvedNeighborhoodIds"`
		CommissionPercentage    float64  `json:"commissionPercentage"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}
	if len(req.ApprovedNeighborhoodIDs) == 0 {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "approvedNeighborhoodIds must not be empty"))
	}
	pct, err := parsePercentage(req.CommissionPercentage)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	row, err := loadRow(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	if err := workflow.Agents.Check(row.Status, workflow.AgentActive, ident.Roles, ""); err != nil {
		return apperr.Respond(c, err)
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to start transaction"))
	}
	defer tx.Rollback(ctx)

	if err := workflow.Agents.Apply(ctx, tx, row.ID, row.Status, workflow.AgentActive); err != nil {
		return apperr.Respond(c, err)
	}
	_, err = tx.Exec(ctx, `
        UPDATE agents
        SET approved_neighborhood_ids = $1,
            requested_neighborhood_ids = '{}',
            commission_percentage = $2,
            status_reason = NULL
        WHERE id = $3`,
		req.ApprovedNeighborhoodIDs, pct, row.ID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to record approval"))
	}
	_, err = tx.Exec(ctx,
		`UPDATE users SET roles = array_append(roles, 'AGENT')
         WHERE id = $1 AND NOT ('AGENT' = ANY(roles))`, row.UserID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to grant agent role"))
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to commit"))
	}

	// Best-effort fan-out after commit.
	_ = alerts.EnqueueAgentDecision(row.ID, row.UserID, row.Email, "APPROVED", "")
	_ = alerts.CreateNotification(row.UserID, "agent:approved", "Agent application approved",
		"You can now manage fixers in your approved neighborhoods.", &row.ID)

	return c.JSON(http.StatusOK, echo.Map{
		"agent_id":                  row.ID,
		"status":                    "ACTIVE",
		"approved_neighborhood_ids": req.ApprovedNeighborhoodIDs,
		"commission_percentage":     req.CommissionPercentage,
	})
}

// decide applies a reason-bearing admin transition (reject, ban, suspend).
func decide(c echo.Context, to workflow.Status, decision string) error {
	ident, err := identity.RequireRole(c, identity.RoleAdmin)
	if err != nil {
		return apperr.Respond(c, err)
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}

	ctx := context.Background()
	row, err := loadRow(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	if err := workflow.Agents.Check(row.Status, to, ident.Roles, req.Reason); err != nil {
		return apperr.Respond(c, err)
	}

	tx, err := db.Conn.Begin(ctx)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to start transaction"))
	}
	defer tx.Rollback(ctx)

	if err := workflow.Agents.Apply(ctx, tx, row.ID, row.Status, to); err != nil {
		return apperr.Respond(c, err)
	}
	_, err = tx.Exec(ctx, `UPDATE agents SET status_reason = $1 WHERE id = $2`,
		strings.TrimSpace(req.Reason), row.ID)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to record reason"))
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to commit"))
	}

	_ = alerts.EnqueueAgentDecision(row.ID, row.UserID, row.Email, decision, req.Reason)
	_ = alerts.CreateNotification(row.UserID, "agent:"+strings.ToLower(decision),
		"Agent account "+strings.ToLower(decision), req.Reason, &row.ID)

	return c.JSON(http.StatusOK, echo.Map{"agent_id": row.ID, "status": string(to)})
}

// Reject is the terminal refusal of a PENDING application.
func Reject(c echo.Context) error { return decide(c, workflow.AgentRejected, "REJECTED") }

// Ban terminally removes an agent. Distinct from reject: it applies to
// agents that were once active.
func Ban(c echo.Context) error { return decide(c, workflow.AgentBanned, "BANNED") }

// Suspend temporarily sidelines an ACTIVE agent.
func Suspend(c echo.Context) error { return decide(c, workflow.AgentSuspended, "SUSPENDED") }

// Reinstate returns a SUSPENDED agent to ACTIVE.
func Reinstate(c echo.Context) error {
	ident, err := identity.RequireRole(c, identity.RoleAdmin)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	row, err := loadRow(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	if err := workflow.Agents.Check(row.Status, workflow.AgentActive, ident.Roles, ""); err != nil {
		return apperr.Respond(c, err)
	}
	if err := workflow.Agents.Apply(ctx, db.Conn, row.ID, row.Status, workflow.AgentActive); err != nil {
		return apperr.Respond(c, err)
	}

	_ = alerts.EnqueueAgentDecision(row.ID, row.UserID, row.Email, "REINSTATED", "")

	return c.JSON(http.StatusOK, echo.Map{"agent_id": row.ID, "status": "ACTIVE"})
}

// UpdateCommission changes an agent's commission percentage and bonus flag.
// Snapshots on existing AgentCommission rows are unaffected.
func UpdateCommission(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	var req struct {
		CommissionPercentage float64 `json:"commissionPercentage"`
		FixerBonusEnabled    *bool   `json:"fixerBonusEnabled"`
	}
	if err := c.Bind(&req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "invalid payload"))
	}
	pct, err := parsePercentage(req.CommissionPercentage)
	if err != nil {
		return apperr.Respond(c, err)
	}

	ctx := context.Background()
	row, err := loadRow(ctx, c.Param("id"))
	if err != nil {
		return apperr.Respond(c, err)
	}

	if req.FixerBonusEnabled != nil {
		_, err = db.Conn.Exec(ctx, `
            UPDATE agents SET commission_percentage = $1, fixer_bonus_enabled = $2, updated_at = NOW()
            WHERE id = $3`, pct, *req.FixerBonusEnabled, row.ID)
	} else {
		_, err = db.Conn.Exec(ctx, `
            UPDATE agents SET commission_percentage = $1, updated_at = NOW()
            WHERE id = $2`, pct, row.ID)
	}
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to update commission"))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"agent_id":              row.ID,
		"commission_percentage": req.CommissionPercentage,
	})
}

// ListPending returns agent applications awaiting review.
func ListPending(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	rows, err := db.Conn.Query(context.Background(), `
        SELECT a.id::text, a.user_id::text, a.business_name,
               a.requested_neighborhood_ids, a.created_at
        FROM agents a WHERE a.status = 'PENDING' ORDER BY a.created_at`)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load applications"))
	}
	defer rows.Close()

	items := []Agent{}
	for rows.Next() {
		var a Agent
		if err := rows.Scan(&a.ID, &a.UserID, &a.BusinessName,
			&a.RequestedNeighborhoodIDs, &a.CreatedAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to read application"))
		}
		a.Status = "PENDING"
		items = append(items, a)
	}
	return c.JSON(http.StatusOK, echo.Map{"agents": items})
}
