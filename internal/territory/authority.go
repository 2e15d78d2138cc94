package territory

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
)

// Decision is the answer to "may this agent act here". Callers need the
// reason for a user-facing error, so denial is a value, not an error.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

func allow() Decision { return Decision{Allowed: true} }

// relationship holds the joined facts the checks below evaluate.
type relationship struct {
	AgentFixerID  string
	AgentStatus   string
	VetStatus     string
	Neighborhoods []string
}

func loadRelationship(ctx context.Context, agentID, fixerID string) (*relationship, error) {
	var rel relationship
	err := db.Conn.QueryRow(ctx, `
        SELECT af.id::text, a.status, af.vet_status, a.approved_neighborhood_ids
        FROM agent_fixers af
        JOIN agents a ON a.id = af.agent_id
        WHERE af.agent_id = $1 AND af.fixer_id = $2`, agentID, fixerID,
	).Scan(&rel.AgentFixerID, &rel.AgentStatus, &rel.VetStatus, &rel.Neighborhoods)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load agent relationship")
	}
	return &rel, nil
}

// EvaluateGig is the pure rule for "can this agent create a gig for this
// fixer": an approved relationship with an active agent.
func EvaluateGig(rel *relationship) Decision {
	switch {
	case rel == nil:
		return deny("agent does not manage this fixer")
	case rel.AgentStatus != "ACTIVE":
		return deny("agent is not active")
	case rel.VetStatus != "APPROVED":
		return deny("agent-fixer relationship is not approved")
	}
	return allow()
}

// EvaluateQuote adds the territory and category conditions for quoting on a
// service request on a fixer's behalf.
func EvaluateQuote(rel *relationship, requestNeighborhood, requestCategory string, fixerCategories []string) Decision {
	if d := EvaluateGig(rel); !d.Allowed {
		return d
	}
	if !contains(rel.Neighborhoods, requestNeighborhood) {
		return deny("request neighborhood is outside the agent's approved territory")
	}
	if !contains(fixerCategories, requestCategory) {
		return deny("fixer does not serve the request's category")
	}
	return allow()
}

// CanCreateGigFor answers "can agent A create a gig on behalf of fixer F".
// The AgentFixerID on the decision side-channel is returned separately so the
// caller can record the delegation join row.
func CanCreateGigFor(ctx context.Context, agentID, fixerID string) (Decision, string, error) {
	rel, err := loadRelationship(ctx, agentID, fixerID)
	if err != nil {
		return Decision{}, "", err
	}
	d := EvaluateGig(rel)
	if !d.Allowed {
		return d, "", nil
	}
	return d, rel.AgentFixerID, nil
}

// CanQuoteForFixer answers "can agent A submit a quote on behalf of fixer F
// against service request R".
func CanQuoteForFixer(ctx context.Context, agentID, fixerID, requestID string) (Decision, string, error) {
	rel, err := loadRelationship(ctx, agentID, fixerID)
	if err != nil {
		return Decision{}, "", err
	}

	var neighborhood, category string
	err = db.Conn.QueryRow(ctx,
		`SELECT neighborhood_id, category_id FROM service_requests WHERE id = $1`, requestID,
	).Scan(&neighborhood, &category)
	if err == pgx.ErrNoRows {
		return Decision{}, "", apperr.New(apperr.CodeNotFound, "service request not found")
	}
	if err != nil {
		return Decision{}, "", apperr.Wrap(err, apperr.CodeUnexpected, "failed to load request")
	}

	var fixerCategories []string
	err = db.Conn.QueryRow(ctx,
		`SELECT category_ids FROM fixer_profiles WHERE user_id = $1`, fixerID,
	).Scan(&fixerCategories)
	if err != nil && err != pgx.ErrNoRows {
		return Decision{}, "", apperr.Wrap(err, apperr.CodeUnexpected, "failed to load fixer profile")
	}

	d := EvaluateQuote(rel, neighborhood, category, fixerCategories)
	if !d.Allowed {
		return d, "", nil
	}
	return d, rel.AgentFixerID, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
