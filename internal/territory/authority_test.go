package territory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func approvedRel() *relationship {
	return &relationship{
		AgentFixerID:  "af-1",
		AgentStatus:   "ACTIVE",
		VetStatus:     "APPROVED",
		Neighborhoods: []string{"ikeja", "yaba"},
	}
}

func TestEvaluateGig(t *testing.T) {
	assert.True(t, EvaluateGig(approvedRel()).Allowed)

	d := EvaluateGig(nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, "agent does not manage this fixer", d.Reason)

	rel := approvedRel()
	rel.AgentStatus = "SUSPENDED"
	d = EvaluateGig(rel)
	assert.False(t, d.Allowed)
	assert.Equal(t, "agent is not active", d.Reason)

	rel = approvedRel()
	rel.VetStatus = "PENDING"
	d = EvaluateGig(rel)
	assert.False(t, d.Allowed)
	assert.Equal(t, "agent-fixer relationship is not approved", d.Reason)
}

func TestEvaluateQuote(t *testing.T) {
	cats := []string{"plumbing", "electrical"}

	assert.True(t, EvaluateQuote(approvedRel(), "ikeja", "plumbing", cats).Allowed)

	// relationship problems short-circuit before territory checks
	d := EvaluateQuote(nil, "ikeja", "plumbing", cats)
	assert.False(t, d.Allowed)
	assert.Equal(t, "agent does not manage this fixer", d.Reason)

	d = EvaluateQuote(approvedRel(), "surulere", "plumbing", cats)
	assert.False(t, d.Allowed)
	assert.Equal(t, "request neighborhood is outside the agent's approved territory", d.Reason)

	d = EvaluateQuote(approvedRel(), "yaba", "carpentry", cats)
	assert.False(t, d.Allowed)
	assert.Equal(t, "fixer does not serve the request's category", d.Reason)
}
