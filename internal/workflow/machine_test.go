package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/identity"
)

func roles(rs ...identity.Role) identity.RoleSet {
	set := identity.RoleSet{}
	for _, r := range rs {
		set.Add(r)
	}
	return set
}

func TestCheckAllowsKnownEdge(t *testing.T) {
	err := Orders.Check(OrderPending, OrderInProgress, roles(identity.RoleFixer), "")
	require.NoError(t, err)
}

func TestCheckRejectsUnknownEdge(t *testing.T) {
	err := Orders.Check(OrderPending, OrderSettled, roles(identity.RoleAdmin), "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidTransition, apperr.CodeOf(err))
}

func TestCheckRejectsWrongActor(t *testing.T) {
	err := Orders.Check(OrderPaid, OrderSettled, roles(identity.RoleClient), "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestCheckRequiresReasonOnRejectionEdges(t *testing.T) {
	err := Agents.Check(AgentPending, AgentRejected, roles(identity.RoleAdmin), "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	err = Agents.Check(AgentPending, AgentRejected, roles(identity.RoleAdmin), "   ")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	err = Agents.Check(AgentPending, AgentRejected, roles(identity.RoleAdmin), "incomplete documents")
	assert.NoError(t, err)
}

func TestUserModerationNeedsReason(t *testing.T) {
	// the reason lands in users.status_reason, so the edge must insist on one
	err := Users.Check(UserActive, UserSuspended, roles(identity.RoleAdmin), "")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
	err = Users.Check(UserActive, UserRejected, roles(identity.RoleAdmin), "")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	require.NoError(t, Users.Check(UserActive, UserSuspended, roles(identity.RoleAdmin), "chargeback abuse"))
	// reinstating needs no reason and clears the stored one
	require.NoError(t, Users.Check(UserSuspended, UserActive, roles(identity.RoleAdmin), ""))
}

func TestAgentTerminalStates(t *testing.T) {
	assert.True(t, Agents.IsTerminal(AgentRejected))
	assert.True(t, Agents.IsTerminal(AgentBanned))
	assert.False(t, Agents.IsTerminal(AgentSuspended))
}

func TestOrderLifecyclePath(t *testing.T) {
	assert.True(t, Orders.CanTransition(OrderPending, OrderInProgress))
	assert.True(t, Orders.CanTransition(OrderInProgress, OrderCompleted))
	assert.True(t, Orders.CanTransition(OrderCompleted, OrderPaid))
	assert.True(t, Orders.CanTransition(OrderPaid, OrderSettled))

	// cancel is only possible before work starts
	assert.True(t, Orders.CanTransition(OrderPending, OrderCancelled))
	assert.False(t, Orders.CanTransition(OrderInProgress, OrderCancelled))
	assert.False(t, Orders.CanTransition(OrderCompleted, OrderCancelled))

	assert.True(t, Orders.IsTerminal(OrderSettled))
	assert.True(t, Orders.IsTerminal(OrderCancelled))
}

func TestBadgeResubmissionLoop(t *testing.T) {
	assert.True(t, Badges.CanTransition(BadgeMoreInfoNeeded, BadgePending))
	assert.True(t, Badges.IsTerminal(BadgeApproved))
	assert.True(t, Badges.IsTerminal(BadgeRejected))
}

func TestBadgePaymentConfirmationIsAdminOnly(t *testing.T) {
	// an applicant must not be able to mark their own fee as received
	err := Badges.Check(BadgePending, BadgePaymentReceived, roles(identity.RoleFixer), "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	assert.NoError(t, Badges.Check(BadgePending, BadgePaymentReceived, roles(identity.RoleAdmin), ""))
}

func TestGigReviewEdges(t *testing.T) {
	require.NoError(t, Gigs.Check(GigDraft, GigPendingReview, roles(identity.RoleAgent), ""))
	require.NoError(t, Gigs.Check(GigDraft, GigPendingReview, roles(identity.RoleFixer), ""))

	err := Gigs.Check(GigPendingReview, GigActive, roles(identity.RoleFixer), "")
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
	assert.NoError(t, Gigs.Check(GigPendingReview, GigActive, roles(identity.RoleAdmin), ""))
}

func TestTargets(t *testing.T) {
	targets := Requests.Targets(RequestApproved)
	assert.ElementsMatch(t, []Status{RequestAccepted, RequestCancelled}, targets)
	assert.Empty(t, Requests.Targets(RequestCancelled))
}
