package workflow

import "github.com/fixhub-app/fixhub/internal/identity"

// User account lifecycle.
const (
	UserPending   Status = "PENDING"
	UserActive    Status = "ACTIVE"
	UserSuspended Status = "SUSPENDED"
	UserRejected  Status = "REJECTED"
)

// Agent lifecycle. REJECTED and BANNED are terminal.
const (
	AgentPending   Status = "PENDING"
	AgentActive    Status = "ACTIVE"
	AgentSuspended Status = "SUSPENDED"
	AgentRejected  Status = "REJECTED"
	AgentBanned    Status = "BANNED"
)

// Gig lifecycle.
const (
	GigDraft         Status = "DRAFT"
	GigPendingReview Status = "PENDING_REVIEW"
	GigActive        Status = "ACTIVE"
	GigPaused        Status = "PAUSED"
)

// ServiceRequest lifecycle.
const (
	RequestPending   Status = "PENDING"
	RequestApproved  Status = "APPROVED"
	RequestAccepted  Status = "ACCEPTED"
	RequestCancelled Status = "CANCELLED"
)

// Order lifecycle. CANCELLED and SETTLED are terminal.
const (
	OrderPending    Status = "PENDING"
	OrderInProgress Status = "IN_PROGRESS"
	OrderCompleted  Status = "COMPLETED"
	OrderCancelled  Status = "CANCELLED"
	OrderPaid       Status = "PAID"
	OrderSettled    Status = "SETTLED"
)

// BadgeRequest lifecycle. APPROVED and REJECTED are terminal.
const (
	BadgePending         Status = "PENDING"
	BadgePaymentReceived Status = "PAYMENT_RECEIVED"
	BadgeMoreInfoNeeded  Status = "MORE_INFO_NEEDED"
	BadgeApproved        Status = "APPROVED"
	BadgeRejected        Status = "REJECTED"
)

var (
	admin      = []identity.Role{identity.RoleAdmin}
	client     = []identity.Role{identity.RoleClient}
	fixer      = []identity.Role{identity.RoleFixer}
	fixerAdmin = []identity.Role{identity.RoleFixer, identity.RoleAdmin}
	anyone     = []identity.Role{identity.RoleClient, identity.RoleFixer, identity.RoleAgent, identity.RoleAdmin}
)

// Users verifies itself from PENDING (via magic link); admins suspend, reject
// and reinstate.
var Users = &Machine{
	Entity: "user",
	Edges: []Edge{
		{From: UserPending, To: UserActive, Actors: anyone},
		{From: UserActive, To: UserSuspended, Actors: admin, NeedsReason: true},
		{From: UserActive, To: UserRejected, Actors: admin, NeedsReason: true},
		{From: UserPending, To: UserRejected, Actors: admin, NeedsReason: true},
		{From: UserSuspended, To: UserActive, Actors: admin},
		{From: UserRejected, To: UserActive, Actors: admin},
	},
}

// Agents: approval requires non-empty approved neighborhoods (checked by the
// handler before the transition). Nothing leads out of REJECTED or BANNED.
var Agents = &Machine{
	Entity: "agent",
	Edges: []Edge{
		{From: AgentPending, To: AgentActive, Actors: admin},
		{From: AgentPending, To: AgentRejected, Actors: admin, NeedsReason: true},
		{From: AgentActive, To: AgentSuspended, Actors: admin, NeedsReason: true},
		{From: AgentActive, To: AgentBanned, Actors: admin, NeedsReason: true},
		{From: AgentSuspended, To: AgentActive, Actors: admin},
		{From: AgentSuspended, To: AgentBanned, Actors: admin, NeedsReason: true},
	},
}

// Gigs: fixers (or their agents) submit drafts; only admins approve or
// reject; pause/resume is owner- or admin-triggered.
var Gigs = &Machine{
	Entity: "gig",
	Edges: []Edge{
		{From: GigDraft, To: GigPendingReview, Actors: []identity.Role{identity.RoleFixer, identity.RoleAgent}},
		{From: GigPendingReview, To: GigActive, Actors: admin},
		{From: GigPendingReview, To: GigDraft, Actors: admin, NeedsReason: true},
		{From: GigActive, To: GigPaused, Actors: fixerAdmin},
		{From: GigPaused, To: GigActive, Actors: fixerAdmin},
	},
}

// Requests: admins approve postings, clients accept quotes, and clients may
// cancel anything not yet ACCEPTED.
var Requests = &Machine{
	Entity: "service request",
	Edges: []Edge{
		{From: RequestPending, To: RequestApproved, Actors: admin},
		{From: RequestApproved, To: RequestAccepted, Actors: client},
		{From: RequestPending, To: RequestCancelled, Actors: client},
		{From: RequestApproved, To: RequestCancelled, Actors: client},
	},
}

// Orders: cancel only while PENDING; settlement is admin-triggered once the
// client has paid a completed order.
var Orders = &Machine{
	Entity: "order",
	Edges: []Edge{
		{From: OrderPending, To: OrderInProgress, Actors: fixer},
		{From: OrderPending, To: OrderCancelled, Actors: client},
		{From: OrderInProgress, To: OrderCompleted, Actors: fixer},
		{From: OrderCompleted, To: OrderPaid, Actors: client},
		{From: OrderPaid, To: OrderSettled, Actors: admin},
	},
}

// Badges: an admin confirms the verification fee after checking the payment
// record, then decides from PAYMENT_RECEIVED. The applicant never moves their
// own request forward; MORE_INFO_NEEDED loops back to PENDING on resubmission.
var Badges = &Machine{
	Entity: "badge request",
	Edges: []Edge{
		{From: BadgePending, To: BadgePaymentReceived, Actors: admin},
		{From: BadgePaymentReceived, To: BadgeApproved, Actors: admin},
		{From: BadgePaymentReceived, To: BadgeRejected, Actors: admin, NeedsReason: true},
		{From: BadgePaymentReceived, To: BadgeMoreInfoNeeded, Actors: admin, NeedsReason: true},
		{From: BadgePending, To: BadgeRejected, Actors: admin, NeedsReason: true},
		{From: BadgePending, To: BadgeMoreInfoNeeded, Actors: admin, NeedsReason: true},
		{From: BadgeMoreInfoNeeded, To: BadgePending, Actors: fixer},
	},
}
