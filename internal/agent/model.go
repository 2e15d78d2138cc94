package agent

import "time"

// Agent is an intermediary managing a roster of fixers and clients for a
// commission, scoped to admin-approved neighborhoods.
type Agent struct {
	ID                       string    `json:"id"`
	UserID                   string    `json:"user_id"`
	BusinessName             string    `json:"business_name"`
	Status                   string    `json:"status"`
	StatusReason             string    `json:"status_reason,omitempty"`
	RequestedNeighborhoodIDs []string  `json:"requested_neighborhood_ids"`
	ApprovedNeighborhoodIDs  []string  `json:"approved_neighborhood_ids"`
	CommissionPercentage     string    `json:"commission_percentage"`
	FixerBonusEnabled        bool      `json:"fixer_bonus_enabled"`
	WalletBalance            int64     `json:"wallet_balance"`
	TotalEarned              int64     `json:"total_earned"`
	CreatedAt                time.Time `json:"created_at"`
}

// RosterEntry is one agent-fixer or agent-client relationship.
type RosterEntry struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agent_id"`
	MemberID  string    `json:"member_id"`
	VetStatus string    `json:"vet_status"`
	CreatedAt time.Time `json:"created_at"`
}

// Commission is one immutable ledger row from a settled delegated order.
type Commission struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"order_id"`
	FixerID        string    `json:"fixer_id"`
	Amount         int64     `json:"amount"`
	Percentage     string    `json:"percentage"`
	OrderAmount    int64     `json:"order_amount"`
	Status         string    `json:"status"`
	ReversedAmount int64     `json:"reversed_amount"`
	CreatedAt      time.Time `json:"created_at"`
}
