package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail   = "email:welcome"
	TaskMagicLink      = "email:magic_link"
	TaskAgentDecision  = "email:agent_decision"
	TaskGigDecision    = "email:gig_decision"
	TaskBadgeDecision  = "email:badge_decision"
	TaskOrderEvent     = "email:order_event"
	TaskAdminAlert     = "email:admin_alert"
	TaskQuoteReceived  = "email:quote_received"
	TaskRosterDecision = "email:roster_decision"
)

// EmailEnvelope is the common shape for email-like notifications. EventID is
// assigned at enqueue time and carried through to delivery logs so one event
// can be traced across the queue.
type EmailEnvelope struct {
	EventID string `json:"event_id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// WelcomeEmailPayload greets a new user.
type WelcomeEmailPayload struct {
	UserID   string        `json:"user_id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// MagicLinkPayload carries a one-time login link.
type MagicLinkPayload struct {
	UserID   string        `json:"user_id"`
	Email    string        `json:"email"`
	LoginURL string        `json:"login_url"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// DecisionPayload covers admin decisions on agents, gigs, badges and roster
// entries: approved, rejected, banned, suspended, info requested.
type DecisionPayload struct {
	EntityID string        `json:"entity_id"`
	UserID   string        `json:"user_id"`
	Email    string        `json:"email"`
	Decision string        `json:"decision"`
	Reason   string        `json:"reason,omitempty"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// OrderEventPayload covers order lifecycle notifications.
type OrderEventPayload struct {
	OrderID  string        `json:"order_id"`
	ClientID string        `json:"client_id"`
	FixerID  string        `json:"fixer_id"`
	Email    string        `json:"email"`
	Event    string        `json:"event"`
	Amount   int64         `json:"amount"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// AdminAlertPayload flags something for the operations inbox.
type AdminAlertPayload struct {
	Severity string        `json:"severity"`
	Message  string        `json:"message"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}
