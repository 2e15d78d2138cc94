package alerts

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// newEnvelope stamps every outgoing notification with a fresh event id so a
// delivery can be traced from enqueue to the worker's logs.
func newEnvelope(to, subject, body string) EmailEnvelope {
	return EmailEnvelope{EventID: uuid.NewString(), To: to, Subject: subject, Body: body}
}

// ensureClient returns a usable client instance
func ensureClient() *asynq.Client {
	if client == nil {
		Init()
	}
	return client
}

func enqueue(taskType string, payload any, queue string) error {
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(taskType, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue(queue))
	return err
}

func appURL() string {
	base := os.Getenv("APP_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	return strings.TrimRight(base, "/")
}

// EnqueueWelcomeEmail schedules a welcome email to the user
func EnqueueWelcomeEmail(userID, email, name string) error {
	env := newEnvelope(email,
		fmt.Sprintf("Welcome to FixHub, %s!", name),
		fmt.Sprintf("Hi %s, thanks for joining FixHub.\n\nOpen FixHub: %s", name, appURL()))
	return enqueue(TaskWelcomeEmail,
		WelcomeEmailPayload{UserID: userID, Name: name, Email: email, Envelope: env, SentAt: time.Now()},
		"emails")
}

// EnqueueMagicLink sends a one-time login link. The link expires in 15
// minutes; the expiry is enforced at verification, not here.
func EnqueueMagicLink(userID, email, token string) error {
	loginURL := fmt.Sprintf("%s/auth/magic-link/verify?token=%s", appURL(), token)
	env := newEnvelope(email, "Your FixHub sign-in link",
		fmt.Sprintf("Open the link below to sign in:\n%s\n\nThis link expires in 15 minutes and can be used once.", loginURL))
	return enqueue(TaskMagicLink,
		MagicLinkPayload{UserID: userID, Email: email, LoginURL: loginURL, Envelope: env, SentAt: time.Now()},
		"emails")
}

// EnqueueAgentDecision notifies an agent of an admin decision on their
// application or account (approved, rejected, suspended, banned, reinstated).
func EnqueueAgentDecision(agentID, userID, email, decision, reason string) error {
	body := fmt.Sprintf("Your agent account has been %s.", strings.ToLower(decision))
	if reason != "" {
		body += "\nReason: " + reason
	}
	env := newEnvelope(email, "Agent account update", body)
	return enqueue(TaskAgentDecision,
		DecisionPayload{EntityID: agentID, UserID: userID, Email: email, Decision: decision, Reason: reason, Envelope: env, SentAt: time.Now()},
		"emails")
}

// EnqueueGigDecision notifies a fixer that their gig was approved or sent
// back to draft.
func EnqueueGigDecision(gigID, userID, email, decision, reason string) error {
	body := fmt.Sprintf("Your gig has been %s.", strings.ToLower(decision))
	if reason != "" {
		body += "\nReason: " + reason
	}
	env := newEnvelope(email, "Gig review update", body)
	return enqueue(TaskGigDecision,
		DecisionPayload{EntityID: gigID, UserID: userID, Email: email, Decision: decision, Reason: reason, Envelope: env, SentAt: time.Now()},
		"emails")
}

// EnqueueBadgeDecision notifies a fixer of a badge request decision.
func EnqueueBadgeDecision(badgeID, userID, email, decision, reason string) error {
	body := fmt.Sprintf("Your badge request has been %s.", strings.ToLower(decision))
	if reason != "" {
		body += "\nNotes: " + reason
	}
	env := newEnvelope(email, "Badge request update", body)
	return enqueue(TaskBadgeDecision,
		DecisionPayload{EntityID: badgeID, UserID: userID, Email: email, Decision: decision, Reason: reason, Envelope: env, SentAt: time.Now()},
		"emails")
}

// EnqueueRosterDecision notifies a fixer that an agent invited them, or that
// the relationship was vetted.
func EnqueueRosterDecision(relID, userID, email, decision string) error {
	env := newEnvelope(email, "Agent roster update",
		fmt.Sprintf("Your agent relationship is now %s.", strings.ToLower(decision)))
	return enqueue(TaskRosterDecision,
		DecisionPayload{EntityID: relID, UserID: userID, Email: email, Decision: decision, Envelope: env, SentAt: time.Now()},
		"emails")
}

// EnqueueQuoteReceived notifies a client that a fixer quoted their request.
func EnqueueQuoteReceived(quoteID, clientID, email string, amount int64) error {
	env := newEnvelope(email, "New quote on your request",
		fmt.Sprintf("A fixer has quoted %d on your service request. Review it on FixHub.", amount))
	return enqueue(TaskQuoteReceived,
		DecisionPayload{EntityID: quoteID, UserID: clientID, Email: email, Decision: "QUOTED", Envelope: env, SentAt: time.Now()},
		"emails")
}

// EnqueueOrderEvent notifies a party about an order lifecycle event
// (created, started, completed, cancelled, paid, settled).
func EnqueueOrderEvent(orderID, clientID, fixerID, email, event string, amount int64) error {
	env := newEnvelope(email, "Order "+strings.ToLower(event),
		fmt.Sprintf("Order %s is now %s. Amount %d.", orderID, strings.ToLower(event), amount))
	return enqueue(TaskOrderEvent,
		OrderEventPayload{OrderID: orderID, ClientID: clientID, FixerID: fixerID, Email: email, Event: event, Amount: amount, Envelope: env, SentAt: time.Now()},
		"emails")
}

// EnqueueAdminAlert sends an alert to the operations inbox.
func EnqueueAdminAlert(severity, message string) error {
	to := os.Getenv("ADMIN_ALERT_EMAIL")
	env := newEnvelope(to, "Admin Alert", message)
	return enqueue(TaskAdminAlert,
		AdminAlertPayload{Severity: severity, Message: message, Envelope: env, SentAt: time.Now()},
		"alerts")
}
