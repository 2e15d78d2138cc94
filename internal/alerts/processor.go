package alerts

import (
	"context"
	"encoding/json"
	"os"

	"github.com/hibiken/asynq"

	"github.com/fixhub-app/fixhub/internal/logger"
)

var (
	client *asynq.Client
	server *asynq.Server
)

// Init starts the Asynq server and initializes a shared client. Delivery is
// best-effort: handlers log failures and the originating request is never
// rolled back for a lost email.
func Init() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		if host := os.Getenv("REDIS_HOST"); host != "" {
			port := os.Getenv("REDIS_PORT")
			if port == "" {
				port = "6379"
			}
			redisAddr = host + ":" + port
		} else {
			redisAddr = "127.0.0.1:6379"
		}
	}

	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client = asynq.NewClient(opts)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, handleEnvelopeTask)
	mux.HandleFunc(TaskMagicLink, handleEnvelopeTask)
	mux.HandleFunc(TaskAgentDecision, handleEnvelopeTask)
	mux.HandleFunc(TaskGigDecision, handleEnvelopeTask)
	mux.HandleFunc(TaskBadgeDecision, handleEnvelopeTask)
	mux.HandleFunc(TaskOrderEvent, handleEnvelopeTask)
	mux.HandleFunc(TaskQuoteReceived, handleEnvelopeTask)
	mux.HandleFunc(TaskRosterDecision, handleEnvelopeTask)
	mux.HandleFunc(TaskAdminAlert, handleAdminAlert)

	server = asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"emails": 10,
			"alerts": 5,
		},
	})
	go func() {
		if err := server.Run(mux); err != nil {
			logger.Log.Error().Err(err).Msg("asynq server stopped")
		}
	}()

	logger.Log.Info().Str("addr", redisAddr).Msg("asynq initialized")
}

// Close releases the client and stops the server.
func Close() {
	if client != nil {
		_ = client.Close()
	}
	if server != nil {
		server.Shutdown()
	}
}

// envelopeOnly extracts just the envelope from any payload shape.
type envelopeOnly struct {
	Envelope EmailEnvelope `json:"envelope"`
}

func handleEnvelopeTask(_ context.Context, t *asynq.Task) error {
	var p envelopeOnly
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.Log.Error().Err(err).Str("task", t.Type()).Msg("bad task payload")
		return nil // malformed payload, retrying won't help
	}
	if p.Envelope.To == "" {
		return nil
	}
	if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		logger.Log.Error().Err(err).Str("task", t.Type()).
			Str("event_id", p.Envelope.EventID).Str("to", p.Envelope.To).
			Msg("email delivery failed")
		return err // let asynq retry
	}
	logger.Log.Debug().Str("task", t.Type()).Str("event_id", p.Envelope.EventID).Msg("email delivered")
	return nil
}

func handleAdminAlert(_ context.Context, t *asynq.Task) error {
	var p AdminAlertPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return nil
	}
	logger.Log.Warn().Str("severity", p.Severity).Msg("admin alert: " + p.Message)
	if p.Envelope.To != "" {
		if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
			logger.Log.Error().Err(err).Msg("admin alert email failed")
		}
	}
	return nil
}
