package alerts

import (
	"context"

	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/logger"
)

// CreateNotification writes an in-app notification row. Best effort: callers
// ignore the returned error after a committed transition, but it is logged.
func CreateNotification(userID, ntype, title, body string, reference *string) error {
	_, err := db.Conn.Exec(context.Background(),
		`INSERT INTO notifications (user_id, type, title, body, reference)
         VALUES ($1, $2, $3, $4, $5)`,
		userID, ntype, title, body, reference,
	)
	if err != nil {
		logger.Log.Error().Err(err).Str("type", ntype).Msg("failed to create notification")
	}
	return err
}
