package alerts

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
)

// ListNotifications returns the current user's notifications, newest first.
func ListNotifications(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT id::text, type, title, COALESCE(body,''), reference::text, created_at, read_at
         FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT 100`, ident.UserID,
	)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load notifications"))
	}
	defer rows.Close()

	items := []map[string]interface{}{}
	for rows.Next() {
		var id, ntype, title, body string
		var reference *string
		var createdAt time.Time
		var readAt *time.Time
		if err := rows.Scan(&id, &ntype, &title, &body, &reference, &createdAt, &readAt); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to read notification"))
		}
		item := map[string]interface{}{
			"id":         id,
			"type":       ntype,
			"title":      title,
			"body":       body,
			"reference":  reference,
			"created_at": createdAt.UTC().Format(time.RFC3339),
		}
		if readAt != nil {
			item["read_at"] = readAt.UTC().Format(time.RFC3339)
		} else {
			item["read_at"] = nil
		}
		items = append(items, item)
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items})
}

// MarkNotificationRead marks one of the caller's notifications as read.
func MarkNotificationRead(c echo.Context) error {
	ident, err := identity.Require(c)
	if err != nil {
		return apperr.Respond(c, err)
	}
	id := c.Param("id")

	tag, err := db.Conn.Exec(context.Background(),
		`UPDATE notifications SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		id, ident.UserID,
	)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to mark read"))
	}
	if tag.RowsAffected() == 0 {
		return apperr.Respond(c, apperr.New(apperr.CodeNotFound, "notification not found"))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "marked read"})
}
