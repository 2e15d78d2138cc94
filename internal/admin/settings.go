package admin

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/db"
	"github.com/fixhub-app/fixhub/internal/identity"
)

// validateSetting rejects values the accountant would otherwise have to
// fall back from at read time.
func validateSetting(key, value string) error {
	switch key {
	case "platform_commission_percentage", "commission_refund_percentage":
		d, err := decimal.NewFromString(value)
		if err != nil || d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
			return apperr.Newf(apperr.CodeValidation, "%s must be a fraction between 0 and 1", key)
		}
	case "auto_release_escrow_days":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return apperr.Newf(apperr.CodeValidation, "%s must be a positive integer", key)
		}
	default:
		return apperr.Newf(apperr.CodeValidation, "unknown setting %q", key)
	}
	return nil
}

// ListSettings returns every platform setting.
func ListSettings(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	rows, err := db.Conn.Query(context.Background(),
		`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to list settings"))
	}
	defer rows.Close()

	out := echo.Map{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to scan setting"))
		}
		out[k] = v
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": out})
}

// UpdateSetting changes one platform setting. New values only affect orders
// created or settled after the write; splits already fixed on existing
// orders keep their original numbers.
func UpdateSetting(c echo.Context) error {
	if _, err := identity.RequireRole(c, identity.RoleAdmin); err != nil {
		return apperr.Respond(c, err)
	}

	key := c.Param("key")
	var req struct {
		Value string `json:"value"`
	}
	if err := c.Bind(&req); err != nil || req.Value == "" {
		return apperr.Respond(c, apperr.New(apperr.CodeValidation, "value is required"))
	}
	if err := validateSetting(key, req.Value); err != nil {
		return apperr.Respond(c, err)
	}

	tag, err := db.Conn.Exec(context.Background(),
		`UPDATE settings SET value = $1, updated_at = NOW() WHERE key = $2`, req.Value, key)
	if err != nil {
		return apperr.Respond(c, apperr.Wrap(err, apperr.CodeUnexpected, "failed to update setting"))
	}
	if tag.RowsAffected() == 0 {
		return apperr.Respond(c, apperr.New(apperr.CodeNotFound, "setting not found"))
	}
	return c.JSON(http.StatusOK, echo.Map{key: req.Value})
}
