package ledger

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fixhub-app/fixhub/internal/logger"
)

// Settings keys consumed by the accountant.
const (
	KeyPlatformCommission = "platform_commission_percentage"
	KeyCommissionRefund   = "commission_refund_percentage"
	KeyAutoReleaseDays    = "auto_release_escrow_days"
)

// Defaults applied when a key is missing or its stored value is out of range.
var (
	DefaultPlatformCommission = decimal.RequireFromString("0.20")
	DefaultCommissionRefund   = decimal.RequireFromString("0.50")
	DefaultAutoReleaseDays    = 7
)

// Querier is satisfied by both pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func settingValue(ctx context.Context, q Querier, key string) (string, bool) {
	var value string
	err := q.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// fractionSetting loads a decimal setting constrained to [0,1]. Stored values
// outside the range fall back to the default so a corrupted settings row can
// never produce a negative or over-100% split.
func fractionSetting(ctx context.Context, q Querier, key string, fallback decimal.Decimal) decimal.Decimal {
	raw, ok := settingValue(ctx, q, key)
	if !ok {
		return fallback
	}
	return ParseFraction(key, raw, fallback)
}

// ParseFraction validates a stored fraction string against [0,1].
func ParseFraction(key, raw string, fallback decimal.Decimal) decimal.Decimal {
	v, err := decimal.NewFromString(raw)
	if err != nil || v.IsNegative() || v.GreaterThan(decimal.NewFromInt(1)) {
		logger.Log.Warn().Str("key", key).Str("value", raw).Msg("setting out of range, using default")
		return fallback
	}
	return v
}

// ParseDays validates a stored day count as a positive integer.
func ParseDays(key, raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		logger.Log.Warn().Str("key", key).Str("value", raw).Msg("setting out of range, using default")
		return fallback
	}
	return n
}

// PlatformCommission returns the platform-wide commission rate.
func PlatformCommission(ctx context.Context, q Querier) decimal.Decimal {
	return fractionSetting(ctx, q, KeyPlatformCommission, DefaultPlatformCommission)
}

// CommissionRefund returns the fraction of accrued commission reversible on
// post-accrual cancellation.
func CommissionRefund(ctx context.Context, q Querier) decimal.Decimal {
	return fractionSetting(ctx, q, KeyCommissionRefund, DefaultCommissionRefund)
}

// AutoReleaseDays returns the escrow auto-release window.
func AutoReleaseDays(ctx context.Context, q Querier) int {
	raw, ok := settingValue(ctx, q, KeyAutoReleaseDays)
	if !ok {
		return DefaultAutoReleaseDays
	}
	return ParseDays(KeyAutoReleaseDays, raw, DefaultAutoReleaseDays)
}
