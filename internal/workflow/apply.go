package workflow

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fixhub-app/fixhub/internal/apperr"
)

// Execer is satisfied by both pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var statusTables = map[string]string{
	"user":            "users",
	"agent":           "agents",
	"gig":             "gigs",
	"service request": "service_requests",
	"order":           "orders",
	"badge request":   "badge_requests",
}

// Apply writes the status change with an optimistic precondition: the row
// must still be in the expected from-status. Two concurrent transitions on
// the same row can therefore never both succeed; the loser sees a stale-state
// error. Calling this inside the same transaction as any ledger effect makes
// state change and money movement atomic.
func (m *Machine) Apply(ctx context.Context, q Execer, id string, from, to Status) error {
	table, ok := statusTables[m.Entity]
	if !ok {
		return apperr.Newf(apperr.CodeUnexpected, "no status table for %s", m.Entity)
	}
	tag, err := q.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`, table),
		string(to), id, string(from),
	)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeUnexpected, "failed to update "+m.Entity)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Newf(apperr.CodeInvalidTransition,
			"%s is no longer %s", m.Entity, from)
	}
	return nil
}
