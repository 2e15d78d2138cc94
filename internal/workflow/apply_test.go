package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixhub-app/fixhub/internal/apperr"
)

type fakeExecer struct {
	tag  pgconn.CommandTag
	err  error
	sql  string
	args []any
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	f.args = args
	return f.tag, f.err
}

func TestApplyUpdatesRow(t *testing.T) {
	q := &fakeExecer{tag: pgconn.NewCommandTag("UPDATE 1")}

	err := Orders.Apply(context.Background(), q, "order-1", OrderPaid, OrderSettled)
	require.NoError(t, err)

	assert.Contains(t, q.sql, "UPDATE orders")
	assert.Contains(t, q.sql, "AND status = $3")
	assert.Equal(t, []any{"SETTLED", "order-1", "PAID"}, q.args)
}

func TestApplyStaleStateLosesRace(t *testing.T) {
	// zero rows affected means another transition got there first
	q := &fakeExecer{tag: pgconn.NewCommandTag("UPDATE 0")}

	err := Orders.Apply(context.Background(), q, "order-1", OrderPaid, OrderSettled)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidTransition, apperr.CodeOf(err))
	assert.Contains(t, err.Error(), "no longer PAID")
}

func TestApplyPropagatesExecError(t *testing.T) {
	q := &fakeExecer{err: errors.New("connection reset")}

	err := Orders.Apply(context.Background(), q, "order-1", OrderPaid, OrderSettled)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnexpected, apperr.CodeOf(err))
}
