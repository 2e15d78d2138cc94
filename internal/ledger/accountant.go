package ledger

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fixhub-app/fixhub/internal/apperr"
)

// Delegation identifies the agent relationship behind a delegated order.
type Delegation struct {
	AgentFixerID string
	AgentID      string
	AgentUserID  string
	Percentage   decimal.Decimal
}

// Result is what a settlement actually moved, for the API response.
type Result struct {
	Split
	AgentID string `json:"agent_id,omitempty"`
}

// findDelegation looks up the AgentGig or AgentQuote join behind the order's
// source. Returns nil when the order was not created through an agent.
func findDelegation(ctx context.Context, tx pgx.Tx, gigID, quoteID *string) (*Delegation, error) {
	var row pgx.Row
	switch {
	case gigID != nil:
		row = tx.QueryRow(ctx, `
            SELECT af.id::text, a.id::text, a.user_id::text, a.commission_percentage
            FROM agent_gigs ag
            JOIN agent_fixers af ON af.id = ag.agent_fixer_id
            JOIN agents a ON a.id = af.agent_id
            WHERE ag.gig_id = $1`, *gigID)
	case quoteID != nil:
		row = tx.QueryRow(ctx, `
            SELECT af.id::text, a.id::text, a.user_id::text, a.commission_percentage
            FROM agent_quotes aq
            JOIN agent_fixers af ON af.id = aq.agent_fixer_id
            JOIN agents a ON a.id = af.agent_id
            WHERE aq.quote_id = $1`, *quoteID)
	default:
		return nil, nil
	}

	var d Delegation
	var pct string
	err := row.Scan(&d.AgentFixerID, &d.AgentID, &d.AgentUserID, &pct)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to resolve delegation")
	}
	d.Percentage, err = decimal.NewFromString(pct)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "bad commission percentage")
	}
	return &d, nil
}

func ensurePurse(ctx context.Context, tx pgx.Tx, userID string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO purses (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeUnexpected, "failed to ensure purse")
	}
	return nil
}

// Settle moves the money for one order. It must run inside the same
// transaction that applies the PAID → SETTLED status change; the optimistic
// status precondition plus the unique (order_id, agent_fixer_id) index on
// agent_commissions make double-crediting structurally impossible.
//
// All purse writes are relative adjustments at the storage layer, never
// read-modify-write from application memory, so concurrent settlements
// against the same purse cannot lose updates.
func Settle(ctx context.Context, tx pgx.Tx, orderID string) (*Result, error) {
	var (
		total, fee, fixerAmount int64
		fixerID                 string
		gigID, quoteID          *string
	)
	err := tx.QueryRow(ctx, `
        SELECT total_amount, platform_fee, fixer_amount, fixer_id::text, gig_id::text, quote_id::text
        FROM orders WHERE id = $1`, orderID,
	).Scan(&total, &fee, &fixerAmount, &fixerID, &gigID, &quoteID)
	if err == pgx.ErrNoRows {
		return nil, apperr.New(apperr.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load order")
	}

	delegation, err := findDelegation(ctx, tx, gigID, quoteID)
	if err != nil {
		return nil, err
	}

	// The fee split was fixed at order creation; only the agent commission is
	// derived here, from the fixer share.
	split := Split{Total: total, PlatformFee: fee, FixerAmount: fixerAmount}
	if delegation != nil {
		split.AgentCommission = decimal.NewFromInt(fixerAmount).
			Mul(delegation.Percentage).
			Div(decimal.NewFromInt(100)).
			Round(0).IntPart()
		if split.AgentCommission > fixerAmount {
			split.AgentCommission = fixerAmount
		}
	}
	split.FixerPayout = fixerAmount - split.AgentCommission

	res := &Result{Split: split}

	if delegation != nil && split.AgentCommission > 0 {
		res.AgentID = delegation.AgentID

		// Immutable snapshot row; amount and percentage are never recomputed.
		_, err = tx.Exec(ctx, `
            INSERT INTO agent_commissions
                (order_id, agent_fixer_id, agent_id, fixer_id, amount, percentage, order_amount)
            VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			orderID, delegation.AgentFixerID, delegation.AgentID, fixerID,
			split.AgentCommission, delegation.Percentage, total)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to record commission")
		}

		if err := ensurePurse(ctx, tx, delegation.AgentUserID); err != nil {
			return nil, err
		}
		_, err = tx.Exec(ctx, `
            UPDATE purses
            SET commission_balance = commission_balance + $1,
                total_revenue = total_revenue + $1,
                updated_at = NOW()
            WHERE user_id = $2`, split.AgentCommission, delegation.AgentUserID)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to credit agent purse")
		}
		_, err = tx.Exec(ctx, `
            UPDATE agents
            SET wallet_balance = wallet_balance + $1,
                total_earned = total_earned + $1,
                updated_at = NOW()
            WHERE id = $2`, split.AgentCommission, delegation.AgentID)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to credit agent wallet")
		}
	}

	if err := ensurePurse(ctx, tx, fixerID); err != nil {
		return nil, err
	}
	_, err = tx.Exec(ctx, `
        UPDATE purses
        SET available_balance = available_balance + $1,
            total_revenue = total_revenue + $2,
            updated_at = NOW()
        WHERE user_id = $3`, split.FixerPayout, split.FixerAmount, fixerID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to credit fixer purse")
	}

	_, err = tx.Exec(ctx, `
        UPDATE purses
        SET available_balance = available_balance + $1,
            total_revenue = total_revenue + $1,
            updated_at = NOW()
        WHERE user_id IS NULL`, split.PlatformFee)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnexpected, "failed to credit platform purse")
	}

	return res, nil
}

// ReverseCommission records the refundable fraction of an accrued commission
// when an order is unwound after settlement. The original ledger row is never
// mutated destructively; the adjustment lands in reversed_amount with the
// refund reason, and the row moves to PARTIALLY_REVERSED exactly once.
func ReverseCommission(ctx context.Context, tx pgx.Tx, orderID, reason string) (int64, error) {
	var (
		commissionID, agentID, agentUserID string
		accrued                            int64
	)
	err := tx.QueryRow(ctx, `
        SELECT ac.id::text, ac.agent_id::text, a.user_id::text, ac.amount
        FROM agent_commissions ac
        JOIN agents a ON a.id = ac.agent_id
        WHERE ac.order_id = $1 AND ac.status = 'ACCRUED'`, orderID,
	).Scan(&commissionID, &agentID, &agentUserID, &accrued)
	if err == pgx.ErrNoRows {
		return 0, nil // no commission accrued, nothing to reverse
	}
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeUnexpected, "failed to load commission")
	}

	fraction := CommissionRefund(ctx, tx)
	refund := RefundableCommission(accrued, fraction)
	if refund == 0 {
		return 0, nil
	}

	tag, err := tx.Exec(ctx, `
        UPDATE agent_commissions
        SET status = 'PARTIALLY_REVERSED', reversed_amount = $1, reversal_reason = $2
        WHERE id = $3 AND status = 'ACCRUED'`, refund, reason, commissionID)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeUnexpected, "failed to record reversal")
	}
	if tag.RowsAffected() == 0 {
		return 0, apperr.New(apperr.CodeConflict, "commission already reversed")
	}

	_, err = tx.Exec(ctx, `
        UPDATE purses
        SET commission_balance = commission_balance - $1, updated_at = NOW()
        WHERE user_id = $2`, refund, agentUserID)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeUnexpected, "failed to debit agent purse")
	}
	_, err = tx.Exec(ctx, `
        UPDATE agents
        SET wallet_balance = wallet_balance - $1, updated_at = NOW()
        WHERE id = $2`, refund, agentID)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeUnexpected, "failed to debit agent wallet")
	}
	_, err = tx.Exec(ctx, `
        UPDATE purses
        SET available_balance = available_balance + $1, updated_at = NOW()
        WHERE user_id IS NULL`, refund)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeUnexpected, "failed to credit platform purse")
	}

	return refund, nil
}
