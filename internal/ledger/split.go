package ledger

import "github.com/shopspring/decimal"

// Split is the money breakdown of one settled order, in minor currency units.
// PlatformFee and AgentCommission are rounded half-up; FixerPayout is the
// exact remainder, so the parts always sum back to Total.
type Split struct {
	Total           int64
	PlatformFee     int64
	FixerAmount     int64 // fixer share before agent commission
	AgentCommission int64
	FixerPayout     int64 // what the fixer actually receives
}

// ComputeSplit derives the settlement breakdown. platformRate is a fraction
// in [0,1]; agentPct is a percentage in [0,100] and zero when the order was
// not delegated through an agent.
func ComputeSplit(total int64, platformRate, agentPct decimal.Decimal) Split {
	totalDec := decimal.NewFromInt(total)

	fee := totalDec.Mul(platformRate).Round(0).IntPart()
	if fee < 0 {
		fee = 0
	}
	if fee > total {
		fee = total
	}
	fixerAmount := total - fee

	var commission int64
	if agentPct.IsPositive() {
		commission = decimal.NewFromInt(fixerAmount).
			Mul(agentPct).
			Div(decimal.NewFromInt(100)).
			Round(0).IntPart()
		if commission > fixerAmount {
			commission = fixerAmount
		}
	}

	return Split{
		Total:           total,
		PlatformFee:     fee,
		FixerAmount:     fixerAmount,
		AgentCommission: commission,
		FixerPayout:     fixerAmount - commission,
	}
}

// RefundableCommission computes the reversible portion of an accrued
// commission when an order is cancelled after accrual. fraction is in [0,1].
func RefundableCommission(accrued int64, fraction decimal.Decimal) int64 {
	if accrued <= 0 {
		return 0
	}
	refund := decimal.NewFromInt(accrued).Mul(fraction).Round(0).IntPart()
	if refund > accrued {
		return accrued
	}
	if refund < 0 {
		return 0
	}
	return refund
}
