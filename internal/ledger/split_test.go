package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func pct(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeSplitNoAgent(t *testing.T) {
	s := ComputeSplit(10000, pct("0.20"), decimal.Zero)

	assert.EqualValues(t, 2000, s.PlatformFee)
	assert.EqualValues(t, 8000, s.FixerAmount)
	assert.EqualValues(t, 0, s.AgentCommission)
	assert.EqualValues(t, 8000, s.FixerPayout)
}

func TestComputeSplitWithAgent(t *testing.T) {
	s := ComputeSplit(10000, pct("0.20"), pct("15"))

	assert.EqualValues(t, 2000, s.PlatformFee)
	assert.EqualValues(t, 8000, s.FixerAmount)
	assert.EqualValues(t, 1200, s.AgentCommission)
	assert.EqualValues(t, 6800, s.FixerPayout)
}

func TestComputeSplitPartsAlwaysSum(t *testing.T) {
	// awkward totals that round both halves
	for _, total := range []int64{1, 3, 99, 101, 333, 9999, 12345} {
		s := ComputeSplit(total, pct("0.20"), pct("12.5"))
		assert.Equal(t, total, s.PlatformFee+s.FixerAmount, "total %d", total)
		assert.Equal(t, s.FixerAmount, s.AgentCommission+s.FixerPayout, "total %d", total)
		assert.GreaterOrEqual(t, s.FixerPayout, int64(0), "total %d", total)
	}
}

func TestComputeSplitRoundsHalfUp(t *testing.T) {
	// 15 * 0.20 = 3 exactly; 17 * 0.20 = 3.4 rounds down; 13 * 0.50 = 6.5 rounds up
	assert.EqualValues(t, 3, ComputeSplit(15, pct("0.20"), decimal.Zero).PlatformFee)
	assert.EqualValues(t, 3, ComputeSplit(17, pct("0.20"), decimal.Zero).PlatformFee)
	assert.EqualValues(t, 7, ComputeSplit(13, pct("0.50"), decimal.Zero).PlatformFee)
}

func TestComputeSplitFullCommission(t *testing.T) {
	s := ComputeSplit(100, pct("0"), pct("100"))
	assert.EqualValues(t, 100, s.AgentCommission)
	assert.EqualValues(t, 0, s.FixerPayout)
}

func TestComputeSplitZeroRate(t *testing.T) {
	s := ComputeSplit(500, decimal.Zero, decimal.Zero)
	assert.EqualValues(t, 0, s.PlatformFee)
	assert.EqualValues(t, 500, s.FixerPayout)
}

func TestRefundableCommission(t *testing.T) {
	assert.EqualValues(t, 600, RefundableCommission(1200, pct("0.50")))
	assert.EqualValues(t, 0, RefundableCommission(0, pct("0.50")))
	assert.EqualValues(t, 0, RefundableCommission(-5, pct("0.50")))
	// never refunds more than accrued
	assert.EqualValues(t, 100, RefundableCommission(100, pct("1")))
	// half-up on odd amounts
	assert.EqualValues(t, 51, RefundableCommission(101, pct("0.50")))
}
