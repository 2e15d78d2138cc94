package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseFraction(t *testing.T) {
	fallback := decimal.RequireFromString("0.20")

	assert.True(t, ParseFraction("k", "0.35", fallback).Equal(decimal.RequireFromString("0.35")))
	assert.True(t, ParseFraction("k", "0", fallback).Equal(decimal.Zero))
	assert.True(t, ParseFraction("k", "1", fallback).Equal(decimal.NewFromInt(1)))

	// out of range or garbage falls back
	assert.True(t, ParseFraction("k", "1.5", fallback).Equal(fallback))
	assert.True(t, ParseFraction("k", "-0.1", fallback).Equal(fallback))
	assert.True(t, ParseFraction("k", "twenty", fallback).Equal(fallback))
	assert.True(t, ParseFraction("k", "", fallback).Equal(fallback))
}

func TestParseDays(t *testing.T) {
	assert.Equal(t, 14, ParseDays("k", "14", 7))
	assert.Equal(t, 7, ParseDays("k", "0", 7))
	assert.Equal(t, 7, ParseDays("k", "-3", 7))
	assert.Equal(t, 7, ParseDays("k", "soon", 7))
}
