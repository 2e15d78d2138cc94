package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixhub-app/fixhub/internal/apperr"
)

func TestNormalizeQuoteDefaultsToStandard(t *testing.T) {
	qt, fee, err := NormalizeQuote("", 0)
	require.NoError(t, err)
	assert.Equal(t, "STANDARD", qt)
	assert.Zero(t, fee)
}

func TestNormalizeQuoteDropsFeeOnStandard(t *testing.T) {
	qt, fee, err := NormalizeQuote("STANDARD", 2500)
	require.NoError(t, err)
	assert.Equal(t, "STANDARD", qt)
	assert.Zero(t, fee)
}

func TestNormalizeQuoteRequiresInspectionFee(t *testing.T) {
	// the delegated-quote path goes through the same check, so an agent
	// cannot submit an inspection quote with no fee either
	_, _, err := NormalizeQuote("INSPECTION_REQUIRED", 0)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	qt, fee, err := NormalizeQuote("INSPECTION_REQUIRED", 1500)
	require.NoError(t, err)
	assert.Equal(t, "INSPECTION_REQUIRED", qt)
	assert.Equal(t, int64(1500), fee)
}

func TestNormalizeQuoteRejectsUnknownType(t *testing.T) {
	_, _, err := NormalizeQuote("ESTIMATE", 0)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}
