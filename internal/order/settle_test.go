package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixhub-app/fixhub/internal/apperr"
	"github.com/fixhub-app/fixhub/internal/workflow"
)

func TestCheckReversalRequiresSettledOrder(t *testing.T) {
	// a healthy order that merely reached PAID keeps its commission intact
	err := checkReversal(workflow.OrderPaid, "client refunded off-platform")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidTransition, apperr.CodeOf(err))

	err = checkReversal(workflow.OrderCancelled, "client refunded off-platform")
	assert.Equal(t, apperr.CodeInvalidTransition, apperr.CodeOf(err))
}

func TestCheckReversalRequiresReason(t *testing.T) {
	err := checkReversal(workflow.OrderSettled, "   ")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	assert.NoError(t, checkReversal(workflow.OrderSettled, "disputed workmanship"))
}
