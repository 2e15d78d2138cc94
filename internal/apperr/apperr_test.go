package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(New(CodeNotFound, "gone")))
	assert.Equal(t, CodeUnexpected, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeUnexpected, CodeOf(nil))

	wrapped := Wrap(errors.New("db down"), CodeUnexpected, "query failed")
	assert.Equal(t, CodeUnexpected, CodeOf(wrapped))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(CodeUnauthenticated))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(CodeForbidden))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeInvalidTransition))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeValidation))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeConflict))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(CodeUnexpected))
}

func TestErrorFormatting(t *testing.T) {
	e := New(CodeValidation, "missing field")
	assert.Equal(t, "[VALIDATION_ERROR] missing field", e.Error())

	cause := errors.New("timeout")
	w := Wrap(cause, CodeUnexpected, "fetch failed")
	assert.Contains(t, w.Error(), "timeout")
	assert.ErrorIs(t, w, cause)
}

func TestNewf(t *testing.T) {
	e := Newf(CodeInvalidTransition, "order cannot move from %s to %s", "PENDING", "SETTLED")
	assert.Equal(t, "[INVALID_TRANSITION] order cannot move from PENDING to SETTLED", e.Error())
}
