package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixhub-app/fixhub/internal/apperr"
)

var testSecret = []byte("test-secret")

func TestSessionRoundTrip(t *testing.T) {
	token, err := issueSession("user-123", time.Now(), testSecret)
	require.NoError(t, err)

	id, err := verifySession(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-123", id)
}

func TestExpiredSessionRejected(t *testing.T) {
	issued := time.Now().Add(-SessionTTL - time.Hour)
	token, err := issueSession("user-123", issued, testSecret)
	require.NoError(t, err)

	_, err = verifySession(token, testSecret)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := issueSession("user-123", time.Now(), testSecret)
	require.NoError(t, err)

	_, err = verifySession(token, []byte("other-secret"))
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
}

func TestGarbageTokenRejected(t *testing.T) {
	_, err := verifySession("not-a-jwt", testSecret)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
}

func TestMagicTokenHashing(t *testing.T) {
	raw, hash, err := NewMagicToken()
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.NotEqual(t, raw, hash)
	assert.Equal(t, hash, HashMagicToken(raw))

	raw2, hash2, err := NewMagicToken()
	require.NoError(t, err)
	assert.NotEqual(t, raw, raw2)
	assert.NotEqual(t, hash, hash2)
}
