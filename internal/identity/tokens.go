package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fixhub-app/fixhub/internal/apperr"
)

// SessionTTL is how long a session token stays valid.
const SessionTTL = 7 * 24 * time.Hour

// MagicLinkTTL is how long a one-time login link stays valid.
const MagicLinkTTL = 15 * time.Minute

func jwtSecret() []byte {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s)
	}
	return []byte("supersecret")
}

// IssueSession signs a session JWT for the user.
func IssueSession(userID string, now time.Time) (string, error) {
	return issueSession(userID, now, jwtSecret())
}

func issueSession(userID string, now time.Time, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"id":  userID,
		"iat": now.Unix(),
		"exp": now.Add(SessionTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeUnexpected, "failed to sign session token")
	}
	return signed, nil
}

// VerifySession parses a session JWT and returns the user id.
func VerifySession(tokenStr string) (string, error) {
	return verifySession(tokenStr, jwtSecret())
}

func verifySession(tokenStr string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", apperr.New(apperr.CodeUnauthenticated, "invalid or expired session")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", apperr.New(apperr.CodeUnauthenticated, "invalid token claims")
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return "", apperr.New(apperr.CodeUnauthenticated, "invalid token claims")
	}
	return id, nil
}

// NewMagicToken generates a one-time login token. The raw value goes into the
// email link; only its hash is stored.
func NewMagicToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", apperr.Wrap(err, apperr.CodeUnexpected, "failed to generate token")
	}
	raw = hex.EncodeToString(buf)
	return raw, HashMagicToken(raw), nil
}

// HashMagicToken returns the storable hash of a raw magic-link token.
func HashMagicToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
