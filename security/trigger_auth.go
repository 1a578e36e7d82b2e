package security

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
	ErrTriggerOff   = errors.New("trigger endpoint is disabled")
)

// TriggerAuth checks bearer tokens against a bcrypt hash.
type TriggerAuth struct {
	hash []byte
}

// NewTriggerAuth returns an authenticator for hash. An empty hash rejects
// every request.
func NewTriggerAuth(hash string) *TriggerAuth {
	return &TriggerAuth{hash: []byte(hash)}
}

// HashToken returns the bcrypt hash to configure for token.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (a *TriggerAuth) Enabled() bool {
	return len(a.hash) > 0
}

// Verify checks the value of an Authorization header.
func (a *TriggerAuth) Verify(authorization string) error {
	if !a.Enabled() {
		return ErrTriggerOff
	}

	token, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return ErrMissingToken
	}

	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(strings.TrimSpace(token))); err != nil {
		return ErrInvalidToken
	}
	return nil
}
