package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	stateSubject = "oauth-state"
	stateTTL     = 10 * time.Minute
)

// ErrNoStateSecret is returned by a signer built without a key.
var ErrNoStateSecret = errors.New("oauth state signing secret not configured")

// StateSigner issues and verifies the OAuth state parameter as a short-lived
// HS256 token, so callbacks that did not start at /auth/url are rejected.
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

// NewStateSigner creates a signer keyed by secret. With an empty secret every
// Issue and Verify fails with ErrNoStateSecret.
func NewStateSigner(secret string) *StateSigner {
	return &StateSigner{secret: []byte(secret), now: time.Now}
}

// Issue returns a new signed state value.
func (s *StateSigner) Issue() (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoStateSecret
	}
	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   stateSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature, subject and expiry of a state value.
func (s *StateSigner) Verify(state string) error {
	if len(s.secret) == 0 {
		return ErrNoStateSecret
	}
	if state == "" {
		return fmt.Errorf("missing oauth state")
	}
	_, err := jwt.ParseWithClaims(state, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(stateSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("invalid oauth state: %w", err)
	}
	return nil
}
