// Package session stores user sessions: the display profile and the sealed
// OAuth credential blob for every signed-in reviewer.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Gaius-Lex/CV-voting/internal/crypto"
	"github.com/Gaius-Lex/CV-voting/internal/model"
)

// ErrNotFound is returned when no session exists for a user.
var ErrNotFound = errors.New("session not found")

// DefaultLifetime is applied when the provider reports no token expiry.
const DefaultLifetime = time.Hour

// Repository persists session rows. Each call is atomic on its own.
type Repository interface {
	Get(ctx context.Context, userID string) (*model.Session, error)
	Put(ctx context.Context, s model.Session) error
	Delete(ctx context.Context, userID string) error
	// DeleteExpired removes sessions whose expiry is before now and reports how many.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Manager implements the session store on top of a Repository, sealing
// credential blobs with an Encryptor.
type Manager struct {
	repo      Repository
	encryptor crypto.Encryptor
	now       func() time.Time
}

// NewManager creates a new Manager.
func NewManager(repo Repository, encryptor crypto.Encryptor) *Manager {
	return &Manager{repo: repo, encryptor: encryptor, now: time.Now}
}

// Get returns the session for userID or ErrNotFound.
func (m *Manager) Get(ctx context.Context, userID string) (*model.Session, error) {
	return m.repo.Get(ctx, userID)
}

// Upsert creates the session or replaces its profile and credentials.
// created_at survives re-authentication; a credential set without a refresh
// token keeps the previously stored one.
func (m *Manager) Upsert(ctx context.Context, profile model.Profile, creds model.Credentials) (*model.Session, error) {
	if profile.UserID == "" {
		return nil, fmt.Errorf("upsert session: empty user id")
	}
	now := m.now()

	existing, err := m.repo.Get(ctx, profile.UserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("upsert session: %w", err)
	}

	s := model.Session{
		UserID:    profile.UserID,
		Name:      profile.Name,
		Email:     profile.Email,
		Picture:   profile.Picture,
		CreatedAt: now,
	}
	if existing != nil {
		s.CreatedAt = existing.CreatedAt
		creds = m.keepRefreshToken(ctx, existing, creds)
	}
	return m.store(ctx, s, creds, now)
}

// UpdateCredentials replaces only the credential blob of an existing session.
func (m *Manager) UpdateCredentials(ctx context.Context, userID string, creds model.Credentials) (*model.Session, error) {
	existing, err := m.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	creds = m.keepRefreshToken(ctx, existing, creds)
	return m.store(ctx, *existing, creds, m.now())
}

// Credentials opens the sealed credential blob of s.
func (m *Manager) Credentials(ctx context.Context, s *model.Session) (model.Credentials, error) {
	var creds model.Credentials
	plain, err := m.encryptor.Decrypt(ctx, s.CredentialBlob)
	if err != nil {
		return creds, fmt.Errorf("open credential blob: %w", err)
	}
	if err := json.Unmarshal([]byte(plain), &creds); err != nil {
		return creds, fmt.Errorf("decode credential blob: %w", err)
	}
	return creds, nil
}

// Delete removes the session; deleting an absent session is not an error.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	return m.repo.Delete(ctx, userID)
}

// SweepExpired deletes every expired session and returns how many were removed.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	return m.repo.DeleteExpired(ctx, m.now())
}

func (m *Manager) keepRefreshToken(ctx context.Context, existing *model.Session, creds model.Credentials) model.Credentials {
	if creds.RefreshToken != "" {
		return creds
	}
	if prev, err := m.Credentials(ctx, existing); err == nil {
		creds.RefreshToken = prev.RefreshToken
	}
	return creds
}

func (m *Manager) store(ctx context.Context, s model.Session, creds model.Credentials, now time.Time) (*model.Session, error) {
	blob, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("encode credential blob: %w", err)
	}
	sealed, err := m.encryptor.Encrypt(ctx, string(blob))
	if err != nil {
		return nil, fmt.Errorf("seal credential blob: %w", err)
	}

	s.CredentialBlob = sealed
	s.UpdatedAt = now
	s.ExpiresAt = ExpiryFor(creds, now)
	s.ExpiresAtUnix = s.ExpiresAt.Unix()

	if err := m.repo.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return &s, nil
}

// ExpiryFor returns the session expiry implied by creds: the token expiry, or
// now+DefaultLifetime when the provider gave none.
func ExpiryFor(creds model.Credentials, now time.Time) time.Time {
	if creds.Expiry != nil && !creds.Expiry.IsZero() {
		return creds.Expiry.UTC()
	}
	return now.Add(DefaultLifetime).UTC()
}
