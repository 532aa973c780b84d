package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Gaius-Lex/CV-voting/internal/crypto"
	"github.com/Gaius-Lex/CV-voting/internal/logging"
	"github.com/Gaius-Lex/CV-voting/internal/model"
	"github.com/Gaius-Lex/CV-voting/internal/session"
)

const testUser = "alice@example.com"

func newTestBroker(t *testing.T) (*Broker, *session.Manager) {
	t.Helper()
	sessions := session.NewManager(session.NewMemoryRepository(), crypto.NewMockEncryptor())
	return NewBroker(sessions, logging.NewSilent()), sessions
}

func seed(t *testing.T, sessions *session.Manager, creds model.Credentials) {
	t.Helper()
	_, err := sessions.Upsert(context.Background(), model.Profile{UserID: testUser, Name: "Alice"}, creds)
	require.NoError(t, err)
}

func at(t time.Time) *time.Time { return &t }

func TestBroker_ResolveUnknownUser(t *testing.T) {
	b, _ := newTestBroker(t)

	_, err := b.Resolve(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = b.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestBroker_ResolveValidTokenDoesNotRefresh(t *testing.T) {
	b, sessions := newTestBroker(t)
	b.refresh = func(context.Context, model.Credentials) (*oauth2.Token, error) {
		t.Fatal("refresh must not be called for a valid token")
		return nil, nil
	}
	seed(t, sessions, model.Credentials{Token: "live", RefreshToken: "rt", Expiry: at(time.Now().Add(30 * time.Minute))})

	cred, err := b.Resolve(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, "live", cred.Token.AccessToken)
	assert.Equal(t, "Alice", cred.Session.Name)
	assert.NotNil(t, cred.Client(context.Background()))
}

func TestBroker_ResolveRefreshesExpiredToken(t *testing.T) {
	srv := tokenServer(t, "fresh-token", "")
	b, sessions := newTestBroker(t)
	seed(t, sessions, model.Credentials{
		Token:        "stale",
		RefreshToken: "rt",
		TokenURI:     srv.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		Expiry:       at(time.Now().Add(-time.Minute)),
	})

	cred, err := b.Resolve(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", cred.Token.AccessToken)
	assert.True(t, cred.Token.Expiry.After(time.Now()), "refreshed credential carries a new expiry")

	stored, err := sessions.Get(context.Background(), testUser)
	require.NoError(t, err)
	assert.True(t, stored.ExpiresAt.After(time.Now()))
	creds, err := sessions.Credentials(context.Background(), stored)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", creds.Token)
	assert.Equal(t, "rt", creds.RefreshToken, "refresh token is kept when the provider omits it")
}

func TestBroker_ResolveExpiredWithoutRefreshToken(t *testing.T) {
	b, sessions := newTestBroker(t)
	seed(t, sessions, model.Credentials{Token: "stale", Expiry: at(time.Now().Add(-time.Minute))})

	_, err := b.Resolve(context.Background(), testUser)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestBroker_ResolveRefreshFailure(t *testing.T) {
	b, sessions := newTestBroker(t)
	b.refresh = func(context.Context, model.Credentials) (*oauth2.Token, error) {
		return nil, errors.New("invalid_grant")
	}
	seed(t, sessions, model.Credentials{Token: "stale", RefreshToken: "revoked", Expiry: at(time.Now().Add(-time.Minute))})

	_, err := b.Resolve(context.Background(), testUser)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestBroker_ResolveExpiredSessionTriggersRefresh(t *testing.T) {
	b, sessions := newTestBroker(t)
	refreshed := false
	b.refresh = func(context.Context, model.Credentials) (*oauth2.Token, error) {
		refreshed = true
		return &oauth2.Token{AccessToken: "new", Expiry: time.Now().Add(time.Hour)}, nil
	}
	seed(t, sessions, model.Credentials{Token: "live", RefreshToken: "rt", Expiry: at(time.Now().Add(10 * time.Minute))})
	b.now = func() time.Time { return time.Now().Add(20 * time.Minute) }

	_, err := b.Resolve(context.Background(), testUser)
	require.NoError(t, err)
	assert.True(t, refreshed)
}

func TestBroker_Authenticated(t *testing.T) {
	b, sessions := newTestBroker(t)

	_, ok := b.Authenticated(context.Background(), testUser)
	assert.False(t, ok)

	seed(t, sessions, model.Credentials{Token: "t", Expiry: at(time.Now().Add(time.Hour))})
	sess, ok := b.Authenticated(context.Background(), testUser)
	assert.True(t, ok)
	assert.Equal(t, "Alice", sess.Name)

	b.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, ok = b.Authenticated(context.Background(), testUser)
	assert.False(t, ok, "expired without refresh token")

	seed(t, sessions, model.Credentials{Token: "t", RefreshToken: "rt", Expiry: at(time.Now().Add(time.Hour))})
	_, ok = b.Authenticated(context.Background(), testUser)
	assert.True(t, ok, "expired but refreshable")
}
