package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/Gaius-Lex/CV-voting/internal/model"
	"github.com/Gaius-Lex/CV-voting/internal/session"
)

// ErrUnauthenticated is returned when a user has no usable session.
var ErrUnauthenticated = errors.New("user not authenticated")

// Refresher exchanges a refresh token for a new access token.
type Refresher func(ctx context.Context, creds model.Credentials) (*oauth2.Token, error)

// Credential is a resolved, non-expired credential for one user.
type Credential struct {
	Session *model.Session
	Token   *oauth2.Token
}

// Client returns an HTTP client authorised with the credential's access token.
func (c *Credential) Client(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(c.Token))
}

// Broker is the single authorization gate in front of drive and profile operations.
// Concurrent refreshes for the same user are not coordinated; the store keeps
// whichever refreshed blob is written last.
type Broker struct {
	sessions *session.Manager
	refresh  Refresher
	now      func() time.Time
	logger   zerolog.Logger
}

// NewBroker creates a Broker that refreshes against the token endpoint stored
// in each credential blob.
func NewBroker(sessions *session.Manager, logger zerolog.Logger) *Broker {
	return &Broker{
		sessions: sessions,
		refresh:  refreshToken,
		now:      time.Now,
		logger:   logger,
	}
}

// Resolve returns a usable credential for userID, refreshing and persisting
// it when the access token or the session has expired.
func (b *Broker) Resolve(ctx context.Context, userID string) (*Credential, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	sess, err := b.sessions.Get(ctx, userID)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	creds, err := b.sessions.Credentials(ctx, sess)
	if err != nil {
		b.logger.Warn().Err(err).Str("user_id", userID).Msg("unreadable credential blob")
		return nil, ErrUnauthenticated
	}

	now := b.now()
	if !sess.IsExpired(now) && !accessTokenExpired(creds, now) {
		return &Credential{Session: sess, Token: TokenFromCredentials(creds)}, nil
	}
	if creds.RefreshToken == "" {
		return nil, ErrUnauthenticated
	}

	token, err := b.refresh(ctx, creds)
	if err != nil {
		b.logger.Warn().Err(err).Str("user_id", userID).Msg("token refresh failed")
		return nil, fmt.Errorf("%w: token refresh failed", ErrUnauthenticated)
	}

	creds.Token = token.AccessToken
	if token.RefreshToken != "" {
		creds.RefreshToken = token.RefreshToken
	}
	creds.Expiry = nil
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		creds.Expiry = &expiry
	}

	sess, err = b.sessions.UpdateCredentials(ctx, userID, creds)
	if err != nil {
		return nil, fmt.Errorf("persist refreshed credentials: %w", err)
	}
	b.logger.Debug().Str("user_id", userID).Time("expires_at", sess.ExpiresAt).Msg("credentials refreshed")

	return &Credential{Session: sess, Token: TokenFromCredentials(creds)}, nil
}

// Authenticated reports whether userID has a session that is either still
// valid or can be refreshed. It makes no provider calls.
func (b *Broker) Authenticated(ctx context.Context, userID string) (*model.Session, bool) {
	if userID == "" {
		return nil, false
	}
	sess, err := b.sessions.Get(ctx, userID)
	if err != nil {
		return nil, false
	}
	if !sess.IsExpired(b.now()) {
		return sess, true
	}
	creds, err := b.sessions.Credentials(ctx, sess)
	if err != nil || creds.RefreshToken == "" {
		return nil, false
	}
	return sess, true
}

func refreshToken(ctx context.Context, creds model.Credentials) (*oauth2.Token, error) {
	if creds.TokenURI == "" {
		return nil, fmt.Errorf("credential has no token endpoint")
	}
	// An empty access token makes the token source refresh immediately.
	stale := &oauth2.Token{RefreshToken: creds.RefreshToken}
	return configFromCredentials(creds).TokenSource(ctx, stale).Token()
}
