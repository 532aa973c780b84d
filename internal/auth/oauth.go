// Package auth runs the Google OAuth2 flow and brokers per-user credentials.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/Gaius-Lex/CV-voting/internal/model"
)

// ErrNotConfigured is returned when no OAuth client configuration is available.
var ErrNotConfigured = errors.New("google oauth credentials not configured")

// ProfileFetcher loads the signed-in user's profile with a fresh token.
type ProfileFetcher func(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) (*model.Profile, error)

// AuthService handles the OAuth2 authorization code flow.
type AuthService struct {
	oauthConfig  *oauth2.Config
	state        *StateSigner
	fetchProfile ProfileFetcher
}

// Option customises an AuthService.
type Option func(*AuthService)

// WithProfileFetcher replaces the Google userinfo lookup.
func WithProfileFetcher(f ProfileFetcher) Option {
	return func(s *AuthService) {
		s.fetchProfile = f
	}
}

// NewAuthService creates a new AuthService. oauthConfig may be nil, in which
// case every flow operation returns ErrNotConfigured.
func NewAuthService(oauthConfig *oauth2.Config, state *StateSigner, opts ...Option) *AuthService {
	s := &AuthService{
		oauthConfig:  oauthConfig,
		state:        state,
		fetchProfile: fetchGoogleProfile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the OAuth2 config, or nil when unconfigured.
func (s *AuthService) Config() *oauth2.Config {
	return s.oauthConfig
}

// GenerateAuthURL returns the Google consent URL carrying a signed state.
// Consent is forced so that Google always issues a refresh token.
func (s *AuthService) GenerateAuthURL() (string, error) {
	if s.oauthConfig == nil {
		return "", ErrNotConfigured
	}
	state, err := s.state.Issue()
	if err != nil {
		return "", fmt.Errorf("issue oauth state: %w", err)
	}
	return s.oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

// VerifyState checks the state echoed back on the callback.
func (s *AuthService) VerifyState(state string) error {
	return s.state.Verify(state)
}

// ExchangeCode exchanges the authorization code for a token set.
func (s *AuthService) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	if s.oauthConfig == nil {
		return nil, ErrNotConfigured
	}
	return s.oauthConfig.Exchange(ctx, code)
}

// FetchProfile returns the profile of the token's owner.
func (s *AuthService) FetchProfile(ctx context.Context, token *oauth2.Token) (*model.Profile, error) {
	if s.oauthConfig == nil {
		return nil, ErrNotConfigured
	}
	return s.fetchProfile(ctx, s.oauthConfig, token)
}

// Credentials converts a token from this client into a credential blob.
func (s *AuthService) Credentials(token *oauth2.Token) model.Credentials {
	return CredentialsFromToken(s.oauthConfig, token)
}

// fetchGoogleProfile reads the userinfo endpoint. The user id is the email,
// falling back to the Google subject id.
func fetchGoogleProfile(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) (*model.Profile, error) {
	svc, err := googleoauth2.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("create oauth2 service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}

	userID := info.Email
	if userID == "" {
		userID = info.Id
	}
	return &model.Profile{
		UserID:  userID,
		Name:    info.Name,
		Email:   info.Email,
		Picture: info.Picture,
	}, nil
}
