package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Gaius-Lex/CV-voting/internal/auth"
	"github.com/Gaius-Lex/CV-voting/internal/handler"
	"github.com/Gaius-Lex/CV-voting/internal/logging"
	"github.com/Gaius-Lex/CV-voting/internal/model"
	"github.com/Gaius-Lex/CV-voting/internal/queue"
)

const frontend = "http://frontend.test/"

func tokenEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "fresh-access",
			"refresh_token": "fresh-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAuthHandler(t *testing.T, f *fixture, configured bool) (*handler.AuthHandler, *auth.StateSigner) {
	t.Helper()
	signer := auth.NewStateSigner("test-secret")

	var cfg *oauth2.Config
	if configured {
		srv := tokenEndpoint(t)
		cfg = &oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:8000/auth/callback",
			Scopes:       []string{"openid"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://accounts.example.com/auth",
				TokenURL: srv.URL,
			},
		}
	}

	fetcher := func(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) (*model.Profile, error) {
		return &model.Profile{UserID: "jane@example.com", Name: "Jane", Email: "jane@example.com", Picture: "https://pic"}, nil
	}
	svc := auth.NewAuthService(cfg, signer, auth.WithProfileFetcher(fetcher))
	return handler.NewAuthHandler(svc, f.broker, f.sessions, f.provider, frontend, logging.NewSilent()), signer
}

func TestAuthHandler_AuthURL(t *testing.T) {
	f := newFixture(t)
	h, _ := newAuthHandler(t, f, true)

	resp, err := h.AuthURL(context.Background(), makeRequest("GET", "/auth/url", "", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	u, err := url.Parse(decode(t, resp)["auth_url"].(string))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.NotEmpty(t, q.Get("state"))
}

func TestAuthHandler_AuthURLNotConfigured(t *testing.T) {
	f := newFixture(t)
	h, _ := newAuthHandler(t, f, false)

	resp, err := h.AuthURL(context.Background(), makeRequest("GET", "/auth/url", "", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, decode(t, resp)["detail"], "Google OAuth credentials not configured")
}

func TestAuthHandler_CallbackStatusProfileLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h, signer := newAuthHandler(t, f, true)

	state, err := signer.Issue()
	require.NoError(t, err)

	resp, err := h.Callback(ctx, makeRequest("GET", "/auth/callback", "", map[string]string{"code": "abc", "state": state}))
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, frontend+"?auth=success&user_id=jane%40example.com", resp.Headers["Location"])

	resp, _ = h.Status(ctx, makeRequest("GET", "/auth/status", "", asUser("jane@example.com")))
	assert.Equal(t, map[string]any{"authenticated": true, "user_id": "jane@example.com"}, decode(t, resp))

	resp, _ = h.Profile(ctx, makeRequest("GET", "/auth/profile", "", asUser("jane@example.com")))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decode(t, resp)
	assert.Equal(t, "Jane", profile["name"])
	assert.Equal(t, "https://pic", profile["picture"])

	sess, err := f.sessions.Get(ctx, "jane@example.com")
	require.NoError(t, err)
	creds, err := f.sessions.Credentials(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", creds.Token)
	assert.Equal(t, "fresh-refresh", creds.RefreshToken)

	resp, _ = h.Logout(ctx, makeRequest("POST", "/auth/logout", "", asUser("jane@example.com")))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.Status(ctx, makeRequest("GET", "/auth/status", "", asUser("jane@example.com")))
	assert.Equal(t, map[string]any{"authenticated": false}, decode(t, resp))
}

func TestAuthHandler_CallbackRejectsBadState(t *testing.T) {
	f := newFixture(t)
	h, _ := newAuthHandler(t, f, true)

	resp, err := h.Callback(context.Background(), makeRequest("GET", "/auth/callback", "", map[string]string{"code": "abc", "state": "forged"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, frontend+"?auth=error", resp.Headers["Location"])
}

func TestAuthHandler_CallbackMissingCode(t *testing.T) {
	f := newFixture(t)
	h, _ := newAuthHandler(t, f, true)

	resp, _ := h.Callback(context.Background(), makeRequest("GET", "/auth/callback", "", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthHandler_ProfileUnauthenticated(t *testing.T) {
	f := newFixture(t)
	h, _ := newAuthHandler(t, f, true)

	resp, _ := h.Profile(context.Background(), makeRequest("GET", "/auth/profile", "", asUser("nobody@example.com")))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "User not authenticated. Please authorize first.", decode(t, resp)["detail"])
}

func TestAuthHandler_DemoLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h, _ := newAuthHandler(t, f, false)

	resp, err := h.DemoLogin(ctx, makeRequest("GET", "/auth/demo-login", "", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Headers["Location"])
	require.NoError(t, err)
	assert.Equal(t, "success", loc.Query().Get("auth"))
	userID := loc.Query().Get("user_id")
	assert.Regexp(t, "^demo-user-", userID)

	_, ok := f.broker.Authenticated(ctx, userID)
	assert.True(t, ok)

	_, err = f.store.FindFile(ctx, handler.DemoFolderID, queue.FileName)
	assert.NoError(t, err)
}
