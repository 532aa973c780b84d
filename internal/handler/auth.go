package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Gaius-Lex/CV-voting/internal/adapter"
	"github.com/Gaius-Lex/CV-voting/internal/auth"
	"github.com/Gaius-Lex/CV-voting/internal/model"
	"github.com/Gaius-Lex/CV-voting/internal/queue"
	"github.com/Gaius-Lex/CV-voting/internal/session"
)

const (
	// DemoFolderID is the memory-drive folder seeded for demo users.
	DemoFolderID = "demo-folder"
	demoLifetime = 24 * time.Hour
)

// AuthHandler handles authentication requests.
type AuthHandler struct {
	authService *auth.AuthService
	broker      *auth.Broker
	sessions    *session.Manager
	storage     adapter.StorageProvider
	queues      *queue.Codec
	baseDomain  string
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler. storage is only used to seed the
// demo folder.
func NewAuthHandler(s *auth.AuthService, broker *auth.Broker, sessions *session.Manager, storage adapter.StorageProvider, baseDomain string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: s,
		broker:      broker,
		sessions:    sessions,
		storage:     storage,
		queues:      queue.NewCodec(logger),
		baseDomain:  baseDomain,
		logger:      logger,
	}
}

func (h *AuthHandler) frontendRedirect(params url.Values) events.APIGatewayProxyResponse {
	return redirect(h.baseDomain + "?" + params.Encode())
}

func (h *AuthHandler) authError() events.APIGatewayProxyResponse {
	return h.frontendRedirect(url.Values{"auth": {"error"}})
}

func (h *AuthHandler) authSuccess(userID string) events.APIGatewayProxyResponse {
	return h.frontendRedirect(url.Values{"auth": {"success"}, "user_id": {userID}})
}

// AuthURL returns the Google consent URL.
func (h *AuthHandler) AuthURL(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	u, err := h.authService.GenerateAuthURL()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate auth url")
		return failure(err, "Failed to generate auth URL"), nil
	}
	return jsonResponse(http.StatusOK, map[string]string{"auth_url": u}), nil
}

// Callback handles the OAuth2 callback from Google.
func (h *AuthHandler) Callback(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	q := req.QueryStringParameters
	if e := q["error"]; e != "" {
		h.logger.Warn().Str("error", e).Msg("authorization denied")
		return h.authError(), nil
	}

	code := q["code"]
	if code == "" {
		return errorResponse(http.StatusBadRequest, "Missing authorization code"), nil
	}
	if err := h.authService.VerifyState(q["state"]); err != nil {
		h.logger.Warn().Err(err).Msg("invalid oauth state")
		return h.authError(), nil
	}

	token, err := h.authService.ExchangeCode(ctx, code)
	if err != nil {
		if errors.Is(err, auth.ErrNotConfigured) {
			return failure(err, ""), nil
		}
		h.logger.Error().Err(err).Msg("code exchange failed")
		return h.authError(), nil
	}

	profile, err := h.authService.FetchProfile(ctx, token)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch user profile")
		return h.authError(), nil
	}

	sess, err := h.sessions.Upsert(ctx, *profile, h.authService.Credentials(token))
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", profile.UserID).Msg("failed to store session")
		return h.authError(), nil
	}

	h.logger.Info().Str("user_id", sess.UserID).Msg("user authenticated")
	return h.authSuccess(sess.UserID), nil
}

// Status reports whether the user has a usable or refreshable session.
func (h *AuthHandler) Status(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID := UserID(req)
	if _, ok := h.broker.Authenticated(ctx, userID); !ok {
		return jsonResponse(http.StatusOK, map[string]any{"authenticated": false}), nil
	}
	return jsonResponse(http.StatusOK, map[string]any{
		"authenticated": true,
		"user_id":       userID,
	}), nil
}

// Profile returns the display fields of the signed-in user.
func (h *AuthHandler) Profile(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	cred, err := h.broker.Resolve(ctx, UserID(req))
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthenticated) {
			h.logger.Error().Err(err).Str("user_id", UserID(req)).Msg("failed to resolve credentials")
		}
		return failure(err, "Failed to load profile"), nil
	}
	return jsonResponse(http.StatusOK, model.Profile{
		Name:    cred.Session.Name,
		Email:   cred.Session.Email,
		Picture: cred.Session.Picture,
	}), nil
}

// Logout deletes the user's session.
func (h *AuthHandler) Logout(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID := UserID(req)
	if userID == "" {
		return errorResponse(http.StatusBadRequest, "user_id is required"), nil
	}
	if err := h.sessions.Delete(ctx, userID); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to delete session")
		return errorResponse(http.StatusInternalServerError, "Failed to log out"), nil
	}
	return messageResponse("Logged out"), nil
}

// DemoLogin creates a throwaway session without Google OAuth and seeds the
// demo folder. It is only routed in DEV_MODE.
func (h *AuthHandler) DemoLogin(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID := fmt.Sprintf("demo-user-%s", uuid.New().String())
	expiry := time.Now().Add(demoLifetime).UTC()

	profile := model.Profile{
		UserID: userID,
		Name:   "Demo Reviewer",
		Email:  "demo@cv-voting.local",
	}
	creds := model.Credentials{
		Token:  "demo-access-token",
		Scopes: []string{"demo"},
		Expiry: &expiry,
	}
	if _, err := h.sessions.Upsert(ctx, profile, creds); err != nil {
		h.logger.Error().Err(err).Msg("failed to create demo session")
		return errorResponse(http.StatusInternalServerError, "Failed to create demo session"), nil
	}

	cred, err := h.broker.Resolve(ctx, userID)
	if err != nil {
		return failure(err, "Failed to resolve demo session"), nil
	}
	storage, err := h.storage.GetAdapter(ctx, cred)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to open demo storage")
		return errorResponse(http.StatusInternalServerError, "Failed to get storage adapter"), nil
	}
	if _, err := storage.FindFile(ctx, DemoFolderID, queue.FileName); errors.Is(err, adapter.ErrNotFound) {
		if err := h.queues.Save(ctx, storage, DemoFolderID, nil, ""); err != nil {
			h.logger.Warn().Err(err).Msg("failed to seed demo queue")
		}
	}

	return h.authSuccess(userID), nil
}
