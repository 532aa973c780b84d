package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/Gaius-Lex/CV-voting/internal/adapter"
	"github.com/Gaius-Lex/CV-voting/internal/auth"
	"github.com/Gaius-Lex/CV-voting/internal/llm"
)

const (
	detailUnauthenticated = "User not authenticated. Please authorize first."
	detailOAuthMissing    = "Google OAuth credentials not configured. Please set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables or provide a client secrets file"
	detailStateSecret     = "OAuth state secret not configured. Please set STATE_SECRET or the state secret parameter"
	detailConflict        = "File was modified by another reviewer. Reload and try again."
	detailInvalidBody     = "Invalid request body"
)

// GetHeader looks a header up case-insensitively.
func GetHeader(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// UserID returns the user_id query parameter the frontend sends with every
// session-bound call.
func UserID(req events.APIGatewayProxyRequest) string {
	return strings.TrimSpace(req.QueryStringParameters["user_id"])
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "Failed to encode response")
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// errorResponse writes the {"detail": ...} body the frontend expects.
func errorResponse(status int, detail string) events.APIGatewayProxyResponse {
	return jsonResponse(status, map[string]string{"detail": detail})
}

func messageResponse(msg string) events.APIGatewayProxyResponse {
	return jsonResponse(http.StatusOK, map[string]string{"message": msg})
}

func redirect(location string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": location,
		},
	}
}

// decodeBody unmarshals the request body, undoing API Gateway base64 encoding.
func decodeBody(req events.APIGatewayProxyRequest, v any) error {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return err
		}
		body = decoded
	}
	return json.Unmarshal(body, v)
}

// statusFor maps a domain error to an HTTP status and detail. fallback is
// used as the detail prefix for unexpected failures.
func statusFor(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, detailUnauthenticated
	case errors.Is(err, adapter.ErrPreconditionFailed):
		return http.StatusConflict, detailConflict
	case errors.Is(err, adapter.ErrNotFound):
		return http.StatusNotFound, "Document not found"
	case errors.Is(err, llm.ErrNotConfigured):
		return http.StatusInternalServerError, llm.ErrNotConfigured.Error()
	case errors.Is(err, auth.ErrNotConfigured):
		return http.StatusInternalServerError, detailOAuthMissing
	case errors.Is(err, auth.ErrNoStateSecret):
		return http.StatusInternalServerError, detailStateSecret
	}
	return http.StatusInternalServerError, fallback + ": " + err.Error()
}

func failure(err error, fallback string) events.APIGatewayProxyResponse {
	status, detail := statusFor(err, fallback)
	return errorResponse(status, detail)
}

// DriveAccess resolves the caller's credential and opens their drive.
type DriveAccess struct {
	broker   *auth.Broker
	provider adapter.StorageProvider
}

func NewDriveAccess(broker *auth.Broker, provider adapter.StorageProvider) *DriveAccess {
	return &DriveAccess{broker: broker, provider: provider}
}

// Storage returns the drive of the request's user, or an error wrapping
// auth.ErrUnauthenticated.
func (d *DriveAccess) Storage(ctx context.Context, req events.APIGatewayProxyRequest) (adapter.StorageAdapter, error) {
	cred, err := d.broker.Resolve(ctx, UserID(req))
	if err != nil {
		return nil, err
	}
	return d.provider.GetAdapter(ctx, cred)
}
