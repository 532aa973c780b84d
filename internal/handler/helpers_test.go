package handler_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"github.com/Gaius-Lex/CV-voting/internal/adapter/memory"
	"github.com/Gaius-Lex/CV-voting/internal/auth"
	"github.com/Gaius-Lex/CV-voting/internal/crypto"
	"github.com/Gaius-Lex/CV-voting/internal/handler"
	"github.com/Gaius-Lex/CV-voting/internal/llm"
	"github.com/Gaius-Lex/CV-voting/internal/logging"
	"github.com/Gaius-Lex/CV-voting/internal/model"
	"github.com/Gaius-Lex/CV-voting/internal/session"
)

const testUserID = "reviewer@example.com"

type fixture struct {
	sessions *session.Manager
	broker   *auth.Broker
	provider *memory.Provider
	drive    *handler.DriveAccess
	store    *memory.MemoryAdapter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sessions := session.NewManager(session.NewMemoryRepository(), crypto.NewMockEncryptor())
	broker := auth.NewBroker(sessions, logging.NewSilent())
	provider := memory.NewProvider(nil)
	return &fixture{
		sessions: sessions,
		broker:   broker,
		provider: provider,
		drive:    handler.NewDriveAccess(broker, provider),
		store:    provider.Store(),
	}
}

func (f *fixture) login(t *testing.T, userID string) {
	t.Helper()
	expiry := time.Now().Add(time.Hour)
	_, err := f.sessions.Upsert(context.Background(), model.Profile{
		UserID: userID,
		Name:   "Rita Reviewer",
		Email:  userID,
	}, model.Credentials{Token: "access", Expiry: &expiry})
	require.NoError(t, err)
}

func makeRequest(method, path, body string, query map[string]string) events.APIGatewayProxyRequest {
	if query == nil {
		query = map[string]string{}
	}
	return events.APIGatewayProxyRequest{
		HTTPMethod:            method,
		Path:                  path,
		Body:                  body,
		QueryStringParameters: query,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		PathParameters: map[string]string{},
	}
}

func asUser(userID string) map[string]string {
	return map[string]string{"user_id": userID}
}

func decode(t *testing.T, resp events.APIGatewayProxyResponse) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out), resp.Body)
	return out
}

type fakeGenerator struct {
	reply string
	err   error
	calls []llm.Request
}

func (f *fakeGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.calls = append(f.calls, req)
	return f.reply, f.err
}
