package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/Gaius-Lex/CV-voting/internal/adapter"
	"github.com/Gaius-Lex/CV-voting/internal/adapter/googledrive"
	"github.com/Gaius-Lex/CV-voting/internal/adapter/memory"
	"github.com/Gaius-Lex/CV-voting/internal/auth"
	"github.com/Gaius-Lex/CV-voting/internal/config"
	"github.com/Gaius-Lex/CV-voting/internal/crypto"
	"github.com/Gaius-Lex/CV-voting/internal/handler"
	"github.com/Gaius-Lex/CV-voting/internal/llm"
	"github.com/Gaius-Lex/CV-voting/internal/logging"
	"github.com/Gaius-Lex/CV-voting/internal/markdown"
	"github.com/Gaius-Lex/CV-voting/internal/review"
	"github.com/Gaius-Lex/CV-voting/internal/secret"
	"github.com/Gaius-Lex/CV-voting/internal/session"
)

const defaultStateSecret = "default-dev-secret"

// Dependencies are the external collaborators the router is built from.
// NewApp fills them from the environment; tests pass their own.
type Dependencies struct {
	Sessions  *session.Manager
	Storage   adapter.StorageProvider
	OAuth     *oauth2.Config // nil when the OAuth client is not configured
	Generator llm.Generator  // nil when no LLM key is configured
	Locker    session.Locker

	StateSecret      string
	APIGatewaySecret string
}

// App holds the handlers behind the API Gateway router.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger

	authHandler   *handler.AuthHandler
	folderHandler *handler.FolderHandler
	reviewHandler *handler.ReviewHandler
	sweeper       *session.Sweeper

	apiGatewaySecret string
	closers          []func() error
}

// New wires the handlers from already constructed dependencies. Only DEV_MODE
// falls back to a built-in state secret; elsewhere OAuth sign-in stays
// disabled until one is configured.
func New(cfg *config.Config, deps Dependencies, logger zerolog.Logger) *App {
	stateSecret := deps.StateSecret
	if stateSecret == "" {
		if cfg.DevMode {
			logger.Warn().Msg("state secret not configured, using the development default")
			stateSecret = defaultStateSecret
		} else {
			logger.Error().Msg("state secret not configured, OAuth sign-in is disabled")
		}
	}

	broker := auth.NewBroker(deps.Sessions, logger)
	authService := auth.NewAuthService(deps.OAuth, auth.NewStateSigner(stateSecret))
	drive := handler.NewDriveAccess(broker, deps.Storage)
	reviewService := review.NewService(deps.Generator, markdown.NewRenderer(), logger)

	return &App{
		cfg:              cfg,
		logger:           logger,
		authHandler:      handler.NewAuthHandler(authService, broker, deps.Sessions, deps.Storage, cfg.BaseDomain, logger),
		folderHandler:    handler.NewFolderHandler(drive, logger),
		reviewHandler:    handler.NewReviewHandler(reviewService, drive, logger),
		sweeper:          session.NewSweeper(deps.Sessions, deps.Locker, cfg.SessionSweepInterval, logger),
		apiGatewaySecret: deps.APIGatewaySecret,
	}
}

// NewApp initializes the application dependencies from the environment.
// DEV_MODE swaps sessions and the drive for local stand-ins. Secret sourcing
// is independent of it: see secretResolver.
func NewApp(ctx context.Context) *App {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.DevMode)

	// The AWS config is only loaded when some component needs it.
	var awsCfg *aws.Config
	loadAWS := func() aws.Config {
		if awsCfg == nil {
			c, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				panic(fmt.Sprintf("unable to load SDK config, %v", err))
			}
			awsCfg = &c
		}
		return *awsCfg
	}

	resolver := secretResolver(ctx, cfg, func() secret.SSMClient { return ssm.NewFromConfig(loadAWS()) }, logger)

	var (
		deps    Dependencies
		closers []func() error
	)
	deps.Storage = storageProvider(cfg)

	if cfg.DevMode {
		deps.Sessions = session.NewManager(session.NewMemoryRepository(), crypto.NewMockEncryptor())
		deps.Locker = session.NewMockLocker()
		logger.Info().Msg("DEV_MODE: using in-memory sessions and in-memory drive")
	} else {
		var repo session.Repository
		if cfg.DatabaseURL != "" {
			pg, err := session.OpenPostgres(ctx, cfg.DatabaseURL)
			if err != nil {
				panic(fmt.Sprintf("unable to open session database, %v", err))
			}
			closers = append(closers, pg.Close)
			repo = pg
			deps.Locker = pg.Locker()
			logger.Info().Msg("sessions stored in PostgreSQL")
		} else {
			dynamoClient := dynamodb.NewFromConfig(loadAWS())
			repo = session.NewDynamoRepository(dynamoClient, cfg.SessionsTable)
			deps.Locker = session.NewLockManager(dynamoClient, cfg.LocksTable)
			logger.Info().Str("table", cfg.SessionsTable).Msg("sessions stored in DynamoDB")
		}

		encryptor, err := sessionEncryptor(ctx, cfg, resolver, func() crypto.KMSClient { return kms.NewFromConfig(loadAWS()) }, logger)
		if err != nil {
			panic(fmt.Sprintf("unable to set up session encryption, %v", err))
		}
		deps.Sessions = session.NewManager(repo, encryptor)
	}

	loadSecrets(ctx, cfg, resolver, &deps, logger)

	app := New(cfg, deps, logger)
	app.closers = closers
	return app
}

// secretResolver picks where secrets come from. Environment variables always
// win. SSM Parameter Store backs them up unless DEV_MODE is on or
// SECRETS_SOURCE=env.
func secretResolver(ctx context.Context, cfg *config.Config, ssmClient func() secret.SSMClient, logger zerolog.Logger) secret.Resolver {
	env := secret.NewEnvResolver()
	if cfg.DevMode || cfg.SecretsSource == config.SecretsFromEnv {
		logger.Info().Msg("secrets read from environment variables")
		return env
	}

	ssmResolver := secret.NewSSMResolver(ssmClient())
	names := []string{cfg.StateSecretParam, cfg.APIGatewaySecretParam, cfg.GoogleClientSecretParam, cfg.LLMAPIKeyParam}
	if !usesKMS(cfg) {
		names = append(names, cfg.SessionKeyParam)
	}
	if err := ssmResolver.Prefetch(ctx, names...); err != nil {
		logger.Warn().Err(err).Msg("secret prefetch failed, falling back to single lookups")
	}
	return secret.NewChainResolver(env, ssmResolver)
}

// storageProvider is Google Drive everywhere except DEV_MODE.
func storageProvider(cfg *config.Config) adapter.StorageProvider {
	if cfg.DevMode {
		return memory.NewProvider(nil)
	}
	return googledrive.NewProvider()
}

// usesKMS reports whether credential blobs are sealed with KMS: when a key is
// named, or when AWS already backs the sessions table or the secrets.
func usesKMS(cfg *config.Config) bool {
	return cfg.KMSKeyID != "" || cfg.DatabaseURL == "" || cfg.SecretsSource != config.SecretsFromEnv
}

// sessionEncryptor returns KMS or, for AWS-free deployments, a local cipher
// keyed by the session key secret.
func sessionEncryptor(ctx context.Context, cfg *config.Config, resolver secret.Resolver, kmsClient func() crypto.KMSClient, logger zerolog.Logger) (crypto.Encryptor, error) {
	if usesKMS(cfg) {
		keyID := cfg.KMSKeyID
		if keyID == "" {
			keyID = config.DefaultKMSKeyID
		}
		logger.Info().Str("key_id", keyID).Msg("session credentials sealed with KMS")
		return crypto.NewKMSService(kmsClient(), keyID), nil
	}

	key, err := resolver.GetSecret(ctx, cfg.SessionKeyParam)
	if err != nil {
		return nil, fmt.Errorf("session key: %w", err)
	}
	logger.Info().Msg("session credentials sealed with the local session key")
	return crypto.NewLocalService(key)
}

// loadSecrets resolves the shared secrets and builds the OAuth client and
// language model from them.
func loadSecrets(ctx context.Context, cfg *config.Config, resolver secret.Resolver, deps *Dependencies, logger zerolog.Logger) {
	deps.StateSecret = secret.Optional(ctx, resolver, cfg.StateSecretParam, "", logger)
	deps.APIGatewaySecret = secret.Optional(ctx, resolver, cfg.APIGatewaySecretParam, "", logger)

	clientSecret := secret.Optional(ctx, resolver, cfg.GoogleClientSecretParam, "", logger)
	oauthConfig, err := cfg.OAuth2(clientSecret)
	switch {
	case errors.Is(err, config.ErrOAuthNotConfigured):
		logger.Warn().Msg("Google OAuth client not configured, auth endpoints will fail")
	case err != nil:
		logger.Error().Err(err).Msg("invalid Google OAuth configuration")
	default:
		deps.OAuth = oauthConfig
	}

	if key := secret.Optional(ctx, resolver, cfg.LLMAPIKeyParam, "", logger); key != "" {
		client, err := llm.NewGeminiClient(ctx, key,
			llm.WithModel(cfg.GeminiModel),
			llm.WithRequestsPerMinute(cfg.LLMRequestsPerMinute),
			llm.WithLogger(logger),
		)
		if err != nil {
			logger.Error().Err(err).Msg("failed to create Gemini client")
		} else {
			deps.Generator = client
		}
	}
}

// Sweeper returns the expired-session sweeper.
func (app *App) Sweeper() *session.Sweeper {
	return app.sweeper
}

// Config returns the configuration the app was built with.
func (app *App) Config() *config.Config {
	return app.cfg
}

// Logger returns the application logger.
func (app *App) Logger() zerolog.Logger {
	return app.logger
}

// Close releases database connections.
func (app *App) Close() error {
	var errs []error
	for _, c := range app.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	app.logger.Debug().Str("method", method).Str("path", path).Msg("request")

	// CORS Preflight
	if method == http.MethodOptions {
		return app.corsResponse(events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}), nil
	}

	// Only CloudFront knows the origin secret.
	if !app.cfg.DevMode && app.apiGatewaySecret != "" && handler.GetHeader(req, "X-Origin-Verify") != app.apiGatewaySecret {
		app.logger.Warn().Str("path", path).Msg("missing or invalid X-Origin-Verify header")
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusForbidden,
			Body:       "Forbidden: Access denied",
		}, nil
	}

	// The frontend proxies through /api.
	if path == "/api" || strings.HasPrefix(path, "/api/") {
		path = "/" + strings.TrimPrefix(strings.TrimPrefix(path, "/api"), "/")
	}

	if req.PathParameters == nil {
		req.PathParameters = make(map[string]string)
	}
	if req.QueryStringParameters == nil {
		req.QueryStringParameters = make(map[string]string)
	}

	switch {
	case path == "/" && method == http.MethodGet:
		return app.corsResponse(app.must(handler.Root(ctx, req))), nil
	case path == "/health" && method == http.MethodGet:
		return app.corsResponse(app.must(handler.Health(ctx, req))), nil
	case path == "/vote" && method == http.MethodPost:
		return app.corsResponse(app.must(handler.Vote(ctx, req))), nil
	case path == "/generate-rejection" && method == http.MethodPost:
		return app.corsResponse(app.must(app.reviewHandler.GenerateRejection(ctx, req))), nil
	case path == "/generate-acceptance" && method == http.MethodPost:
		return app.corsResponse(app.must(app.reviewHandler.GenerateAcceptance(ctx, req))), nil
	case path == "/grade-cv" && method == http.MethodPost:
		return app.corsResponse(app.must(app.reviewHandler.GradeCV(ctx, req))), nil
	}

	// /auth
	if strings.HasPrefix(path, "/auth/") {
		switch {
		case path == "/auth/url" && method == http.MethodGet:
			return app.corsResponse(app.must(app.authHandler.AuthURL(ctx, req))), nil
		case path == "/auth/callback" && method == http.MethodGet:
			return app.corsResponse(app.must(app.authHandler.Callback(ctx, req))), nil
		case path == "/auth/status" && method == http.MethodGet:
			return app.corsResponse(app.must(app.authHandler.Status(ctx, req))), nil
		case path == "/auth/profile" && method == http.MethodGet:
			return app.corsResponse(app.must(app.authHandler.Profile(ctx, req))), nil
		case path == "/auth/logout" && method == http.MethodPost:
			return app.corsResponse(app.must(app.authHandler.Logout(ctx, req))), nil
		case path == "/auth/demo-login" && method == http.MethodGet && app.cfg.DevMode:
			return app.corsResponse(app.must(app.authHandler.DemoLogin(ctx, req))), nil
		}
	}

	// /documents/{folderId}, /scores/{folderId}[/export], /queue/{folderId}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[1] != "" {
		req.PathParameters["folderId"] = parts[1]

		switch {
		case parts[0] == "documents" && len(parts) == 2 && method == http.MethodGet:
			return app.corsResponse(app.must(app.folderHandler.ListDocuments(ctx, req))), nil
		case parts[0] == "scores" && len(parts) == 2 && method == http.MethodGet:
			return app.corsResponse(app.must(app.folderHandler.GetScores(ctx, req))), nil
		case parts[0] == "scores" && len(parts) == 2 && method == http.MethodPost:
			return app.corsResponse(app.must(app.folderHandler.SaveScores(ctx, req))), nil
		case parts[0] == "scores" && len(parts) == 3 && parts[2] == "export" && method == http.MethodGet:
			return app.corsResponse(app.must(app.folderHandler.ExportScores(ctx, req))), nil
		case parts[0] == "queue" && len(parts) == 2 && method == http.MethodGet:
			return app.corsResponse(app.must(app.folderHandler.GetQueue(ctx, req))), nil
		case parts[0] == "queue" && len(parts) == 2 && method == http.MethodPost:
			return app.corsResponse(app.must(app.folderHandler.SaveQueue(ctx, req))), nil
		}
	}

	return app.corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// corsResponse adds CORS headers for the frontend origin.
func (app *App) corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = app.cfg.BaseDomain
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization,If-Match"
	resp.Headers["Access-Control-Expose-Headers"] = "Content-Disposition"
	return resp
}

// must unwraps a handler response, turning an error into a 500.
func (app *App) must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		app.logger.Error().Err(err).Msg("handler error")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}
