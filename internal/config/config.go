// Package config loads the immutable runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrOAuthNotConfigured is returned when neither a client id/secret pair nor a
// client secrets file is available.
var ErrOAuthNotConfigured = errors.New("google oauth client is not configured")

// Secret sources accepted by SECRETS_SOURCE.
const (
	SecretsFromSSM = "ssm"
	SecretsFromEnv = "env"
)

// DefaultKMSKeyID is used when sessions are sealed with KMS and KMS_KEY_ID is unset.
const DefaultKMSKeyID = "alias/cv-voting-session-key"

// OAuthScopes are requested on every authorization.
var OAuthScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
}

// Config holds all application configuration loaded from environment variables.
// It is built once at startup and never mutated afterwards.
type Config struct {
	// Server
	DevMode  bool
	Port     string
	LogLevel string

	// Redirects
	BaseDomain  string
	RedirectURI string

	// OAuth2 (Google)
	GoogleClientID          string
	GoogleClientSecretsFile string

	// Language model
	GeminiModel          string
	LLMRequestsPerMinute int

	// Session storage
	DatabaseURL          string
	SessionsTable        string
	LocksTable           string
	KMSKeyID             string // empty unless KMS_KEY_ID is set
	SessionSweepInterval time.Duration

	// Secret names. With SecretsSource "ssm" they are SSM parameter paths and
	// an env var named after the last segment overrides each one.
	SecretsSource           string
	GoogleClientSecretParam string
	LLMAPIKeyParam          string
	StateSecretParam        string
	APIGatewaySecretParam   string
	SessionKeyParam         string
}

// Load reads configuration from environment variables (and an optional .env
// file) with sensible defaults.
func Load() *Config {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	return &Config{
		DevMode:  envOrDefaultBool("DEV_MODE", false),
		Port:     envOrDefault("PORT", "8000"),
		LogLevel: envOrDefault("LOG_LEVEL", "info"),

		BaseDomain:  envOrDefault("BASE_DOMAIN", "http://localhost:8000"),
		RedirectURI: envOrDefault("REDIRECT_URI", "http://localhost:8000/auth/callback"),

		GoogleClientID:          os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecretsFile: envOrDefault("GOOGLE_CLIENT_SECRETS_FILE", "credentials.json"),

		GeminiModel:          envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		LLMRequestsPerMinute: envOrDefaultInt("LLM_REQUESTS_PER_MINUTE", 30),

		DatabaseURL:          os.Getenv("DATABASE_URL"),
		SessionsTable:        envOrDefault("SESSIONS_TABLE", "UserSessions"),
		LocksTable:           envOrDefault("LOCKS_TABLE", "CVVotingLocks"),
		KMSKeyID:             os.Getenv("KMS_KEY_ID"),
		SessionSweepInterval: envOrDefaultDuration("SESSION_SWEEP_INTERVAL", 15*time.Minute),

		SecretsSource:           secretsSource(os.Getenv("SECRETS_SOURCE")),
		GoogleClientSecretParam: envOrDefault("GOOGLE_CLIENT_SECRET_PARAM", "/cv-voting/google-client-secret"),
		LLMAPIKeyParam:          envOrDefault("LLM_API_KEY_PARAM", "/cv-voting/gemini-api-key"),
		StateSecretParam:        envOrDefault("STATE_SECRET_PARAM", "/cv-voting/state-secret"),
		APIGatewaySecretParam:   envOrDefault("API_GATEWAY_SECRET_PARAM", "/cv-voting/api-gateway-secret"),
		SessionKeyParam:         envOrDefault("SESSION_KEY_PARAM", "/cv-voting/session-key"),
	}
}

// OAuth2 builds the Google OAuth2 client configuration. An explicit client
// id/secret pair wins over the client secrets file.
func (c *Config) OAuth2(clientSecret string) (*oauth2.Config, error) {
	if c.GoogleClientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     c.GoogleClientID,
			ClientSecret: clientSecret,
			RedirectURL:  c.RedirectURI,
			Scopes:       OAuthScopes,
			Endpoint:     google.Endpoint,
		}, nil
	}

	if c.GoogleClientSecretsFile == "" {
		return nil, ErrOAuthNotConfigured
	}
	b, err := os.ReadFile(c.GoogleClientSecretsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrOAuthNotConfigured
		}
		return nil, fmt.Errorf("unable to read client secrets file: %w", err)
	}

	cfg, err := google.ConfigFromJSON(b, OAuthScopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secrets file: %w", err)
	}
	cfg.RedirectURL = c.RedirectURI
	return cfg, nil
}

func secretsSource(v string) string {
	if strings.EqualFold(strings.TrimSpace(v), SecretsFromEnv) {
		return SecretsFromEnv
	}
	return SecretsFromSSM
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
