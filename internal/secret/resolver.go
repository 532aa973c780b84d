// Package secret retrieves provider credentials (OAuth client secret, language
// model API key, state signing key) from SSM Parameter Store or the environment.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog"
)

// maxParametersPerCall is the SSM GetParameters batch limit.
const maxParametersPerCall = 10

// SSMClient is the subset of *ssm.Client methods used by SSMResolver.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

// Resolver retrieves secret values by name.
type Resolver interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// SSMResolver fetches SecureString parameters from Parameter Store and keeps
// them for the lifetime of the process.
type SSMResolver struct {
	client SSMClient

	mu    sync.RWMutex
	cache map[string]string
}

func NewSSMResolver(client SSMClient) *SSMResolver {
	return &SSMResolver{client: client, cache: make(map[string]string)}
}

// Prefetch loads names in as few round trips as possible. Unknown parameters
// are reported by the later GetSecret call, not here.
func (r *SSMResolver) Prefetch(ctx context.Context, names ...string) error {
	for start := 0; start < len(names); start += maxParametersPerCall {
		batch := names[start:min(start+maxParametersPerCall, len(names))]
		out, err := r.client.GetParameters(ctx, &ssm.GetParametersInput{
			Names:          batch,
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return fmt.Errorf("ssm get parameters: %w", err)
		}

		r.mu.Lock()
		for _, p := range out.Parameters {
			if p.Name != nil && p.Value != nil {
				r.cache[*p.Name] = *p.Value
			}
		}
		r.mu.Unlock()
	}
	return nil
}

// GetSecret returns a cached value or reads the parameter with decryption.
func (r *SSMResolver) GetSecret(ctx context.Context, name string) (string, error) {
	r.mu.RLock()
	val, ok := r.cache[name]
	r.mu.RUnlock()
	if ok {
		return val, nil
	}

	out, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("ssm get parameter %q: %w", name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("ssm parameter %q has no value", name)
	}

	r.mu.Lock()
	r.cache[name] = *out.Parameter.Value
	r.mu.Unlock()
	return *out.Parameter.Value, nil
}

// EnvResolver reads secrets from environment variables named after the last
// path segment: "/cv-voting/gemini-api-key" is read from GEMINI_API_KEY.
type EnvResolver struct{}

func NewEnvResolver() *EnvResolver {
	return &EnvResolver{}
}

func (r *EnvResolver) GetSecret(_ context.Context, name string) (string, error) {
	envName := paramNameToEnvVar(name)
	if val := os.Getenv(envName); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("environment variable %q (from param %q) is not set", envName, name)
}

// ChainResolver asks each resolver in turn and returns the first value found.
type ChainResolver struct {
	resolvers []Resolver
}

// NewChainResolver builds a chain. Order matters: put overrides first.
func NewChainResolver(resolvers ...Resolver) *ChainResolver {
	return &ChainResolver{resolvers: resolvers}
}

func (c *ChainResolver) GetSecret(ctx context.Context, name string) (string, error) {
	if len(c.resolvers) == 0 {
		return "", fmt.Errorf("no resolver for %q", name)
	}
	var errs []error
	for _, r := range c.resolvers {
		val, err := r.GetSecret(ctx, name)
		if err == nil {
			return val, nil
		}
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}

// Optional resolves name and returns fallback when it cannot be resolved.
// Missing secrets are logged, not fatal: the components that need them report
// a configuration error on use.
func Optional(ctx context.Context, r Resolver, name, fallback string, logger zerolog.Logger) string {
	val, err := r.GetSecret(ctx, name)
	if err != nil {
		logger.Warn().Err(err).Str("param", name).Msg("secret not resolved")
		return fallback
	}
	return val
}

// "/cv-voting/google-client-secret" -> "GOOGLE_CLIENT_SECRET"
func paramNameToEnvVar(name string) string {
	last := name[strings.LastIndex(name, "/")+1:]
	return strings.ToUpper(strings.ReplaceAll(last, "-", "_"))
}
