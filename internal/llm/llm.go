// Package llm wraps the hosted text-generation provider used to draft letters
// and grade CVs.
package llm

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured is returned when no provider API key is available.
	ErrNotConfigured = errors.New("LLM API key not configured")
	// ErrGeneration wraps any provider failure. Calls are never retried.
	ErrGeneration = errors.New("text generation failed")
)

// Request is a single prompt with its sampling parameters.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int32
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
