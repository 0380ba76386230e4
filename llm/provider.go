// Package llm provides generation provider abstractions.
//
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling

package llm

import (
	"context"
)

// Provider defines the abstract interface for generation providers.
// Implementations hide provider-specific details while exposing
// a consistent interface for text and image generation.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Generate issues exactly one generation call.
	// Returns ErrEmptyResponse (wrapped) when the provider produced no content
	// and ErrUnsupportedModality when the requested modality is unavailable.
	Generate(ctx context.Context, req Request) (Response, error)

	// StreamGenerate streams a text generation, sending chunks to the provided channel.
	// Returns token usage (available in final chunk when supported by provider).
	StreamGenerate(ctx context.Context, req Request, chunks chan<- string) (*TokenUsage, error)
}
