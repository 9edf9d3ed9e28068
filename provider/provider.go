// Package provider defines the capability contract shared by every model
// backend: streamed generation, health checking and best-effort model
// listing. Concrete backends live in subpackages; the process-wide handle
// cache and resolution policy live in provider/registry.
package provider

import "context"

// GenerateRequest carries the normalized generation input.
type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// Provider is the uniform capability set consumed by the orchestration core.
//
// Generate returns a lazy, finite, non-restartable sequence of text
// fragments on the first channel. The error channel is buffered (size 1) and
// closed after the stream ends; a received error means the stream failed and
// the caller must treat the partial output as abandoned. Both channels are
// closed by the provider.
//
// HealthCheck must never panic; any internal failure reports unhealthy.
// ListModels is best-effort and returns nil on failure.
type Provider interface {
	ProviderType() string
	ModelID() string
	Generate(ctx context.Context, req GenerateRequest) (<-chan string, <-chan error)
	HealthCheck(ctx context.Context) bool
	ListModels(ctx context.Context) []string
}
