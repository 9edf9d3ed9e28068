// Package openaicompat implements the provider contract for local backends
// speaking the OpenAI Chat Completions wire protocol: Ollama, LM Studio and
// the llama.cpp server. One Provider instance wraps one (endpoint, model)
// pair and reuses its HTTP client for the process lifetime.
package openaicompat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/provider"
)

// DefaultBaseURLs maps a provider type tag to its conventional local
// endpoint.
var DefaultBaseURLs = map[string]string{
	"http-ollama":   "http://localhost:11434",
	"http-lmstudio": "http://localhost:1234",
	"http-llamacpp": "http://localhost:8080",
}

// Options configure an openaicompat Provider.
type Options struct {
	// HealthTimeout bounds the health check round trip.
	HealthTimeout time.Duration
	// ListTimeout bounds the model listing round trip.
	ListTimeout time.Duration
	Logger      logging.Logger
}

// Provider streams chat completions from one OpenAI-compatible endpoint.
type Provider struct {
	client openai.Client
	ptype  string
	model  string
	opts   Options
}

// New creates a provider for the given type tag, base URL and model. Local
// servers ignore the API key but the SDK requires one to be present.
func New(ptype, baseURL, model string, optFns ...func(o *Options)) *Provider {
	opts := Options{
		HealthTimeout: 3 * time.Second,
		ListTimeout:   5 * time.Second,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := openai.NewClient(
		option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/v1/"),
		option.WithAPIKey("local"),
	)

	return &Provider{client: client, ptype: ptype, model: model, opts: opts}
}

// ProviderType implements provider.Provider.
func (p *Provider) ProviderType() string { return p.ptype }

// ModelID implements provider.Provider.
func (p *Provider) ModelID() string { return p.model }

// Generate implements provider.Provider by adapting the streaming chat
// completions endpoint into a plain text fragment sequence.
func (p *Provider) Generate(ctx context.Context, req provider.GenerateRequest) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		var messages []openai.ChatCompletionMessageParamUnion
		if req.SystemPrompt != "" {
			messages = append(messages, openai.SystemMessage(req.SystemPrompt))
		}
		messages = append(messages, openai.UserMessage(req.Prompt))

		params := openai.ChatCompletionNewParams{
			Model:       openai.ChatModel(p.model),
			Messages:    messages,
			MaxTokens:   openai.Int(int64(req.MaxTokens)),
			Temperature: openai.Float(req.Temperature),
		}

		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		for stream.Next() {
			chunk := stream.Current()
			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- choice.Delta.Content:
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("%s streaming error: %w", p.ptype, err)
		}
	}()

	return out, errCh
}

// HealthCheck implements provider.Provider by listing models with a short
// deadline. Any failure reports unhealthy.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.opts.HealthTimeout)
	defer cancel()

	_, err := p.client.Models.List(ctx)
	if err != nil {
		p.opts.Logger.Debug("health check failed", "provider", p.ptype, "error", err)
	}
	return err == nil
}

// ListModels implements provider.Provider, best-effort.
func (p *Provider) ListModels(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ListTimeout)
	defer cancel()

	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	return ids
}
