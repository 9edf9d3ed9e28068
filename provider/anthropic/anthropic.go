// Package anthropic implements the provider contract on top of the
// Anthropic Messages API. It is an additive backend tag ("http-anthropic")
// for pipelines mixing local models with a hosted one.
package anthropic

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/provider"
)

// Options configure the Anthropic provider.
type Options struct {
	// APIKey overrides the ANTHROPIC_API_KEY environment variable.
	APIKey        string
	HealthTimeout time.Duration
	Logger        logging.Logger
}

// Provider streams messages from the Anthropic API for one model.
type Provider struct {
	client anthropic.Client
	model  string
	opts   Options
}

// New creates a provider bound to the given model identifier.
func New(model string, optFns ...func(o *Options)) *Provider {
	opts := Options{
		HealthTimeout: 3 * time.Second,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Provider{client: client, model: model, opts: opts}
}

// ProviderType implements provider.Provider.
func (p *Provider) ProviderType() string { return "http-anthropic" }

// ModelID implements provider.Provider.
func (p *Provider) ModelID() string { return p.model }

// Generate implements provider.Provider by adapting Messages streaming
// events into plain text fragments.
func (p *Provider) Generate(ctx context.Context, req provider.GenerateRequest) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := anthropic.MessageNewParams{
			Model:       anthropic.Model(p.model),
			MaxTokens:   int64(req.MaxTokens),
			Temperature: anthropic.Float(req.Temperature),
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
			},
		}
		if req.SystemPrompt != "" {
			params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
		}

		stream := p.client.Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				delta, ok := ev.Delta.AsAny().(anthropic.TextDelta)
				if !ok || delta.Text == "" {
					continue
				}
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- delta.Text:
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- fmt.Errorf("anthropic streaming error: %w", err)
		}
	}()

	return out, errCh
}

// HealthCheck implements provider.Provider by listing models with a short
// deadline.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.opts.HealthTimeout)
	defer cancel()

	_, err := p.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		p.opts.Logger.Debug("health check failed", "provider", "http-anthropic", "error", err)
	}
	return err == nil
}

// ListModels implements provider.Provider, best-effort.
func (p *Provider) ListModels(ctx context.Context) []string {
	page, err := p.client.Models.List(ctx, anthropic.ModelListParams{})
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, string(m.ID))
	}
	return ids
}
