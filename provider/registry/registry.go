// Package registry owns the process-wide provider handle cache and the
// resolution policy that picks a backend for an agent — or none, meaning
// the run uses simulated output. Handles are cached per (type, model) key
// for the process lifetime so connections and loaded weights are reused
// across runs.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/provider"
	"github.com/hupe1980/agentstudio/provider/anthropic"
	"github.com/hupe1980/agentstudio/provider/inproc"
	"github.com/hupe1980/agentstudio/provider/openaicompat"
)

// Options configure a Registry.
type Options struct {
	Logger logging.Logger
	// ModelsDir is the local weights root passed to the in-process runtime.
	ModelsDir string
	// Engine is the in-process inference runtime; nil leaves that backend
	// permanently unhealthy.
	Engine inproc.Engine
	// AnthropicAPIKey overrides the environment for the hosted backend.
	AnthropicAPIKey string
}

// Registry caches provider handles per (type, model) key. Check-then-create
// is atomic under one mutex so concurrent resolutions never produce
// duplicate handles for the same key.
type Registry struct {
	mu        sync.Mutex
	providers map[string]provider.Provider
	opts      Options
}

// New creates an empty registry.
func New(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{providers: make(map[string]provider.Provider), opts: opts}
}

// Resolve picks the backend for one agent, or reports none (use simulation).
// Per-agent override config wins over the request default; the simulation
// type and disabled real models always resolve to none. Resolution itself
// never fails; unreachable backends are discovered later by the health
// check and degrade to simulation.
func (r *Registry) Resolve(desc core.AgentDescriptor, req core.RunRequest) (provider.Provider, bool) {
	if !req.UseRealModels {
		return nil, false
	}

	cfg := req.DefaultProvider
	if ac, ok := req.ConfigFor(desc.ID); ok && ac.Provider != nil {
		cfg = *ac.Provider
	}

	switch cfg.Type {
	case core.ProviderInProcess:
		ref := cfg.ModelRef
		if ref == "" {
			ref = desc.BackendModelRef
		}
		if ref == "" {
			ref = desc.Model
		}
		return r.InProcess(ref, cfg.LoadIn4Bit, cfg.LoadIn8Bit), true

	case core.ProviderAnthropic:
		model := cfg.ModelRef
		if model == "" {
			model = desc.BackendModelRef
		}
		return r.Anthropic(model), true

	case core.ProviderOllama, core.ProviderLMStudio, core.ProviderLlamaCpp:
		model := cfg.ModelRef
		if model == "" {
			model = desc.Model
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openaicompat.DefaultBaseURLs[string(cfg.Type)]
		}
		if baseURL == "" {
			return nil, false
		}
		return r.OpenAICompat(cfg.Type, baseURL, model), true

	default:
		// Covers the simulation tag and anything unknown.
		return nil, false
	}
}

// OpenAICompat returns the cached handle for an OpenAI-compatible endpoint,
// creating it on first use.
func (r *Registry) OpenAICompat(ptype core.ProviderType, baseURL, model string) provider.Provider {
	return r.cached(string(ptype), model, func() provider.Provider {
		return openaicompat.New(string(ptype), baseURL, model, func(o *openaicompat.Options) {
			o.Logger = r.opts.Logger
		})
	})
}

// Anthropic returns the cached handle for the hosted Anthropic backend.
func (r *Registry) Anthropic(model string) provider.Provider {
	return r.cached("http-anthropic", model, func() provider.Provider {
		return anthropic.New(model, func(o *anthropic.Options) {
			o.APIKey = r.opts.AnthropicAPIKey
			o.Logger = r.opts.Logger
		})
	})
}

// InProcess returns the cached handle for the in-process runtime. The
// runtime itself additionally caches loaded weights per model reference.
func (r *Registry) InProcess(modelRef string, fourBit, eightBit bool) provider.Provider {
	return r.cached("in-process", modelRef, func() provider.Provider {
		return inproc.New(modelRef, func(o *inproc.Options) {
			o.Engine = r.opts.Engine
			o.ModelsDir = r.opts.ModelsDir
			o.Load = inproc.LoadOptions{LoadIn4Bit: fourBit, LoadIn8Bit: eightBit}
			o.Logger = r.opts.Logger
		})
	})
}

func (r *Registry) cached(ptype, model string, create func() provider.Provider) provider.Provider {
	key := fmt.Sprintf("%s:%s", ptype, model)
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[key]; ok {
		return p
	}
	p := create()
	r.providers[key] = p
	return p
}

// HealthCheckAll probes every default backend endpoint plus the in-process
// runtime. Probes are throwaway handles so an unconfigured backend never
// pollutes the cache.
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]bool {
	results := make(map[string]bool, len(openaicompat.DefaultBaseURLs)+1)

	var wg sync.WaitGroup
	var mu sync.Mutex
	for ptype, baseURL := range openaicompat.DefaultBaseURLs {
		wg.Add(1)
		go func(ptype, baseURL string) {
			defer wg.Done()
			probe := openaicompat.New(ptype, baseURL, "test")
			healthy := probe.HealthCheck(ctx)
			mu.Lock()
			results[ptype] = healthy
			mu.Unlock()
		}(ptype, baseURL)
	}
	wg.Wait()

	results["in-process"] = r.opts.Engine != nil
	return results
}

// ListModelsAll lists models from each reachable default endpoint,
// best-effort.
func (r *Registry) ListModelsAll(ctx context.Context) map[string][]string {
	results := make(map[string][]string, len(openaicompat.DefaultBaseURLs))
	for ptype, baseURL := range openaicompat.DefaultBaseURLs {
		probe := openaicompat.New(ptype, baseURL, "test")
		if probe.HealthCheck(ctx) {
			results[ptype] = probe.ListModels(ctx)
		} else {
			results[ptype] = nil
		}
	}
	return results
}
