// Package inproc implements the provider contract for an in-process
// inference runtime. Model weights are expensive to load, so loaded
// sessions are cached process-wide per model reference and loading happens
// at most once per reference, even under concurrent first requests.
//
// The actual forward-pass implementation is pluggable through Engine; the
// orchestration core only depends on the capability contract. Without an
// engine configured the provider reports unhealthy and the pipeline falls
// back to simulation.
package inproc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/provider"
)

// LoadOptions carry quantization flags through to the engine.
type LoadOptions struct {
	LoadIn4Bit bool
	LoadIn8Bit bool
}

// Engine loads model weights and produces inference sessions.
type Engine interface {
	Load(modelPath string, opts LoadOptions) (Session, error)
}

// Session is a loaded model ready to complete prompts. Completion streams
// fragments on the first channel; the error channel is buffered (size 1)
// and both channels are closed when generation ends.
type Session interface {
	Complete(ctx context.Context, prompt, systemPrompt string, maxTokens int, temperature float64) (<-chan string, <-chan error)
}

// loadEntry holds the once-per-reference load discipline.
type loadEntry struct {
	once    sync.Once
	session Session
	err     error
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*loadEntry{}
)

// entryFor returns the cache entry for a model reference, creating it
// idempotently. The returned entry's once gate guarantees a single load.
func entryFor(modelRef string) *loadEntry {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	e, ok := cache[modelRef]
	if !ok {
		e = &loadEntry{}
		cache[modelRef] = e
	}
	return e
}

// LoadedModels returns the references with a successfully loaded session.
func LoadedModels() []string {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	var refs []string
	for ref, e := range cache {
		if e.session != nil {
			refs = append(refs, ref)
		}
	}
	return refs
}

// ResetCache drops all cached sessions. Intended for tests.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = map[string]*loadEntry{}
}

// Options configure an in-process Provider.
type Options struct {
	// Engine performs the actual inference. Nil means no runtime is
	// available and HealthCheck reports false.
	Engine Engine
	// ModelsDir is the root of locally stored weights, laid out as
	// <org>--<name> folders either flat or grouped in role subfolders.
	ModelsDir string
	Load      LoadOptions
	Logger    logging.Logger
}

// Provider serves generation from weights loaded into this process.
type Provider struct {
	modelRef string
	opts     Options
}

// New creates an in-process provider for one model reference.
func New(modelRef string, optFns ...func(o *Options)) *Provider {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{modelRef: modelRef, opts: opts}
}

// ProviderType implements provider.Provider.
func (p *Provider) ProviderType() string { return "in-process" }

// ModelID implements provider.Provider.
func (p *Provider) ModelID() string { return p.modelRef }

// session returns the cached session for this model reference, loading the
// weights on first use. Concurrent first requests share one load.
func (p *Provider) session() (Session, error) {
	if p.opts.Engine == nil {
		return nil, fmt.Errorf("no in-process engine configured")
	}
	e := entryFor(p.modelRef)
	e.once.Do(func() {
		path := ResolveModelPath(p.opts.ModelsDir, p.modelRef)
		p.opts.Logger.Info("loading model weights", "model_ref", p.modelRef, "path", path)
		e.session, e.err = p.opts.Engine.Load(path, p.opts.Load)
	})
	return e.session, e.err
}

// Generate implements provider.Provider. Loading and inference happen on a
// background worker; the caller only observes the token channel.
func (p *Provider) Generate(ctx context.Context, req provider.GenerateRequest) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		sess, err := p.session()
		if err != nil {
			errCh <- fmt.Errorf("load %s: %w", p.modelRef, err)
			return
		}

		tokens, errs := sess.Complete(ctx, req.Prompt, req.SystemPrompt, req.MaxTokens, req.Temperature)
		for tok := range tokens {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- tok:
			}
		}
		if err, ok := <-errs; ok && err != nil {
			errCh <- fmt.Errorf("in-process generation: %w", err)
		}
	}()

	return out, errCh
}

// HealthCheck implements provider.Provider. The runtime is healthy when an
// engine is configured; load failures surface later as generation errors
// that the runner degrades to simulation.
func (p *Provider) HealthCheck(context.Context) bool { return p.opts.Engine != nil }

// ListModels implements provider.Provider with the loaded references.
func (p *Provider) ListModels(context.Context) []string { return LoadedModels() }

// ResolveModelPath maps a model reference like "org/name" to a local
// weights folder under modelsDir. It checks the flat layout
// modelsDir/<org>--<name> first, then one level of role subfolders. When no
// valid local copy exists the bare reference is returned so the engine can
// fall back to its own cache.
func ResolveModelPath(modelsDir, modelRef string) string {
	if modelsDir == "" {
		return modelRef
	}
	folder := strings.ReplaceAll(modelRef, "/", "--")

	flat := filepath.Join(modelsDir, folder)
	if validModelDir(flat) {
		return flat
	}

	entries, err := os.ReadDir(modelsDir)
	if err != nil {
		return modelRef
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(modelsDir, entry.Name(), folder)
		if validModelDir(candidate) {
			return candidate
		}
	}
	return modelRef
}

// validModelDir reports whether dir holds a loadable model: a config.json
// next to at least one weights file.
func validModelDir(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		return false
	}
	for _, pattern := range []string{"*.safetensors", "*.bin"} {
		matches, _ := filepath.Glob(filepath.Join(dir, pattern))
		if len(matches) > 0 {
			return true
		}
	}
	return false
}
