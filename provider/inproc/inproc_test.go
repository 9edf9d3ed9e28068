package inproc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/agentstudio/provider"
)

// fakeEngine counts loads and hands out scripted sessions.
type fakeEngine struct {
	loads   atomic.Int32
	loadErr error
	tokens  []string
}

func (e *fakeEngine) Load(string, LoadOptions) (Session, error) {
	e.loads.Add(1)
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	return &fakeSession{tokens: e.tokens}, nil
}

type fakeSession struct {
	tokens []string
}

func (s *fakeSession) Complete(_ context.Context, _, _ string, _ int, _ float64) (<-chan string, <-chan error) {
	out := make(chan string, len(s.tokens))
	errCh := make(chan error, 1)
	for _, tok := range s.tokens {
		out <- tok
	}
	close(out)
	close(errCh)
	return out, errCh
}

func collect(t *testing.T, tokens <-chan string, errs <-chan error) (string, error) {
	t.Helper()
	var sb []byte
	for tok := range tokens {
		sb = append(sb, tok...)
	}
	if err, ok := <-errs; ok && err != nil {
		return string(sb), err
	}
	return string(sb), nil
}

func TestGenerate_StreamsFromSession(t *testing.T) {
	ResetCache()
	engine := &fakeEngine{tokens: []string{"hello ", "world"}}
	p := New("org/model", func(o *Options) { o.Engine = engine })

	tokens, errs := p.Generate(t.Context(), provider.GenerateRequest{Prompt: "hi"})
	text, err := collect(t, tokens, errs)
	assert.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestGenerate_NoEngine(t *testing.T) {
	ResetCache()
	p := New("org/model")

	assert.False(t, p.HealthCheck(t.Context()))

	tokens, errs := p.Generate(t.Context(), provider.GenerateRequest{})
	_, err := collect(t, tokens, errs)
	assert.Error(t, err)
}

func TestGenerate_LoadErrorPropagates(t *testing.T) {
	ResetCache()
	engine := &fakeEngine{loadErr: errors.New("weights corrupt")}
	p := New("org/broken", func(o *Options) { o.Engine = engine })

	tokens, errs := p.Generate(t.Context(), provider.GenerateRequest{})
	_, err := collect(t, tokens, errs)
	assert.ErrorContains(t, err, "weights corrupt")
}

func TestSession_LoadedOncePerReference(t *testing.T) {
	ResetCache()
	engine := &fakeEngine{tokens: []string{"x"}}
	p := New("org/model", func(o *Options) { o.Engine = engine })

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens, errs := p.Generate(context.Background(), provider.GenerateRequest{})
			_, _ = collect(t, tokens, errs)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), engine.loads.Load())
	assert.Equal(t, []string{"org/model"}, LoadedModels())
}

func writeModelDir(t *testing.T, dir string) {
	t.Helper()
	assert.NoError(t, os.MkdirAll(dir, 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0o600))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "model.safetensors"), []byte("w"), 0o600))
}

func TestResolveModelPath(t *testing.T) {
	modelsDir := t.TempDir()

	// Flat layout.
	flat := filepath.Join(modelsDir, "Qwen--Qwen2.5-Coder-7B-Instruct")
	writeModelDir(t, flat)
	assert.Equal(t, flat, ResolveModelPath(modelsDir, "Qwen/Qwen2.5-Coder-7B-Instruct"))

	// Role subfolder layout.
	nested := filepath.Join(modelsDir, "coder", "org--nested-model")
	writeModelDir(t, nested)
	assert.Equal(t, nested, ResolveModelPath(modelsDir, "org/nested-model"))

	// Unknown reference falls through unchanged.
	assert.Equal(t, "org/absent", ResolveModelPath(modelsDir, "org/absent"))
	assert.Equal(t, "org/x", ResolveModelPath("", "org/x"))
}

func TestResolveModelPath_IncompleteDirRejected(t *testing.T) {
	modelsDir := t.TempDir()
	// config.json without weights does not count as a local copy.
	dir := filepath.Join(modelsDir, "org--half")
	assert.NoError(t, os.MkdirAll(dir, 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0o600))

	assert.Equal(t, "org/half", ResolveModelPath(modelsDir, "org/half"))
}
