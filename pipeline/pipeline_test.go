package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/agentstudio/agents"
	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/provider"
)

// testStore builds the builtin roster with profiles fast enough for tests.
func testStore() *agents.InMemoryStore {
	fast := func(d core.AgentDescriptor) core.AgentDescriptor {
		d.Profile.TokensPerSec = 10000
		d.Profile.Warmup = 6 * time.Millisecond
		return d
	}
	var descs []core.AgentDescriptor
	for _, d := range agents.Builtins() {
		descs = append(descs, fast(d))
	}
	return agents.NewInMemoryStore(descs...)
}

// scriptedProvider replays one fragment script per successive Generate call
// and records every request it saw.
type scriptedProvider struct {
	ptype   string
	scripts [][]string
	errs    map[int]error

	mu    sync.Mutex
	calls []provider.GenerateRequest
}

func (p *scriptedProvider) ProviderType() string { return p.ptype }

func (p *scriptedProvider) ModelID() string { return "scripted" }

func (p *scriptedProvider) HealthCheck(context.Context) bool { return true }

func (p *scriptedProvider) ListModels(context.Context) []string { return nil }

func (p *scriptedProvider) Generate(_ context.Context, req provider.GenerateRequest) (<-chan string, <-chan error) {
	p.mu.Lock()
	idx := len(p.calls)
	p.calls = append(p.calls, req)
	var script []string
	if idx < len(p.scripts) {
		script = p.scripts[idx]
	}
	p.mu.Unlock()

	out := make(chan string, len(script))
	errCh := make(chan error, 1)
	for _, s := range script {
		out <- s
	}
	if err := p.errs[idx]; err != nil {
		errCh <- err
	}
	close(out)
	close(errCh)
	return out, errCh
}

func (p *scriptedProvider) request(i int) (provider.GenerateRequest, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= len(p.calls) {
		return provider.GenerateRequest{}, false
	}
	return p.calls[i], true
}

// fakeResolver maps agent ids to scripted providers; unmapped agents run on
// simulation.
type fakeResolver struct {
	byID map[string]provider.Provider
}

func (r fakeResolver) Resolve(desc core.AgentDescriptor, _ core.RunRequest) (provider.Provider, bool) {
	p, ok := r.byID[desc.ID]
	return p, ok
}

func newTestPipeline(resolver ProviderResolver) *Pipeline {
	return New(func(o *Options) {
		o.Agents = testStore()
		if resolver != nil {
			o.Providers = resolver
		}
		o.StagePause = time.Millisecond
	})
}

func collectEvents(t *testing.T, p *Pipeline, req core.RunRequest) []core.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var events []core.Event
	for ev := range p.Run(ctx, req) {
		events = append(events, ev)
	}
	assert.NoError(t, ctx.Err())
	return events
}

func eventsOfType(events []core.Event, typ core.EventType) []core.Event {
	var out []core.Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func agentEvents(events []core.Event, agentID string) []core.Event {
	var out []core.Event
	for _, ev := range events {
		if ev.AgentID == agentID {
			out = append(out, ev)
		}
	}
	return out
}

func startedAgents(events []core.Event) []string {
	var ids []string
	for _, ev := range eventsOfType(events, core.EventAgentStart) {
		ids = append(ids, ev.AgentID)
	}
	return ids
}

func TestRun_SimulatedFullPipeline(t *testing.T) {
	p := newTestPipeline(nil)
	events := collectEvents(t, p, core.RunRequest{Prompt: "Build a REST API"})

	// Envelope: starts with pipeline_start, ends with pipeline_done.
	assert.Equal(t, core.EventPipelineStart, events[0].Type)
	assert.Equal(t, 4, events[0].TotalAgents)
	assert.NotEmpty(t, events[0].RunID)
	assert.Equal(t, core.EventPipelineDone, events[len(events)-1].Type)

	// The simulated router emits no routing directive, so every
	// specialist runs, the validator follows the coder, and the
	// synthesizer closes the run.
	assert.Equal(t,
		[]string{"router-1", "coder-1", "analyzer-1", "validator-1", "synthesizer-1"},
		startedAgents(events))

	// Exactly one parallel stage, announcing the specialists.
	parallel := eventsOfType(events, core.EventStageParallel)
	assert.Len(t, parallel, 1)
	assert.Equal(t, 1, parallel[0].StageIndex)
	assert.ElementsMatch(t, []string{"coder-1", "analyzer-1"}, parallel[0].AgentIDs)

	// Every agent reports simulation and completes.
	done := eventsOfType(events, core.EventAgentDone)
	assert.Len(t, done, 5)
	for _, ev := range done {
		assert.Equal(t, "simulation", ev.Provider)
		assert.Positive(t, ev.TotalTokens)
	}
}

func TestRun_PerAgentLifecycleOrder(t *testing.T) {
	p := newTestPipeline(nil)
	events := collectEvents(t, p, core.RunRequest{Prompt: "task"})

	for _, id := range []string{"router-1", "coder-1", "analyzer-1", "validator-1", "synthesizer-1"} {
		evs := agentEvents(events, id)
		assert.Equal(t, core.EventAgentStart, evs[0].Type, "agent %s", id)
		assert.Equal(t, core.EventAgentDone, evs[len(evs)-1].Type, "agent %s", id)

		// Warmup ramp: six monotonically increasing vram readings right
		// after the start event.
		vram := eventsOfType(evs, core.EventAgentVRAM)
		assert.Len(t, vram, 6, "agent %s", id)
		for i := 1; i < len(vram); i++ {
			assert.Greater(t, vram[i].VRAMGb, vram[i-1].VRAMGb)
		}

		// Token counters grow monotonically per agent.
		tokens := eventsOfType(evs, core.EventAgentToken)
		assert.NotEmpty(t, tokens)
		for i := 1; i < len(tokens); i++ {
			assert.Greater(t, tokens[i].TotalTokens, tokens[i-1].TotalTokens)
		}
		// The final count matches the completion event.
		assert.Equal(t, tokens[len(tokens)-1].TotalTokens, evs[len(evs)-1].TotalTokens)
	}
}

func TestRun_TokenAccounting(t *testing.T) {
	p := newTestPipeline(nil)
	events := collectEvents(t, p, core.RunRequest{Prompt: "task"})

	sum := 0
	for _, ev := range eventsOfType(events, core.EventAgentDone) {
		sum += ev.TotalTokens
	}
	final := events[len(events)-1]
	assert.Equal(t, sum, final.TotalPipelineTokens)
	assert.Positive(t, final.TotalPipelineMs)
}

func TestRun_TokensConcatenateToOutput(t *testing.T) {
	p := newTestPipeline(nil)
	events := collectEvents(t, p, core.RunRequest{Prompt: "task"})

	var sb strings.Builder
	for _, ev := range agentEvents(events, "synthesizer-1") {
		if ev.Type == core.EventAgentToken {
			sb.WriteString(ev.Token)
		}
	}
	concat := sb.String()
	assert.True(t, strings.HasPrefix(concat, "Synthesizing outputs"))
	// Word count of the canned text equals the emitted token total.
	want := len(strings.Split(SimOutput(core.RoleSynthesizer), " "))
	done := eventsOfType(agentEvents(events, "synthesizer-1"), core.EventAgentDone)
	assert.Equal(t, want, done[0].TotalTokens)
}

func TestRun_DirectiveSelectsSingleAgent(t *testing.T) {
	router := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"Routing decision made.\n", "[TARGET_AGENTS] coder-1\n"}},
	}
	p := newTestPipeline(fakeResolver{byID: map[string]provider.Provider{"router-1": router}})

	events := collectEvents(t, p, core.RunRequest{Prompt: "write code"})

	// Only the coder was selected: no analyzer, but the validator stage
	// still follows the coder and the synthesizer still closes the run.
	assert.Equal(t,
		[]string{"router-1", "coder-1", "validator-1", "synthesizer-1"},
		startedAgents(events))

	// Single-agent stages never announce parallelism.
	assert.Empty(t, eventsOfType(events, core.EventStageParallel))
}

func TestRun_DirectiveByRoleName(t *testing.T) {
	router := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"[TARGET_AGENTS] analyzer only, please"}},
	}
	p := newTestPipeline(fakeResolver{byID: map[string]provider.Provider{"router-1": router}})

	events := collectEvents(t, p, core.RunRequest{Prompt: "review"})

	// Role names match case-insensitively; no coder means no validator.
	assert.Equal(t,
		[]string{"router-1", "analyzer-1", "synthesizer-1"},
		startedAgents(events))
}

func TestRun_DirectiveNoneSkipsSpecialists(t *testing.T) {
	router := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"Trivial task.\n", "[TARGET_AGENTS] none"}},
	}
	p := newTestPipeline(fakeResolver{byID: map[string]provider.Provider{"router-1": router}})

	events := collectEvents(t, p, core.RunRequest{Prompt: "hello"})

	assert.Equal(t, []string{"router-1", "synthesizer-1"}, startedAgents(events))
}

func TestRun_DirectiveUnparseableRunsAll(t *testing.T) {
	router := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"[TARGET_AGENTS] whatever sounds right"}},
	}
	p := newTestPipeline(fakeResolver{byID: map[string]provider.Provider{"router-1": router}})

	events := collectEvents(t, p, core.RunRequest{Prompt: "task"})

	// A marker whose text matches nothing, without an explicit "none",
	// conservatively selects every specialist.
	assert.Equal(t,
		[]string{"router-1", "coder-1", "analyzer-1", "validator-1", "synthesizer-1"},
		startedAgents(events))
}

func TestRun_ParallelStageMultiplexesCompletely(t *testing.T) {
	coder := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"a ", "b ", "c ", "d ", "e "}},
	}
	analyzer := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"x ", "y ", "z "}},
	}
	p := newTestPipeline(fakeResolver{byID: map[string]provider.Provider{
		"coder-1":    coder,
		"analyzer-1": analyzer,
	}})

	events := collectEvents(t, p, core.RunRequest{Prompt: "task"})

	coderTokens := eventsOfType(agentEvents(events, "coder-1"), core.EventAgentToken)
	analyzerTokens := eventsOfType(agentEvents(events, "analyzer-1"), core.EventAgentToken)
	assert.Len(t, coderTokens, 5)
	assert.Len(t, analyzerTokens, 3)

	// Both completions arrive before the next stage starts.
	firstValidator := -1
	for i, ev := range events {
		if ev.Type == core.EventAgentStart && ev.AgentID == "validator-1" {
			firstValidator = i
			break
		}
	}
	assert.GreaterOrEqual(t, firstValidator, 0)
	for _, id := range []string{"coder-1", "analyzer-1"} {
		done := eventsOfType(agentEvents(events[:firstValidator], id), core.EventAgentDone)
		assert.Len(t, done, 1, "agent %s must finish before the validator starts", id)
	}
}

func TestRun_UpstreamOutputsFlowDownstream(t *testing.T) {
	router := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"[TARGET_AGENTS] coder-1"}},
	}
	coder := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"func main() {}\n"}},
	}
	validator := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"Looks fine."}},
	}
	p := newTestPipeline(fakeResolver{byID: map[string]provider.Provider{
		"router-1":    router,
		"coder-1":     coder,
		"validator-1": validator,
	}})

	collectEvents(t, p, core.RunRequest{Prompt: "write main"})

	// The validator's prompt embeds the coder's completed output.
	req, ok := validator.request(0)
	assert.True(t, ok)
	assert.Contains(t, req.Prompt, "Review this code:")
	assert.Contains(t, req.Prompt, "func main() {}")

	// The coder's prompt embeds the router decision.
	req, ok = coder.request(0)
	assert.True(t, ok)
	assert.Contains(t, req.Prompt, "Router decision:")
	assert.Contains(t, req.Prompt, "[TARGET_AGENTS] coder-1")
}

func TestRun_LiveFailureFallsBackToSimulation(t *testing.T) {
	coder := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"partial ", "output "}},
		errs:    map[int]error{0: errors.New("connection reset")},
	}
	router := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"[TARGET_AGENTS] coder-1"}},
	}
	p := newTestPipeline(fakeResolver{byID: map[string]provider.Provider{
		"router-1": router,
		"coder-1":  coder,
	}})

	events := collectEvents(t, p, core.RunRequest{Prompt: "task"})

	done := eventsOfType(agentEvents(events, "coder-1"), core.EventAgentDone)
	assert.Len(t, done, 1)
	// The resolved provider label sticks even after the fallback.
	assert.Equal(t, "http-ollama", done[0].Provider)
	// The recorded totals describe the simulated output, not the
	// abandoned partial stream.
	want := len(strings.Split(SimOutput(core.RoleCoder), " "))
	assert.Equal(t, want, done[0].TotalTokens)
}

func TestRun_CancellationClosesStream(t *testing.T) {
	p := New(func(o *Options) {
		o.Agents = testStore()
		o.StagePause = time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	ch := p.Run(ctx, core.RunRequest{Prompt: "task"})

	// Let the run produce something, then disconnect.
	<-ch
	cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event stream not closed after cancellation")
		}
	}
}

func TestParseDirective(t *testing.T) {
	tests := []struct {
		output    string
		want      string
		wantFound bool
	}{
		{"no marker here", "", false},
		{"[TARGET_AGENTS] coder-1, analyzer-1\nnext line", " coder-1, analyzer-1", true},
		{"prefix [TARGET_AGENTS] NONE", " none", true},
		{"[TARGET_AGENTS]", "", true},
	}
	for _, tt := range tests {
		got, found := parseDirective(tt.output)
		assert.Equal(t, tt.wantFound, found, "output %q", tt.output)
		assert.Equal(t, tt.want, got, "output %q", tt.output)
	}
}

func TestSelectStageTwo(t *testing.T) {
	store := testStore()
	specialists := stageTwoEligible(store)
	assert.Len(t, specialists, 2)

	ids := func(descs []core.AgentDescriptor) []string {
		var out []string
		for _, d := range descs {
			out = append(out, d.ID)
		}
		return out
	}

	assert.Equal(t, []string{"coder-1", "analyzer-1"}, ids(selectStageTwo("", false, specialists)))
	assert.Equal(t, []string{"coder-1"}, ids(selectStageTwo(" coder-1", true, specialists)))
	assert.Equal(t, []string{"analyzer-1"}, ids(selectStageTwo(" run the analyzer", true, specialists)))
	assert.Empty(t, selectStageTwo(" none", true, specialists))
	assert.Equal(t, []string{"coder-1", "analyzer-1"}, ids(selectStageTwo(" gibberish", true, specialists)))
}
