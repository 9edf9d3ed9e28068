// Package pipeline implements the orchestration engine: a dynamic execution
// graph built from a router agent's decision, stages executed strictly in
// order with agents inside a stage fanned out concurrently, all token
// streams multiplexed into one ordered event feed, mid-stream tool calls
// intercepted and fed back to the model, and deterministic simulated output
// whenever no live backend produces tokens.
package pipeline

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/hupe1980/agentstudio/agents"
	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/metrics"
	"github.com/hupe1980/agentstudio/provider"
	provreg "github.com/hupe1980/agentstudio/provider/registry"
	"github.com/hupe1980/agentstudio/tool"
)

// ProviderResolver picks a live backend for an agent, or reports none,
// meaning the agent runs on simulated output.
type ProviderResolver interface {
	Resolve(desc core.AgentDescriptor, req core.RunRequest) (provider.Provider, bool)
}

// Options configure a Pipeline.
type Options struct {
	Agents    agents.Store
	Providers ProviderResolver
	Tools     *tool.Dispatcher
	Logger    logging.Logger
	Metrics   *metrics.Metrics
	// StagePause is the fixed pause between stages, UI pacing only.
	StagePause time.Duration
	// EventBufferSize sets channel buffering for the event feed.
	EventBufferSize int
}

// Pipeline drives multi-agent runs. It carries no per-run state and is safe
// for concurrent use; every invocation of Run owns its own RunState.
type Pipeline struct {
	agents          agents.Store
	providers       ProviderResolver
	tools           *tool.Dispatcher
	logger          logging.Logger
	metrics         *metrics.Metrics
	stagePause      time.Duration
	eventBufferSize int
}

// New constructs a Pipeline with optional overrides.
func New(optFns ...func(o *Options)) *Pipeline {
	opts := Options{
		Agents:          agents.NewInMemoryStore(),
		Providers:       provreg.New(),
		Tools:           tool.NewDispatcher(),
		Logger:          logging.NoOpLogger{},
		StagePause:      200 * time.Millisecond,
		EventBufferSize: 100,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Pipeline{
		agents:          opts.Agents,
		providers:       opts.Providers,
		tools:           opts.Tools,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		stagePause:      opts.StagePause,
		eventBufferSize: opts.EventBufferSize,
	}
}

// Run executes one pipeline run and returns its ordered event feed. The
// channel is closed when the run completes or the context is cancelled.
// Cancellation stops event emission; generation calls already dispatched to
// a provider drain in the background.
func (p *Pipeline) Run(ctx context.Context, req core.RunRequest) <-chan core.Event {
	out := make(chan core.Event, p.eventBufferSize)
	go func() {
		defer close(out)
		p.drive(ctx, req, out)
	}()
	return out
}

// run bundles the state of one invocation.
type run struct {
	p     *Pipeline
	ctx   context.Context
	req   core.RunRequest
	state *core.RunState
	out   chan<- core.Event
	// byRole maps each role to the first registered agent id carrying it,
	// used for cross-agent input composition.
	byRole map[core.Role]string
}

// emitFn delivers one event; false means the caller is gone and the run
// should unwind without emitting further events.
type emitFn func(core.Event) bool

// emit sends to the run's event feed, checking for caller disconnect first.
func (r *run) emit(ev core.Event) bool {
	select {
	case <-r.ctx.Done():
		return false
	case r.out <- ev:
		return true
	}
}

func (p *Pipeline) drive(ctx context.Context, req core.RunRequest, out chan<- core.Event) {
	start := time.Now()
	runID := core.NewID()
	p.metrics.RecordPipelineStart()
	p.logger.Info("pipeline started", "run_id", runID, "prompt_chars", len(req.Prompt))

	r := &run{
		p:      p,
		ctx:    ctx,
		req:    req,
		state:  core.NewRunState(),
		out:    out,
		byRole: roleIndex(p.agents),
	}

	router := routerAgent(p.agents)
	specialists := stageTwoEligible(p.agents)

	if !r.emit(core.NewPipelineStartEvent(runID, 2+len(specialists), req.Prompt)) {
		return
	}

	// Stage 1: the router runs alone, synchronously.
	r.runAgent(router, r.emit)
	if ctx.Err() != nil {
		return
	}

	routerOutput, _ := r.state.Output(router.ID)
	directive, found := parseDirective(routerOutput)
	stages := buildStages(p.agents, selectStageTwo(directive, found, specialists))

	for i, stage := range stages {
		stageIndex := i + 1
		if len(stage) > 1 {
			ids := make([]string, len(stage))
			for j, d := range stage {
				ids[j] = d.ID
			}
			if !r.emit(core.NewStageParallelEvent(stageIndex, ids)) {
				return
			}
			r.runParallelStage(stage)
		} else {
			r.runAgent(stage[0], r.emit)
		}
		if ctx.Err() != nil {
			return
		}
		// Fixed short pause between stages smooths UI pacing; it is not a
		// synchronization requirement.
		if i < len(stages)-1 && !sleep(ctx, p.stagePause) {
			return
		}
	}

	total := r.state.TokenTotal()
	dur := time.Since(start)
	p.metrics.ObservePipeline(dur)
	p.logger.Info("pipeline completed", "run_id", runID, "stages", 1+len(stages), "total_tokens", total, "duration", dur)
	r.emit(core.NewPipelineDoneEvent(total, dur.Milliseconds()))
}

// targetAgentsRe extracts the routing directive: the text following the
// marker up to end of line.
var targetAgentsRe = regexp.MustCompile(`\[TARGET_AGENTS\]([^\n]*)`)

// parseDirective returns the lowercased directive text and whether the
// marker was present at all.
func parseDirective(routerOutput string) (string, bool) {
	m := targetAgentsRe.FindStringSubmatch(routerOutput)
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}

// selectStageTwo tests each eligible specialist against the directive by id
// or bare role name, case-insensitively. A missing marker or a directive
// that parses to nothing without explicitly saying "none" conservatively
// selects every specialist.
func selectStageTwo(directive string, found bool, specialists []core.AgentDescriptor) []core.AgentDescriptor {
	if !found {
		return specialists
	}
	var selected []core.AgentDescriptor
	for _, d := range specialists {
		if strings.Contains(directive, strings.ToLower(d.ID)) || strings.Contains(directive, string(d.Role)) {
			selected = append(selected, d)
		}
	}
	if len(selected) == 0 && !strings.Contains(directive, "none") {
		return specialists
	}
	return selected
}

// buildStages constructs the stage sequence after the router: the selected
// specialists (when any), a validator-only stage when a coder ran, and the
// synthesizer-only final stage, always.
func buildStages(store agents.Store, stageTwo []core.AgentDescriptor) [][]core.AgentDescriptor {
	var stages [][]core.AgentDescriptor
	if len(stageTwo) > 0 {
		stages = append(stages, stageTwo)
		for _, d := range stageTwo {
			if d.Role == core.RoleCoder {
				stages = append(stages, []core.AgentDescriptor{roleAgent(store, core.RoleValidator, "validator-1")})
				break
			}
		}
	}
	stages = append(stages, []core.AgentDescriptor{roleAgent(store, core.RoleSynthesizer, "synthesizer-1")})
	return stages
}

// routerAgent resolves the designated router, falling back to a generic
// router profile when the registry carries none.
func routerAgent(store agents.Store) core.AgentDescriptor {
	return roleAgent(store, core.RoleRouter, "router-1")
}

func roleAgent(store agents.Store, role core.Role, fallbackID string) core.AgentDescriptor {
	if d, ok := agents.FirstByRole(store, role); ok {
		return d
	}
	d := agents.Default(fallbackID)
	d.Role = role
	return d
}

// stageTwoEligible returns the registered specialists routable by the
// directive, in registration order.
func stageTwoEligible(store agents.Store) []core.AgentDescriptor {
	var out []core.AgentDescriptor
	for _, d := range store.All() {
		if d.Role == core.RoleCoder || d.Role == core.RoleAnalyzer {
			out = append(out, d)
		}
	}
	return out
}

func roleIndex(store agents.Store) map[core.Role]string {
	idx := make(map[core.Role]string)
	for _, d := range store.All() {
		if _, ok := idx[d.Role]; !ok {
			idx[d.Role] = d.ID
		}
	}
	return idx
}

// sleep waits for d unless the context ends first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
