package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/provider"
	"github.com/hupe1980/agentstudio/tool"
)

const (
	// warmupSteps is the number of evenly spaced vram ramp events per agent.
	warmupSteps = 6
	// toolResultEventMax bounds the tool_result event payload.
	toolResultEventMax = 500
)

// agentResult is the completion accounting of one agent invocation.
type agentResult struct {
	AgentID string
	Tokens  int
}

// accumulator tracks one agent's output text and token count.
type accumulator struct {
	sb     strings.Builder
	tokens int
	start  time.Time
}

// addLive counts a backend fragment as at least one token, one per word.
func (a *accumulator) addLive(fragment string) {
	a.sb.WriteString(fragment)
	n := len(strings.Fields(fragment))
	if n < 1 {
		n = 1
	}
	a.tokens += n
}

// addSim counts one simulated word chunk.
func (a *accumulator) addSim(chunk string) {
	a.sb.WriteString(chunk)
	a.tokens++
}

// reset discards everything accumulated so far. Used when a live stream is
// abandoned and the agent switches to simulation from scratch.
func (a *accumulator) reset() {
	a.sb.Reset()
	a.tokens = 0
}

// tps is the instantaneous tokens/sec over elapsed wall time.
func (a *accumulator) tps() float64 {
	elapsed := time.Since(a.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return round1(float64(a.tokens) / elapsed)
}

// runAgent drives one agent through its full state machine:
//
//	START → WARMUP → STREAMING → [TOOL_DETECTED → TOOL_EXEC → RESTREAM] → DONE
//
// No failure propagates out of here; every failure mode degrades to
// simulated or truncated output. An early return without agent_done only
// happens on caller disconnect.
func (r *run) runAgent(desc core.AgentDescriptor, emit emitFn) agentResult {
	p := r.p
	cfg, _ := r.req.ConfigFor(desc.ID)
	prov, live := p.providers.Resolve(desc, r.req)

	providerName := "simulation"
	if live {
		providerName = prov.ProviderType()
	}

	if !emit(core.NewAgentStartEvent(desc.ID, desc.Label, desc.Model, providerName)) {
		return agentResult{AgentID: desc.ID}
	}

	// Deterministic warmup ramp, an observability aid rather than a
	// resource reservation.
	step := desc.Profile.Warmup / warmupSteps
	for i := 1; i <= warmupSteps; i++ {
		if !sleep(r.ctx, step) {
			return agentResult{AgentID: desc.ID}
		}
		if !emit(core.NewVRAMEvent(desc.ID, round2(desc.Profile.VRAMGb*float64(i)/warmupSteps))) {
			return agentResult{AgentID: desc.ID}
		}
	}

	input := r.agentInput(desc)
	sysPrompt := systemPrompt(desc, cfg)
	acc := &accumulator{start: time.Now()}

	streamed := false
	if live {
		if prov.HealthCheck(r.ctx) {
			streamed = r.streamLive(prov, desc, cfg, input, sysPrompt, acc, emit)
		} else {
			p.logger.Warn("provider unreachable, falling back to simulation",
				"agent_id", desc.ID, "provider", providerName)
		}
		if r.ctx.Err() != nil {
			return agentResult{AgentID: desc.ID}
		}
		if !streamed {
			p.metrics.RecordFallback()
		}
	}
	if !streamed {
		// The whole agent switches to simulation as if no live tokens were
		// produced; anything already on the wire stays there.
		acc.reset()
		r.streamSimulation(desc, acc, emit)
		if r.ctx.Err() != nil {
			return agentResult{AgentID: desc.ID}
		}
	}

	if call, ok := tool.DetectCall(acc.sb.String()); ok && cfg.ToolAllowed(call.Name) {
		if !r.executeTool(prov, live, desc, cfg, input, sysPrompt, call, acc, emit) {
			return agentResult{AgentID: desc.ID}
		}
	}

	// Store the full output before emitting agent_done so a later stage
	// that observed the completion event always reads a populated entry.
	output := acc.sb.String()
	r.state.SetOutput(desc.ID, output)
	r.state.SetTokens(desc.ID, acc.tokens)

	latency := time.Since(acc.start)
	latencyMs := latency.Milliseconds()
	avg := float64(acc.tokens) / math.Max(float64(latencyMs)/1000.0, 0.001)

	p.metrics.RecordAgentDone(providerName, acc.tokens)
	p.logger.Info("agent completed",
		"agent_id", desc.ID, "provider", providerName, "tokens", acc.tokens, "duration", latency)

	emit(core.NewAgentDoneEvent(desc.ID, acc.tokens, round1(avg), latencyMs, desc.Profile.VRAMGb, providerName))
	return agentResult{AgentID: desc.ID, Tokens: acc.tokens}
}

// streamLive streams tokens from a healthy backend. It reports false when
// the stream failed and the agent must fall back to simulation. Generation
// runs on an uncancellable context: a disconnected caller stops emission,
// but the dispatched call drains in the background so shared provider
// caches stay consistent.
func (r *run) streamLive(
	prov provider.Provider,
	desc core.AgentDescriptor,
	cfg core.AgentRunConfig,
	input, sysPrompt string,
	acc *accumulator,
	emit emitFn,
) bool {
	tokens, errs := prov.Generate(context.WithoutCancel(r.ctx), provider.GenerateRequest{
		Prompt:       input,
		SystemPrompt: sysPrompt,
		MaxTokens:    cfg.MaxTokensOrDefault(),
		Temperature:  cfg.TemperatureOrDefault(),
	})
	for fragment := range tokens {
		acc.addLive(fragment)
		if !emit(core.NewTokenEvent(desc.ID, fragment, acc.tokens, acc.tps())) {
			go drain(tokens, errs)
			return false
		}
	}
	if err, ok := <-errs; ok && err != nil {
		r.p.logger.Warn("provider failed, falling back to simulation",
			"agent_id", desc.ID, "provider", prov.ProviderType(), "error", err)
		return false
	}
	return true
}

// executeTool runs the TOOL_EXEC and RESTREAM phases. It reports false only
// on caller disconnect.
func (r *run) executeTool(
	prov provider.Provider,
	live bool,
	desc core.AgentDescriptor,
	cfg core.AgentRunConfig,
	input, sysPrompt string,
	call tool.Call,
	acc *accumulator,
	emit emitFn,
) bool {
	p := r.p

	// One correlation id ties the call event to its result event.
	callID := core.NewID()

	if !emit(core.NewToolCallEvent(desc.ID, callID, call.Name, call.Arguments)) {
		return false
	}

	result, ok := p.tools.Execute(context.WithoutCancel(r.ctx), call.Name, call.Arguments)
	status := "ok"
	if !ok {
		status = "error"
	}
	p.metrics.RecordTool(call.Name, status)

	if !emit(core.NewToolResultEvent(desc.ID, callID, call.Name, tool.Truncate(result, toolResultEventMax))) {
		return false
	}

	// Synthetic transcript token announcing the result. Appended to the
	// accumulated output as well, so the emitted fragments always
	// concatenate to the recorded full text.
	announcement := fmt.Sprintf("\n\n[SYSTEM: %s returned %d chars]\n\n", call.Name, len(result))
	acc.sb.WriteString(announcement)
	if !emit(core.NewTokenEvent(desc.ID, announcement, acc.tokens, 0)) {
		return false
	}

	// RESTREAM happens only against a live handle; simulated agents keep
	// the announced result as their final word on the matter.
	if !live {
		return true
	}

	args, _ := json.Marshal(call.Arguments)
	followUp := fmt.Sprintf(
		"%s\n\n[TOOL RESULT for %s(%s)]:\n%s\n\nNow provide a final response strictly based on the tool result above.",
		input, call.Name, args, result)

	tokens, errs := prov.Generate(context.WithoutCancel(r.ctx), provider.GenerateRequest{
		Prompt:       followUp,
		SystemPrompt: sysPrompt,
		MaxTokens:    cfg.MaxTokensOrDefault(),
		Temperature:  cfg.TemperatureOrDefault(),
	})

	// Restream fragments are buffered and folded into the recorded output
	// only on clean completion. On failure the pre-tool text stands as
	// final; fragments already on the wire stay there.
	var restream strings.Builder
	restreamTokens := 0
	for fragment := range tokens {
		restream.WriteString(fragment)
		n := len(strings.Fields(fragment))
		if n < 1 {
			n = 1
		}
		restreamTokens += n
		if !emit(core.NewTokenEvent(desc.ID, fragment, acc.tokens+restreamTokens, acc.tps())) {
			go drain(tokens, errs)
			return false
		}
	}
	if err, ok := <-errs; ok && err != nil {
		p.logger.Warn("re-prompt after tool failed",
			"agent_id", desc.ID, "tool", call.Name, "error", err)
		return true
	}
	acc.sb.WriteString(restream.String())
	acc.tokens += restreamTokens
	return true
}

// systemPrompt resolves the effective system prompt: per-run override over
// the descriptor default, plus the tool instruction block when tools are
// enabled for the agent.
func systemPrompt(desc core.AgentDescriptor, cfg core.AgentRunConfig) string {
	base := desc.SystemPrompt
	if cfg.SystemPrompt != "" {
		base = cfg.SystemPrompt
	}
	if addon := tool.PromptAddon(cfg.Tools); addon != "" {
		base += addon
	}
	return base
}

// drain consumes an abandoned generation stream to completion.
func drain(tokens <-chan string, errs <-chan error) {
	for range tokens {
	}
	for range errs {
	}
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }

func round2(x float64) float64 { return math.Round(x*100) / 100 }
