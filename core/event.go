package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// EventType discriminates the wire-level event union streamed to callers.
type EventType string

// Event types emitted over the lifetime of one pipeline run.
const (
	EventPipelineStart EventType = "pipeline_start"
	EventAgentStart    EventType = "agent_start"
	EventAgentVRAM     EventType = "agent_vram"
	EventAgentToken    EventType = "agent_token"
	EventToolCall      EventType = "tool_call"
	EventToolResult    EventType = "tool_result"
	EventAgentDone     EventType = "agent_done"
	EventStageParallel EventType = "stage_parallel"
	EventPipelineDone  EventType = "pipeline_done"
	EventPipelineError EventType = "pipeline_error"
)

// Event is the single unit of output produced by a pipeline run. The
// sequence of events is append-only; once emitted an event is never revised.
// Fields are populated per Type; unused fields stay at their zero value and
// are omitted from the wire encoding, except the token accounting pair which
// is always encoded so a zero throughput remains visible.
type Event struct {
	Type EventType `json:"type"`

	// Agent-scoped fields.
	AgentID      string  `json:"agentId,omitempty"`
	Label        string  `json:"label,omitempty"`
	Model        string  `json:"model,omitempty"`
	Provider     string  `json:"provider,omitempty"`
	Token        string  `json:"token,omitempty"`
	TotalTokens  int     `json:"totalTokens"`
	TokensPerSec float64 `json:"tokensPerSec"`
	LatencyMs    int64   `json:"latencyMs,omitempty"`
	VRAMGb       float64 `json:"vramGb,omitempty"`

	// Tool-scoped fields.
	Tool      string         `json:"tool,omitempty"`
	CallID    string         `json:"callId,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    string         `json:"result,omitempty"`

	// Stage / pipeline-scoped fields.
	RunID               string   `json:"runId,omitempty"`
	StageIndex          int      `json:"stageIndex,omitempty"`
	AgentIDs            []string `json:"agentIds,omitempty"`
	TotalAgents         int      `json:"totalAgents,omitempty"`
	TotalPipelineTokens int      `json:"totalPipelineTokens,omitempty"`
	TotalPipelineMs     int64    `json:"totalPipelineMs,omitempty"`
	Prompt              string   `json:"prompt,omitempty"`
	Message             string   `json:"message,omitempty"`
}

// NewPipelineStartEvent announces the beginning of a run. The prompt is
// clipped to 120 characters for display purposes.
func NewPipelineStartEvent(runID string, totalAgents int, prompt string) Event {
	return Event{Type: EventPipelineStart, RunID: runID, TotalAgents: totalAgents, Prompt: clip(prompt, 120)}
}

// NewAgentStartEvent announces that an agent entered its run state machine.
// Provider carries the resolved provider label or "simulation".
func NewAgentStartEvent(agentID, label, model, provider string) Event {
	return Event{Type: EventAgentStart, AgentID: agentID, Label: label, Model: model, Provider: provider}
}

// NewVRAMEvent reports one step of the deterministic warmup ramp.
func NewVRAMEvent(agentID string, vramGb float64) Event {
	return Event{Type: EventAgentVRAM, AgentID: agentID, VRAMGb: vramGb}
}

// NewTokenEvent carries one streamed text fragment together with the running
// token count and the instantaneous throughput.
func NewTokenEvent(agentID, token string, totalTokens int, tokensPerSec float64) Event {
	return Event{Type: EventAgentToken, AgentID: agentID, Token: token, TotalTokens: totalTokens, TokensPerSec: tokensPerSec}
}

// NewToolCallEvent reports a detected mid-stream tool call before execution.
// The callID correlates the call with its later tool_result event.
func NewToolCallEvent(agentID, callID, tool string, args map[string]any) Event {
	return Event{Type: EventToolCall, AgentID: agentID, CallID: callID, Tool: tool, Arguments: args}
}

// NewToolResultEvent reports tool output, already truncated by the runner.
func NewToolResultEvent(agentID, callID, tool, result string) Event {
	return Event{Type: EventToolResult, AgentID: agentID, CallID: callID, Tool: tool, Result: result}
}

// NewAgentDoneEvent closes an agent's run with its completion accounting.
func NewAgentDoneEvent(agentID string, totalTokens int, tokensPerSec float64, latencyMs int64, vramGb float64, provider string) Event {
	return Event{
		Type:         EventAgentDone,
		AgentID:      agentID,
		TotalTokens:  totalTokens,
		TokensPerSec: tokensPerSec,
		LatencyMs:    latencyMs,
		VRAMGb:       vramGb,
		Provider:     provider,
	}
}

// NewStageParallelEvent lists the agents about to run concurrently.
func NewStageParallelEvent(stageIndex int, agentIDs []string) Event {
	return Event{Type: EventStageParallel, StageIndex: stageIndex, AgentIDs: agentIDs}
}

// NewPipelineDoneEvent closes the run with aggregate accounting.
func NewPipelineDoneEvent(totalTokens int, totalMs int64) Event {
	return Event{Type: EventPipelineDone, TotalPipelineTokens: totalTokens, TotalPipelineMs: totalMs}
}

// NewPipelineErrorEvent reports a transport-level failure to the caller.
func NewPipelineErrorEvent(message string) Event {
	return Event{Type: EventPipelineError, Message: message}
}

// SSE renders the event as one newline-delimited server-sent-events line
// ("data: {json}\n\n"). Marshal failures cannot occur for Event's field set,
// but are surfaced as a pipeline_error payload to keep the feed well formed.
func (e Event) SSE() string {
	b, err := json.Marshal(e)
	if err != nil {
		b, _ = json.Marshal(Event{Type: EventPipelineError, Message: fmt.Sprintf("encode: %v", err)})
	}
	return "data: " + string(b) + "\n\n"
}

// ParseSSE decodes a single "data: " prefixed line back into an Event.
// The boolean reports whether the line carried a decodable event.
func ParseSSE(line string) (Event, bool) {
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\n")
	payload, ok := strings.CutPrefix(line, "data: ")
	if !ok {
		return Event{}, false
	}
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return Event{}, false
	}
	return e, true
}

// NewID generates a unique identifier for runs and tool call correlation.
func NewID() string { return uuid.NewString() }

// clip bounds s to n characters, never cutting inside a multi-byte rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
