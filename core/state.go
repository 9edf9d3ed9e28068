package core

import "sync"

// RunState is the mutable state of exactly one pipeline run. Completed agent
// outputs and token totals grow monotonically; an entry is written once by
// the agent that produced it and never edited afterwards.
//
// Agents in a parallel stage write concurrently, so access is guarded. A
// later stage reading an upstream output after observing that agent's
// completion event is guaranteed to see a fully populated entry because the
// runner stores the output before emitting agent_done.
type RunState struct {
	mu      sync.RWMutex
	outputs map[string]string
	tokens  map[string]int
}

// NewRunState creates empty per-run state.
func NewRunState() *RunState {
	return &RunState{
		outputs: make(map[string]string),
		tokens:  make(map[string]int),
	}
}

// SetOutput records an agent's full accumulated text. First write wins;
// outputs are never revised once stored.
func (s *RunState) SetOutput(agentID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.outputs[agentID]; exists {
		return
	}
	s.outputs[agentID] = text
}

// Output returns an agent's completed output, when present.
func (s *RunState) Output(agentID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.outputs[agentID]
	return text, ok
}

// Outputs returns a copy of all completed outputs keyed by agent id.
func (s *RunState) Outputs() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.outputs))
	for k, v := range s.outputs {
		out[k] = v
	}
	return out
}

// SetTokens records an agent's final token total for run accounting.
func (s *RunState) SetTokens(agentID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[agentID] = n
}

// TokenTotal returns the sum of all recorded per-agent token totals.
func (s *RunState) TokenTotal() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, n := range s.tokens {
		total += n
	}
	return total
}
