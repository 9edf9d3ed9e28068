package core

import "time"

// Role places an agent in the fixed role vocabulary. The role selects the
// canned simulation output when no live backend produces tokens and drives
// per-agent input composition.
type Role string

// Known agent roles.
const (
	RoleRouter      Role = "router"
	RoleCoder       Role = "coder"
	RoleAnalyzer    Role = "analyzer"
	RoleValidator   Role = "validator"
	RoleSynthesizer Role = "synthesizer"
	RoleVision      Role = "vision"
	RoleAssistant   Role = "assistant"
)

// SimulationProfile describes the synthetic execution characteristics used
// when an agent runs without a live backend: token replay rate, the reported
// VRAM figure and the warmup ramp duration.
type SimulationProfile struct {
	TokensPerSec float64       `json:"tokensPerSec" yaml:"tokens_per_sec"`
	VRAMGb       float64       `json:"vramGb" yaml:"vram_gb"`
	Warmup       time.Duration `json:"warmup" yaml:"warmup"`
}

// AgentDescriptor is the immutable execution profile of one agent. It is
// resolved from the agent registry before a run starts and never mutated.
type AgentDescriptor struct {
	// ID is the unique registry key, e.g. "coder-1".
	ID string `json:"id"`
	// Label is the display name shown to callers, e.g. "Code Writer".
	Label string `json:"label"`
	// Model is the display model name, e.g. "Qwen2.5-Coder-7B".
	Model string `json:"model"`
	// BackendModelRef is the identifier used to request inference from a
	// backend, e.g. "Qwen/Qwen2.5-Coder-7B-Instruct".
	BackendModelRef string `json:"backendModelRef"`
	// SystemPrompt is the default instruction, overridable per run.
	SystemPrompt string `json:"systemPrompt"`
	// Role selects simulation output and input composition.
	Role Role `json:"role"`
	// Profile drives the warmup ramp and simulated streaming.
	Profile SimulationProfile `json:"profile"`
}
