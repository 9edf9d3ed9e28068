package agents

import (
	"time"

	"github.com/hupe1980/agentstudio/core"
)

// Builtins returns the default five-agent pipeline roster. Profile figures
// approximate the real models' local throughput and footprint and drive the
// warmup ramp plus simulated replay.
func Builtins() []core.AgentDescriptor {
	return []core.AgentDescriptor{
		{
			ID:              "router-1",
			Label:           "Router",
			Model:           "Qwen2.5-3B-Instruct",
			BackendModelRef: "Qwen/Qwen2.5-3B-Instruct",
			SystemPrompt: "You are a task routing system. Analyze the user request briefly. " +
				"Classify the task type, estimate complexity, and decide which specialist " +
				"agents are needed: 'coder-1' (for coding/programming), 'analyzer-1' (for architecture/security review).\n\n" +
				"CRITICAL: You MUST include a line exactly like this in your response:\n" +
				"[TARGET_AGENTS] coder-1, analyzer-1\n" +
				"If no specialists are needed (e.g. general chat), output: [TARGET_AGENTS] none",
			Role:    core.RoleRouter,
			Profile: core.SimulationProfile{TokensPerSec: 52, VRAMGb: 2.4, Warmup: 400 * time.Millisecond},
		},
		{
			ID:              "coder-1",
			Label:           "Code Writer",
			Model:           "Qwen2.5-Coder-7B",
			BackendModelRef: "Qwen/Qwen2.5-Coder-7B-Instruct",
			SystemPrompt: "You are an expert programmer. Generate clean, working code for the task. " +
				"Include type hints and brief comments. Keep the implementation concise.",
			Role:    core.RoleCoder,
			Profile: core.SimulationProfile{TokensPerSec: 34, VRAMGb: 5.1, Warmup: 700 * time.Millisecond},
		},
		{
			ID:              "analyzer-1",
			Label:           "Analyzer",
			Model:           "Gemma-3-4B-IT",
			BackendModelRef: "google/gemma-3-4b-it",
			SystemPrompt: "You are a technical analyst. Review the task and any code provided. " +
				"Identify security issues, performance concerns, and give brief recommendations.",
			Role:    core.RoleAnalyzer,
			Profile: core.SimulationProfile{TokensPerSec: 41, VRAMGb: 3.1, Warmup: 500 * time.Millisecond},
		},
		{
			ID:              "validator-1",
			Label:           "Validator",
			Model:           "Phi-4-mini-4B",
			BackendModelRef: "microsoft/phi-4-mini-instruct",
			SystemPrompt: "You are a code quality expert. Score the provided code out of 100 for " +
				"quality and security. List top 3 issues. Give a final verdict: APPROVED or NEEDS_REVISION.",
			Role:    core.RoleValidator,
			Profile: core.SimulationProfile{TokensPerSec: 58, VRAMGb: 3.3, Warmup: 400 * time.Millisecond},
		},
		{
			ID:              "synthesizer-1",
			Label:           "Synthesizer",
			Model:           "Llama-3.1-8B-Instruct",
			BackendModelRef: "meta-llama/Llama-3.1-8B-Instruct",
			SystemPrompt: "You are a technical writer. Synthesize the outputs from all agents into " +
				"a clear final summary. Include: implementation overview, quality score, " +
				"top recommendations. Be concise.",
			Role:    core.RoleSynthesizer,
			Profile: core.SimulationProfile{TokensPerSec: 26, VRAMGb: 5.9, Warmup: 800 * time.Millisecond},
		},
	}
}
