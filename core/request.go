package core

// ProviderType tags a backend variant. The tag selects the factory used to
// construct a provider handle; "simulation" always resolves to no handle.
type ProviderType string

// Supported provider type tags.
const (
	ProviderSimulation ProviderType = "simulation"
	ProviderOllama     ProviderType = "http-ollama"
	ProviderLMStudio   ProviderType = "http-lmstudio"
	ProviderLlamaCpp   ProviderType = "http-llamacpp"
	ProviderAnthropic  ProviderType = "http-anthropic"
	ProviderInProcess  ProviderType = "in-process"
)

// ProviderConfig selects and parameterizes a backend for one or all agents.
type ProviderConfig struct {
	Type ProviderType `json:"type" yaml:"type"`
	// BaseURL overrides the default endpoint of an HTTP-backed type.
	BaseURL string `json:"baseUrl,omitempty" yaml:"base_url,omitempty"`
	// ModelRef overrides the descriptor's model reference.
	ModelRef string `json:"modelRef,omitempty" yaml:"model_ref,omitempty"`
	// Quantization flags for the in-process runtime.
	LoadIn4Bit bool `json:"loadIn4Bit,omitempty" yaml:"load_in_4bit,omitempty"`
	LoadIn8Bit bool `json:"loadIn8Bit,omitempty" yaml:"load_in_8bit,omitempty"`
}

// AgentRunConfig carries per-agent overrides for one run.
type AgentRunConfig struct {
	AgentID string `json:"agentId"`
	// Provider, when non-nil, replaces the request's default provider config
	// for this agent.
	Provider *ProviderConfig `json:"provider,omitempty"`
	// SystemPrompt, when non-empty, replaces the descriptor's system prompt.
	SystemPrompt string `json:"systemPrompt,omitempty"`
	// MaxTokens bounds generation; zero means the default of 512.
	MaxTokens int `json:"maxTokens,omitempty"`
	// Temperature is the sampling temperature; zero means the default 0.7.
	Temperature float64 `json:"temperature,omitempty"`
	// Tools is the explicit allow-list of tools this agent may invoke.
	// An empty list means no allow-list was configured: any detected tool
	// call is honored.
	Tools []string `json:"tools,omitempty"`
}

// Defaults applied when an AgentRunConfig leaves a field unset.
const (
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.7
)

// RunRequest is the caller input for one pipeline run. It is immutable for
// the duration of the run.
type RunRequest struct {
	Prompt          string           `json:"prompt"`
	UseRealModels   bool             `json:"useRealModels"`
	DefaultProvider ProviderConfig   `json:"defaultProvider"`
	AgentConfigs    []AgentRunConfig `json:"agentConfigs,omitempty"`
}

// ConfigFor returns the per-agent override config, when one was supplied.
func (r RunRequest) ConfigFor(agentID string) (AgentRunConfig, bool) {
	for _, c := range r.AgentConfigs {
		if c.AgentID == agentID {
			return c, true
		}
	}
	return AgentRunConfig{}, false
}

// MaxTokensOrDefault resolves the effective generation bound.
func (c AgentRunConfig) MaxTokensOrDefault() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return DefaultMaxTokens
}

// TemperatureOrDefault resolves the effective sampling temperature.
func (c AgentRunConfig) TemperatureOrDefault() float64 {
	if c.Temperature > 0 {
		return c.Temperature
	}
	return DefaultTemperature
}

// ToolAllowed reports whether a detected tool call may be executed: either
// the tool is explicitly enabled, or no allow-list was configured at all.
func (c AgentRunConfig) ToolAllowed(name string) bool {
	if len(c.Tools) == 0 {
		return true
	}
	for _, t := range c.Tools {
		if t == name {
			return true
		}
	}
	return false
}
