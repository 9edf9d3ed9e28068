package agents

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentstudio/core"
)

// fileSpec is the YAML schema for agent roster files.
type fileSpec struct {
	Agents []agentSpec `yaml:"agents"`
}

type agentSpec struct {
	ID              string  `yaml:"id"`
	Label           string  `yaml:"label"`
	Model           string  `yaml:"model"`
	BackendModelRef string  `yaml:"backend_model_ref"`
	SystemPrompt    string  `yaml:"system_prompt"`
	Role            string  `yaml:"role"`
	TokensPerSec    float64 `yaml:"tokens_per_sec"`
	VRAMGb          float64 `yaml:"vram_gb"`
	WarmupSec       float64 `yaml:"warmup_sec"`
}

// LoadFile parses an agent roster from a YAML file. Missing simulation
// profile fields inherit the generic default profile so a partially
// specified agent still runs.
func LoadFile(path string) ([]core.AgentDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agents file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) ([]core.AgentDescriptor, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse agents file: %w", err)
	}

	descs := make([]core.AgentDescriptor, 0, len(spec.Agents))
	for _, a := range spec.Agents {
		if a.ID == "" {
			return nil, fmt.Errorf("agent entry without id")
		}
		d := Default(a.ID)
		if a.Label != "" {
			d.Label = a.Label
		}
		if a.Model != "" {
			d.Model = a.Model
		}
		d.BackendModelRef = a.BackendModelRef
		if d.BackendModelRef == "" {
			d.BackendModelRef = d.Model
		}
		if a.SystemPrompt != "" {
			d.SystemPrompt = a.SystemPrompt
		}
		if a.Role != "" {
			d.Role = core.Role(a.Role)
		}
		if a.TokensPerSec > 0 {
			d.Profile.TokensPerSec = a.TokensPerSec
		}
		if a.VRAMGb > 0 {
			d.Profile.VRAMGb = a.VRAMGb
		}
		if a.WarmupSec > 0 {
			d.Profile.Warmup = time.Duration(a.WarmupSec * float64(time.Second))
		}
		descs = append(descs, d)
	}
	return descs, nil
}
