package tool

import (
	"fmt"
	"strings"
)

// Definition declaratively describes one tool for prompt injection and for
// backends with native function calling.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Schemas returns the definitions of the built-in tools.
func Schemas() []Definition {
	return []Definition{
		{
			Name:        WebSearch,
			Description: "Search the web for current information, docs, or news.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "Search query string"},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        Calculator,
			Description: "Evaluate a mathematical expression and return the result.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"expression": map[string]any{"type": "string", "description": "Math expression, e.g. '2+2', '(15*8)/3', 'sqrt(144)'"},
				},
				"required": []string{"expression"},
			},
		},
		{
			Name:        ReadFile,
			Description: "Read a text file from the local workspace.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{"type": "string", "description": "File path relative to the workspace root"},
				},
				"required": []string{"path"},
			},
		},
	}
}

// PromptAddon renders the instruction block appended to an agent's system
// prompt when tools are enabled, teaching the model the inline JSON call
// format. Returns the empty string when no enabled tool is known.
func PromptAddon(enabled []string) string {
	schemas := make(map[string]Definition, len(Available))
	for _, s := range Schemas() {
		schemas[s.Name] = s
	}

	var lines []string
	for _, name := range enabled {
		s, ok := schemas[name]
		if !ok {
			continue
		}
		props, _ := s.Parameters["properties"].(map[string]any)
		params := make([]string, 0, len(props))
		for p := range props {
			params = append(params, p)
		}
		lines = append(lines, fmt.Sprintf("- %s(%s): %s", s.Name, strings.Join(params, ", "), s.Description))
	}
	if len(lines) == 0 {
		return ""
	}

	return "\n\n[TOOLS]\nYou have access to the following tools if external or recent information is needed:\n" +
		strings.Join(lines, "\n") +
		"\n\nTo use a tool, output ONLY a valid JSON object matching this schema, nothing else:\n" +
		`{"name": "tool_name", "arguments": {"key": "value"}}` +
		"\nIf no tool is needed, output normal text."
}
