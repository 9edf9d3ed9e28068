package tool

import (
	"encoding/json"
	"regexp"
)

// callPattern matches a JSON tool-call object embedded anywhere in a
// model's free text output. One level of nested braces inside arguments is
// supported; detection takes the first match only.
var callPattern = regexp.MustCompile(
	`\{\s*"name"\s*:\s*"[A-Za-z0-9_]+"\s*,\s*"arguments"\s*:\s*\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}\s*\}`)

// Call is a parsed embedded tool-call request.
type Call struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// DetectCall scans text for the first embedded tool-call payload. A match
// that fails JSON parsing is treated as no tool call at all.
func DetectCall(text string) (Call, bool) {
	match := callPattern.FindString(text)
	if match == "" {
		return Call{}, false
	}
	var call Call
	if err := json.Unmarshal([]byte(match), &call); err != nil || call.Name == "" {
		return Call{}, false
	}
	return call, true
}
