package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCall_EmbeddedInText(t *testing.T) {
	text := `Let me check that for you.

{"name": "calculator", "arguments": {"expression": "(2+3)*4"}}

I'll wait for the result.`

	call, ok := DetectCall(text)
	assert.True(t, ok)
	assert.Equal(t, "calculator", call.Name)
	assert.Equal(t, "(2+3)*4", call.Arguments["expression"])
}

func TestDetectCall_FirstMatchWins(t *testing.T) {
	text := `{"name": "web_search", "arguments": {"query": "go generics"}}` +
		`{"name": "calculator", "arguments": {"expression": "1+1"}}`

	call, ok := DetectCall(text)
	assert.True(t, ok)
	assert.Equal(t, "web_search", call.Name)
}

func TestDetectCall_NestedArguments(t *testing.T) {
	text := `{"name": "web_search", "arguments": {"query": "x", "opts": {"limit": 3}}}`

	call, ok := DetectCall(text)
	assert.True(t, ok)
	assert.Equal(t, "web_search", call.Name)
}

func TestDetectCall_NoCall(t *testing.T) {
	_, ok := DetectCall("plain text mentioning arguments and name but no JSON")
	assert.False(t, ok)

	// Whitespace variants still match.
	call, ok := DetectCall(`{ "name" : "read_file" , "arguments" : { "path": "go.mod" } }`)
	assert.True(t, ok)
	assert.Equal(t, "read_file", call.Name)
}
