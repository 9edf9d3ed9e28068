package pipeline

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/agentstudio/agents"
	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/provider"
)

func TestAccumulator_LiveCounting(t *testing.T) {
	acc := &accumulator{start: time.Now()}

	acc.addLive("two words")
	assert.Equal(t, 2, acc.tokens)

	// A fragment without any word boundary still counts as one token.
	acc.addLive("\n")
	assert.Equal(t, 3, acc.tokens)

	acc.addSim("chunk ")
	assert.Equal(t, 4, acc.tokens)
	assert.Equal(t, "two words\nchunk ", acc.sb.String())

	acc.reset()
	assert.Zero(t, acc.tokens)
	assert.Empty(t, acc.sb.String())
}

func TestSystemPrompt_OverrideAndToolAddon(t *testing.T) {
	desc := core.AgentDescriptor{SystemPrompt: "base instruction"}

	assert.Equal(t, "base instruction", systemPrompt(desc, core.AgentRunConfig{}))

	got := systemPrompt(desc, core.AgentRunConfig{SystemPrompt: "override"})
	assert.Equal(t, "override", got)

	got = systemPrompt(desc, core.AgentRunConfig{Tools: []string{"calculator"}})
	assert.True(t, strings.HasPrefix(got, "base instruction"))
	assert.Contains(t, got, "[TOOLS]")
	assert.Contains(t, got, "calculator")
}

func TestRun_ToolCallInterception(t *testing.T) {
	router := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"[TARGET_AGENTS] coder-1"}},
	}
	coder := &scriptedProvider{
		ptype: "http-ollama",
		scripts: [][]string{
			{"Let me compute that.\n", `{"name": "calculator", "arguments": {"expression": "(2+3)*4"}}`},
			{"The answer is 20."},
		},
	}
	p := newTestPipeline(fakeResolver{byID: map[string]provider.Provider{
		"router-1": router,
		"coder-1":  coder,
	}})

	events := collectEvents(t, p, core.RunRequest{Prompt: "compute (2+3)*4"})

	calls := eventsOfType(events, core.EventToolCall)
	assert.Len(t, calls, 1)
	assert.Equal(t, "coder-1", calls[0].AgentID)
	assert.Equal(t, "calculator", calls[0].Tool)
	assert.Equal(t, "(2+3)*4", calls[0].Arguments["expression"])

	results := eventsOfType(events, core.EventToolResult)
	assert.Len(t, results, 1)
	assert.Equal(t, "20", results[0].Result)

	// Call and result share one correlation id.
	assert.NotEmpty(t, calls[0].CallID)
	assert.Equal(t, calls[0].CallID, results[0].CallID)

	// The synthetic announcement token lands on the wire between the tool
	// result and the continuation.
	var sawAnnouncement, sawContinuation bool
	for _, ev := range agentEvents(events, "coder-1") {
		if ev.Type != core.EventAgentToken {
			continue
		}
		if strings.Contains(ev.Token, "[SYSTEM: calculator returned 2 chars]") {
			sawAnnouncement = true
		}
		if strings.Contains(ev.Token, "The answer is 20.") {
			assert.True(t, sawAnnouncement, "continuation before announcement")
			sawContinuation = true
		}
	}
	assert.True(t, sawAnnouncement)
	assert.True(t, sawContinuation)

	// The re-prompt embeds the original input and the tool result.
	req, ok := coder.request(1)
	assert.True(t, ok)
	assert.Contains(t, req.Prompt, "[TOOL RESULT for calculator(")
	assert.Contains(t, req.Prompt, "\n20\n")
	assert.Contains(t, req.Prompt, "compute (2+3)*4")
}

func TestRun_RestreamFailureKeepsPreToolOutput(t *testing.T) {
	router := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"[TARGET_AGENTS] coder-1"}},
	}
	coder := &scriptedProvider{
		ptype: "http-ollama",
		scripts: [][]string{
			{"Let me compute that.\n", `{"name": "calculator", "arguments": {"expression": "2+3"}}`},
			{"PARTIAL-RESTREAM "},
		},
		errs: map[int]error{1: errors.New("backend reset")},
	}
	validator := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"Looks fine."}},
	}
	p := newTestPipeline(fakeResolver{byID: map[string]provider.Provider{
		"router-1":    router,
		"coder-1":     coder,
		"validator-1": validator,
	}})

	events := collectEvents(t, p, core.RunRequest{Prompt: "compute 2+3"})

	// The abandoned fragment stays on the wire.
	var sawPartialToken bool
	for _, ev := range eventsOfType(agentEvents(events, "coder-1"), core.EventAgentToken) {
		if strings.Contains(ev.Token, "PARTIAL-RESTREAM") {
			sawPartialToken = true
		}
	}
	assert.True(t, sawPartialToken)

	// The recorded output ends at the tool announcement; the partial text
	// from the failed re-prompt never reaches the downstream stage.
	req, ok := validator.request(0)
	assert.True(t, ok)
	assert.Contains(t, req.Prompt, "[SYSTEM: calculator returned 1 chars]")
	assert.NotContains(t, req.Prompt, "PARTIAL-RESTREAM")
}

func TestRun_ToolDeniedByAllowList(t *testing.T) {
	router := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"[TARGET_AGENTS] coder-1"}},
	}
	coder := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{`{"name": "calculator", "arguments": {"expression": "1+1"}}`}},
	}
	p := newTestPipeline(fakeResolver{byID: map[string]provider.Provider{
		"router-1": router,
		"coder-1":  coder,
	}})

	events := collectEvents(t, p, core.RunRequest{
		Prompt: "task",
		AgentConfigs: []core.AgentRunConfig{
			{AgentID: "coder-1", Tools: []string{"web_search"}},
		},
	})

	// The detected call names a tool outside the allow-list: no execution,
	// the raw text stands as output.
	assert.Empty(t, eventsOfType(events, core.EventToolCall))
	assert.Empty(t, eventsOfType(events, core.EventToolResult))

	done := eventsOfType(agentEvents(events, "coder-1"), core.EventAgentDone)
	assert.Len(t, done, 1)
}

func TestRun_MissingRoleFallsBackToDefaultProfile(t *testing.T) {
	// A roster without a validator still gets a validator stage after the
	// coder, served by the generic default profile under the conventional
	// id.
	var descs []core.AgentDescriptor
	for _, d := range testStore().All() {
		if d.Role == core.RoleValidator {
			continue
		}
		descs = append(descs, d)
	}
	store := agents.NewInMemoryStore(descs...)

	router := &scriptedProvider{
		ptype:   "http-ollama",
		scripts: [][]string{{"[TARGET_AGENTS] coder-1"}},
	}
	p := New(func(o *Options) {
		o.Agents = store
		o.Providers = fakeResolver{byID: map[string]provider.Provider{"router-1": router}}
		o.StagePause = time.Millisecond
	})

	events := collectEvents(t, p, core.RunRequest{Prompt: "task"})
	assert.Equal(t,
		[]string{"router-1", "coder-1", "validator-1", "synthesizer-1"},
		startedAgents(events))
}
