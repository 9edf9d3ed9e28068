// Package tool implements tool execution dispatch: mapping a tool name
// detected in a model's output to its handler, bounding execution by a
// timeout and an output size, and rendering every internal failure as a
// bracketed inline string so the calling agent can see and react to it.
// Execution never returns an error to the runner.
package tool

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hupe1980/agentstudio/logging"
)

// Built-in tool names.
const (
	WebSearch  = "web_search"
	Calculator = "calculator"
	ReadFile   = "read_file"
)

// Available lists the built-in tools in a stable order.
var Available = []string{WebSearch, Calculator, ReadFile}

// Options configure a Dispatcher.
type Options struct {
	// Timeout bounds a single tool execution.
	Timeout time.Duration
	// WorkspaceRoot anchors read_file path resolution.
	WorkspaceRoot string
	// SearchBaseURL overrides the web search endpoint, mainly for tests.
	SearchBaseURL string
	// HTTPClient performs web search requests.
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Dispatcher executes built-in tools. It is a pure request/response
// component: no state survives a call beyond the shared HTTP client.
type Dispatcher struct {
	opts Options
}

// NewDispatcher creates a dispatcher with sensible bounds.
func NewDispatcher(optFns ...func(o *Options)) *Dispatcher {
	opts := Options{
		Timeout:       15 * time.Second,
		WorkspaceRoot: ".",
		SearchBaseURL: "https://api.duckduckgo.com",
		HTTPClient:    &http.Client{Timeout: 6 * time.Second},
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{opts: opts}
}

// Execute runs the named tool and returns its result text. Unknown tools,
// timeouts, panics and handler failures all render as bracketed strings,
// never as errors; ok reports whether the handler completed successfully,
// independent of the result text.
func (d *Dispatcher) Execute(ctx context.Context, name string, args map[string]any) (result string, ok bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = fmt.Sprintf("[Tool error: %v]", r)
			ok = false
		}
		d.opts.Logger.Info("tool executed", "tool", name, "ok", ok, "duration", time.Since(start), "result_chars", len(result))
	}()

	ctx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	switch name {
	case WebSearch:
		return d.webSearch(ctx, stringArg(args, "query"))
	case Calculator:
		return d.calculate(stringArg(args, "expression"))
	case ReadFile:
		return d.readFile(stringArg(args, "path"))
	default:
		return fmt.Sprintf("[Unknown tool: %s]", name), false
	}
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	s, _ := args[key].(string)
	return s
}

// Truncate bounds s to max characters without cutting inside a multi-byte
// rune. Used by callers that need a tighter bound than the tool's own,
// e.g. the 500-character tool_result event cap.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
