package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentstudio"
	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/metrics"
	"github.com/hupe1980/agentstudio/tool"
)

// newRunCmd creates the run command: execute one pipeline and print its
// event feed to stdout.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run a task through the agent pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPipeline,
	}

	runCmd.Flags().Bool("real", false, "Use real model backends instead of simulation")
	runCmd.Flags().String("provider", string(core.ProviderOllama), "Default provider type for --real (http-ollama, http-lmstudio, http-llamacpp, http-anthropic, in-process)")
	runCmd.Flags().String("base-url", "", "Override the provider's base URL")
	runCmd.Flags().String("models-dir", "", "Local weights directory for the in-process provider")
	runCmd.Flags().Bool("sse", false, "Emit raw server-sent event lines instead of formatted output")
	runCmd.Flags().StringSlice("tools", nil, "Tool allow-list applied to every agent (empty allows all)")

	return runCmd
}

func runPipeline(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")

	useReal, _ := cmd.Flags().GetBool("real")
	providerType, _ := cmd.Flags().GetString("provider")
	baseURL, _ := cmd.Flags().GetString("base-url")
	modelsDir, _ := cmd.Flags().GetString("models-dir")
	rawSSE, _ := cmd.Flags().GetBool("sse")
	allowedTools, _ := cmd.Flags().GetStringSlice("tools")

	logger := buildLogger(cmd)
	store, err := buildStore(cmd)
	if err != nil {
		return err
	}

	studio := agentstudio.New(func(o *agentstudio.Options) {
		o.Agents = store
		o.Providers = buildRegistry(logger, modelsDir)
		o.Tools = tool.NewDispatcher(func(to *tool.Options) {
			to.Logger = logger
		})
		o.Metrics = metrics.New()
		o.Logger = logger
	})

	req := core.RunRequest{
		Prompt:          prompt,
		UseRealModels:   useReal,
		DefaultProvider: core.ProviderConfig{Type: core.ProviderType(providerType), BaseURL: baseURL},
	}
	if len(allowedTools) > 0 {
		for _, d := range store.All() {
			req.AgentConfigs = append(req.AgentConfigs, core.AgentRunConfig{AgentID: d.ID, Tools: allowedTools})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for ev := range studio.Run(ctx, req) {
		if rawSSE {
			fmt.Print(ev.SSE())
			continue
		}
		printEvent(ev)
	}
	return ctx.Err()
}

// printEvent renders one event for terminal consumption. Tokens stream
// inline; lifecycle events print as annotated lines.
func printEvent(ev core.Event) {
	switch ev.Type {
	case core.EventPipelineStart:
		fmt.Printf("▶ pipeline started (%d agents)\n", ev.TotalAgents)
	case core.EventAgentStart:
		fmt.Printf("\n── %s (%s via %s) ──\n", ev.Label, ev.Model, ev.Provider)
	case core.EventAgentToken:
		fmt.Print(ev.Token)
	case core.EventToolCall:
		fmt.Printf("\n⚙ tool call: %s\n", ev.Tool)
	case core.EventToolResult:
		fmt.Printf("⚙ tool result (%s): %s\n", ev.Tool, ev.Result)
	case core.EventAgentDone:
		fmt.Printf("\n✔ %s done: %d tokens, %.1f tok/s, %dms\n", ev.AgentID, ev.TotalTokens, ev.TokensPerSec, ev.LatencyMs)
	case core.EventStageParallel:
		fmt.Printf("\n≡ stage %d runs %s in parallel\n", ev.StageIndex, strings.Join(ev.AgentIDs, ", "))
	case core.EventPipelineDone:
		fmt.Printf("\n■ pipeline done: %d tokens in %dms\n", ev.TotalPipelineTokens, ev.TotalPipelineMs)
	case core.EventPipelineError:
		fmt.Fprintf(os.Stderr, "\n✘ pipeline error: %s\n", ev.Message)
	}
}
