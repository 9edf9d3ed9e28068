// Package main is the entry point for the agentstudio binary. It provides a
// CLI for running task pipelines locally, inspecting the agent registry,
// probing model backends and serving the HTTP API.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentstudio/agents"
	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/provider/registry"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for agentstudio.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentstudio",
		Short: "Multi-agent pipeline orchestrator for local LLMs",
		Long: `agentstudio dispatches a task through a pipeline of specialist agents:
a router classifies the task, specialists run in parallel, a validator
reviews generated code and a synthesizer merges everything into a final
answer. Agents run against local model servers (Ollama, LM Studio,
llama.cpp), the Anthropic API, or deterministic simulation when no
backend is reachable.

Example:
  agentstudio run "Build a REST API with authentication"
  agentstudio run --real --provider http-ollama "Explain this stack trace"`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("log-level", "l", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().String("agents-file", "", "Path to a YAML agent registry file")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newAgentsCmd())
	rootCmd.AddCommand(newProvidersCmd())
	rootCmd.AddCommand(newServeCmd())

	return rootCmd
}

// buildLogger constructs the process logger from the persistent flags.
func buildLogger(cmd *cobra.Command) logging.Logger {
	levelStr, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = format
	cfg.Output = os.Stderr
	return logging.NewStudioLogger(cfg)
}

// buildStore loads the agent registry, from YAML when --agents-file is set,
// otherwise seeded with the builtin agents.
func buildStore(cmd *cobra.Command) (agents.Store, error) {
	path, _ := cmd.Flags().GetString("agents-file")
	if path == "" {
		return agents.NewInMemoryStore(), nil
	}
	descs, err := agents.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load agents file: %w", err)
	}
	return agents.NewInMemoryStore(descs...), nil
}

// buildRegistry constructs the provider registry shared by run and serve.
func buildRegistry(logger logging.Logger, modelsDir string) *registry.Registry {
	return registry.New(func(o *registry.Options) {
		o.Logger = logger
		o.ModelsDir = modelsDir
		o.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	})
}
