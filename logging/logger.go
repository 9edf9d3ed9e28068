// Package logging provides a tiny abstraction over slog so downstream code
// can depend on a minimal interface (Logger) while allowing callers to plug
// any structured logger. StudioLogger adds domain helpers for provider
// fallbacks, tool executions and pipeline accounting.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger defines the minimal logging interface used across the engine.
// Implementations must be safe for concurrent use.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger { return &SlogAdapter{Logger: logger} }

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger { return NewSlogAdapter(slog.Default()) }

// NoOpLogger discards all log messages. Useful for tests and for callers
// that disable logging entirely.
type NoOpLogger struct{}

// Debug discards the message.
func (NoOpLogger) Debug(string, ...any) {}

// Info discards the message.
func (NoOpLogger) Info(string, ...any) {}

// Warn discards the message.
func (NoOpLogger) Warn(string, ...any) {}

// Error discards the message.
func (NoOpLogger) Error(string, ...any) {}

// Config configures construction of a StudioLogger.
type Config struct {
	Level     slog.Level
	Format    string // "json" or "text"
	Output    io.Writer
	Component string
}

// DefaultConfig returns a baseline JSON info-level configuration.
func DefaultConfig() *Config {
	return &Config{Level: slog.LevelInfo, Format: "json", Output: os.Stdout}
}

// StudioLogger wraps slog with contextual cloning helpers and domain
// convenience methods. It is cheap to copy via the With* methods.
type StudioLogger struct {
	logger *slog.Logger
}

// NewStudioLogger builds a StudioLogger from a config (or defaults if nil).
func NewStudioLogger(cfg *Config) *StudioLogger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	logger := slog.New(handler)
	if cfg.Component != "" {
		logger = logger.With("component", cfg.Component)
	}
	return &StudioLogger{logger: logger}
}

// WithComponent returns a clone tagged with the logical component
// (pipeline, provider, tool, registry).
func (l *StudioLogger) WithComponent(c string) *StudioLogger {
	return &StudioLogger{logger: l.logger.With("component", c)}
}

// WithAgent returns a clone tagged with an agent id.
func (l *StudioLogger) WithAgent(agentID string) *StudioLogger {
	return &StudioLogger{logger: l.logger.With("agent_id", agentID)}
}

// Debug logs at debug level.
func (l *StudioLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// Info logs at info level.
func (l *StudioLogger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

// Warn logs at warn level.
func (l *StudioLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }

// Error logs at error level.
func (l *StudioLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// LogProviderFallback records a live backend being abandoned in favor of
// simulated output.
func (l *StudioLogger) LogProviderFallback(agentID, provider string, err error) {
	l.logger.Warn("provider failed, falling back to simulation",
		"agent_id", agentID, "provider", provider, "error", err)
}

// LogToolCall records execution details for a tool invocation.
func (l *StudioLogger) LogToolCall(tool string, dur time.Duration, resultLen int) {
	l.logger.Info("tool execution completed",
		"tool", tool, "duration", dur, "result_chars", resultLen)
}

// LogAgentDone records an agent's completion accounting.
func (l *StudioLogger) LogAgentDone(agentID, provider string, tokens int, dur time.Duration) {
	l.logger.Info("agent completed",
		"agent_id", agentID, "provider", provider, "tokens", tokens, "duration", dur)
}

// LogPipelineDone records aggregate run metrics.
func (l *StudioLogger) LogPipelineDone(stages, totalTokens int, dur time.Duration) {
	l.logger.Info("pipeline completed",
		"stages", stages, "total_tokens", totalTokens, "duration", dur)
}
