// Package agentstudio provides a high-level façade over the pipeline engine
// and its supporting services (agent registry, provider resolution, tools,
// logging & metrics) enabling rapid construction of multi-agent task
// pipelines. Most applications interact with this package by:
//  1. Creating a Studio via New() (optionally overriding the default registry or providers)
//  2. Submitting a task via Run() and consuming the resulting event stream
//  3. Or calling RunSync() to collect all events once the pipeline finishes
//
// The façade delegates orchestration to pipeline.Pipeline while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; real model backends are engaged per request via
// core.RunRequest.UseRealModels and per-agent provider configuration.
package agentstudio

import (
	"context"
	"time"

	"github.com/hupe1980/agentstudio/agents"
	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/metrics"
	"github.com/hupe1980/agentstudio/pipeline"
	"github.com/hupe1980/agentstudio/tool"
)

// Options configures the Studio instance.
type Options struct {
	// Agents is the descriptor registry consulted for every run. Defaults to
	// an in-memory store seeded with the builtin agents.
	Agents agents.Store

	// Providers resolves live model backends for agents. Defaults to the
	// standard resolver, which honors per-agent and run-level provider
	// configuration.
	Providers pipeline.ProviderResolver

	// Tools executes mid-stream tool calls. Defaults to a dispatcher with
	// the builtin tools enabled.
	Tools *tool.Dispatcher

	// StagePause is the delay inserted between pipeline stages.
	StagePause time.Duration

	// EventBufferSize sets the channel buffer size for event delivery.
	// Larger buffers reduce blocking but increase memory usage.
	EventBufferSize int

	// Metrics records pipeline counters. Nil disables recording.
	Metrics *metrics.Metrics

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Studio is the high-level façade aggregating the pipeline engine and services.
type Studio struct {
	opts     Options
	pipeline *pipeline.Pipeline
}

// New creates a new Studio instance with optional overrides. Any unset
// service is initialized with its in-memory default.
func New(optFns ...func(o *Options)) *Studio {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	p := pipeline.New(func(o *pipeline.Options) {
		if opts.Agents != nil {
			o.Agents = opts.Agents
		}
		if opts.Providers != nil {
			o.Providers = opts.Providers
		}
		if opts.Tools != nil {
			o.Tools = opts.Tools
		}
		if opts.StagePause > 0 {
			o.StagePause = opts.StagePause
		}
		if opts.EventBufferSize > 0 {
			o.EventBufferSize = opts.EventBufferSize
		}
		o.Metrics = opts.Metrics
		o.Logger = opts.Logger
	})

	return &Studio{opts: opts, pipeline: p}
}

// Run starts an asynchronous pipeline run returning the ordered event stream.
// The channel is closed once the pipeline completes or the context is
// cancelled.
func (s *Studio) Run(ctx context.Context, req core.RunRequest) <-chan core.Event {
	return s.pipeline.Run(ctx, req)
}

// RunSync is a synchronous helper that drains the event stream and returns
// all events in emission order.
func (s *Studio) RunSync(ctx context.Context, req core.RunRequest) ([]core.Event, error) {
	var events []core.Event
	for ev := range s.pipeline.Run(ctx, req) {
		events = append(events, ev)
	}
	if err := ctx.Err(); err != nil {
		return events, err
	}
	return events, nil
}
