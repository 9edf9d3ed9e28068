// Package core defines the shared data model of the pipeline orchestration
// engine: agent descriptors, run requests, the event union streamed to
// callers and the per-run mutable state.
//
// Everything in this package is either immutable for the duration of a run
// (AgentDescriptor, RunRequest) or owned by exactly one pipeline run
// (RunState). Nothing here is shared across concurrent runs.
package core
