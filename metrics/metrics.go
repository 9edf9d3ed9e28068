// Package metrics exposes Prometheus collectors for the pipeline engine on
// a private registry. All record methods are nil-receiver safe so callers
// can run without metrics configured.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	pipelinesTotal   prometheus.Counter
	pipelineDuration prometheus.Histogram
	agentRuns        *prometheus.CounterVec
	tokensTotal      *prometheus.CounterVec
	fallbacksTotal   prometheus.Counter
	toolExecutions   *prometheus.CounterVec
}

// New creates a Metrics instance with all collectors registered on a fresh
// registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		pipelinesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_pipelines_total",
			Help: "Total number of pipeline runs started",
		}),
		pipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "studio_pipeline_duration_seconds",
			Help:    "Wall-clock duration of completed pipeline runs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		agentRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_agent_runs_total",
			Help: "Completed agent runs by provider label",
		}, []string{"provider"}),
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_tokens_total",
			Help: "Tokens streamed by provider label",
		}, []string{"provider"}),
		fallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "studio_simulation_fallbacks_total",
			Help: "Live provider runs silently degraded to simulated output",
		}),
		toolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "studio_tool_executions_total",
			Help: "Tool executions by tool name and status",
		}, []string{"tool", "status"}),
	}

	registry.MustRegister(
		m.pipelinesTotal,
		m.pipelineDuration,
		m.agentRuns,
		m.tokensTotal,
		m.fallbacksTotal,
		m.toolExecutions,
	)
	return m
}

// Handler returns an HTTP handler serving the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordPipelineStart counts a started run.
func (m *Metrics) RecordPipelineStart() {
	if m == nil {
		return
	}
	m.pipelinesTotal.Inc()
}

// ObservePipeline records a completed run's duration.
func (m *Metrics) ObservePipeline(dur time.Duration) {
	if m == nil {
		return
	}
	m.pipelineDuration.Observe(dur.Seconds())
}

// RecordAgentDone counts a completed agent run and its tokens.
func (m *Metrics) RecordAgentDone(provider string, tokens int) {
	if m == nil {
		return
	}
	m.agentRuns.WithLabelValues(provider).Inc()
	m.tokensTotal.WithLabelValues(provider).Add(float64(tokens))
}

// RecordFallback counts a silent degradation to simulation.
func (m *Metrics) RecordFallback() {
	if m == nil {
		return
	}
	m.fallbacksTotal.Inc()
}

// RecordTool counts a tool execution. Status is "ok" or "error".
func (m *Metrics) RecordTool(tool, status string) {
	if m == nil {
		return
	}
	m.toolExecutions.WithLabelValues(tool, status).Inc()
}
