// Package server exposes the pipeline over HTTP. The run endpoint streams
// the event feed as server-sent events; the remaining endpoints report
// registry contents, backend health and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hupe1980/agentstudio/agents"
	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/metrics"
	"github.com/hupe1980/agentstudio/pipeline"
	"github.com/hupe1980/agentstudio/provider/registry"
	"github.com/hupe1980/agentstudio/tool"
)

// Options configure a Server.
type Options struct {
	Agents    agents.Store
	Providers *registry.Registry
	Tools     *tool.Dispatcher
	Logger    logging.Logger
	Metrics   *metrics.Metrics
	// ReadHeaderTimeout guards against slow clients holding connections open.
	ReadHeaderTimeout time.Duration
}

// Server serves the pipeline API.
type Server struct {
	opts      Options
	agents    agents.Store
	providers *registry.Registry
	pipeline  *pipeline.Pipeline
	logger    logging.Logger
	httpSrv   *http.Server
}

// New constructs a Server with optional overrides.
func New(optFns ...func(o *Options)) *Server {
	opts := Options{
		Agents:            agents.NewInMemoryStore(),
		Providers:         registry.New(),
		Tools:             tool.NewDispatcher(),
		Logger:            logging.NoOpLogger{},
		Metrics:           metrics.New(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	p := pipeline.New(func(o *pipeline.Options) {
		o.Agents = opts.Agents
		o.Providers = opts.Providers
		o.Tools = opts.Tools
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})

	return &Server{
		opts:      opts,
		agents:    opts.Agents,
		providers: opts.Providers,
		pipeline:  p,
		logger:    opts.Logger,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/run", s.handleRun)
	mux.HandleFunc("GET /api/agents", s.handleAgents)
	mux.HandleFunc("GET /api/providers/health", s.handleHealth)
	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	if s.opts.Metrics != nil {
		mux.Handle("GET /metrics", s.opts.Metrics.Handler())
	}
	return mux
}

// Start begins serving on addr. It returns once the listener is installed;
// serve errors other than graceful shutdown are logged.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		s.logger.Info("server listening", "addr", addr)
		return nil
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// handleRun decodes a run request and streams the resulting event feed as
// server-sent events. The stream ends when the pipeline completes or the
// client disconnects; disconnect cancels emission while dispatched backend
// calls drain in the background.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req core.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range s.pipeline.Run(r.Context(), req) {
		if _, err := fmt.Fprint(w, ev.SSE()); err != nil {
			s.logger.Warn("client write failed", "error", err)
			return
		}
		flusher.Flush()
	}
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.agents.All()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	writeJSON(w, http.StatusOK, map[string]any{"providers": s.providers.HealthCheckAll(ctx)})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	writeJSON(w, http.StatusOK, map[string]any{"models": s.providers.ListModelsAll(ctx)})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
