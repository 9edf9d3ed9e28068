package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentstudio/metrics"
	"github.com/hupe1980/agentstudio/server"
	"github.com/hupe1980/agentstudio/tool"
)

// newServeCmd creates the serve command: run the HTTP API.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline HTTP API",
		Long: `Serve exposes the pipeline over HTTP:

  POST /api/run               run a pipeline, streamed as server-sent events
  GET  /api/agents            list registered agents
  GET  /api/providers/health  probe backend reachability
  GET  /api/models            list models per backend
  GET  /metrics               Prometheus metrics`,
		RunE: runServe,
	}

	serveCmd.Flags().StringP("port", "p", "8000", "Port to listen on")
	serveCmd.Flags().String("models-dir", "", "Local weights directory for the in-process provider")

	return serveCmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	port, _ := cmd.Flags().GetString("port")
	modelsDir, _ := cmd.Flags().GetString("models-dir")

	logger := buildLogger(cmd)
	store, err := buildStore(cmd)
	if err != nil {
		return err
	}

	srv := server.New(func(o *server.Options) {
		o.Agents = store
		o.Providers = buildRegistry(logger, modelsDir)
		o.Tools = tool.NewDispatcher(func(to *tool.Options) {
			to.Logger = logger
		})
		o.Logger = logger
		o.Metrics = metrics.New()
	})

	addr := ":" + port
	if err := srv.Start(addr); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "agentstudio listening on %s\n", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}
