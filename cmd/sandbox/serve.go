package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/server"
)

func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ops server (health, readiness, metrics)",
		Long: `Start the sandbox service with its ops HTTP server.

Endpoints:
  GET /healthz   liveness
  GET /readyz    dependency checks (SQLite, Redis)
  GET /metrics   Prometheus metrics
  GET /stats     execution slots and cache size

With TEMPLATE_STORE=file, template documents are watched and edits take
effect without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, logger, err := a.load()
	if err != nil {
		return err
	}
	s, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.watch(ctx); err != nil {
		logger.Warn("Template hot reload disabled", zap.Error(err))
	}

	srv := server.NewServer(cfg, server.Deps{
		Executor: s.executor,
		Client:   s.client,
		Metrics:  s.metrics,
		Tracer:   s.tracer,
		Logger:   logger.Component("server"),
		Checks:   s.checks,
	})
	return srv.Run(ctx)
}
