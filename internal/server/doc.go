// Package server provides the operational HTTP surface of the sandbox.
//
// Templates are executed in-process through the template client; this
// server only exposes health and telemetry:
//   - GET /healthz: liveness
//   - GET /readyz: runs the registered dependency checks (SQLite, Redis)
//   - GET /metrics: Prometheus exposition
//   - GET /stats: execution slots, limits and cache size as JSON
//
// Middleware stack: recovery, tracing, request metrics and, when enabled,
// per-IP rate limiting.
//
// Example Usage:
//
//	srv := server.NewServer(cfg, server.Deps{
//	    Executor: executor,
//	    Metrics:  metrics,
//	    Checks:   map[string]server.Check{"sqlite": db.PingContext},
//	})
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal("server stopped", zap.Error(err))
//	}
package server
