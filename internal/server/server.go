package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/runtime"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/template/client"
)

const (
	readyTimeout    = 2 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Check reports whether a dependency is usable
type Check func(ctx context.Context) error

// Deps are the components the ops server reports on
type Deps struct {
	Executor *runtime.Executor
	Client   *client.TemplateClient
	Metrics  *monitoring.Metrics
	Tracer   *tracing.Tracer
	Logger   *zap.Logger
	// Checks are run by /readyz, keyed by dependency name
	Checks map[string]Check
}

// Server is the operational HTTP surface of the sandbox service
type Server struct {
	router *gin.Engine
	http   *http.Server
	deps   Deps
	logger *zap.Logger
	config *config.Config
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(deps.Tracer))
	router.Use(monitoring.Middleware(deps.Metrics))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Float64("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(RateLimit(cfg.RateLimit))
	}

	s := &Server{
		router: router,
		deps:   deps,
		logger: logger,
		config: cfg,
	}

	router.GET("/", s.root)
	router.GET("/healthz", s.health)
	router.GET("/readyz", s.ready)
	router.GET("/stats", s.stats)
	router.GET("/metrics", s.metrics(deps.Metrics.Handler()))

	s.http = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "scrape-sandbox",
		"status":  "running",
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(s.deps.Checks))
	for name := range s.deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	checks := make(gin.H, len(names))
	for _, name := range names {
		if err := s.deps.Checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			s.logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			continue
		}
		checks[name] = "ok"
	}

	if s.deps.Executor != nil && s.deps.Executor.Stats().Closed {
		status = http.StatusServiceUnavailable
		checks["executor"] = "closed"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

func (s *Server) metrics(h http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.deps.Metrics.UpdateUptime()
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func (s *Server) stats(c *gin.Context) {
	body := gin.H{}
	if s.deps.Executor != nil {
		cfg := s.deps.Executor.Config()
		body["slots"] = s.deps.Executor.Stats()
		body["limits"] = gin.H{
			"timeout":      cfg.Timeout.String(),
			"maxPageCalls": cfg.MaxPageCalls,
		}
	}
	if s.deps.Client != nil {
		body["cachedTemplates"] = s.deps.Client.CachedTemplates()
	}
	if s.deps.Metrics != nil {
		body["metrics"] = s.deps.Metrics.GetSnapshot()
	}
	c.JSON(http.StatusOK, body)
}
