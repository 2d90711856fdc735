package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/prenav"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/access"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/analyzer"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/runtime"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/validator"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/server"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/template/client"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/template/execlog"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/template/store"
)

// stack is the fully wired sandbox service
type stack struct {
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	tracer    *tracing.Tracer
	store     store.Store
	files     *store.FileStore
	executor  *runtime.Executor
	validator *validator.Validator
	client    *client.TemplateClient
	checks    map[string]server.Check
	closers   []func() error
}

// build wires every component from cfg. The SQLite database, when opened,
// backs both the template store and the execution log.
func build(cfg *config.Config, logger *logging.Logger) (s *stack, err error) {
	s = &stack{
		logger:  logger,
		metrics: monitoring.NewMetrics(),
		tracer:  tracing.New("sandbox", logger.Logger),
		checks:  make(map[string]server.Check),
	}
	defer func() {
		if err != nil {
			_ = s.close()
		}
	}()

	db, err := s.buildStore(cfg)
	if err != nil {
		return nil, err
	}

	recorders := []execlog.Recorder{execlog.NewZapRecorder(logger.Component("execlog"))}
	if db != nil {
		rec, err := execlog.NewSQLiteRecorder(db)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, rec)
	}

	captures, err := s.buildPreNav(cfg)
	if err != nil {
		return nil, err
	}

	scanner := analyzer.Default()
	checker := access.New(logger.Component("access"), s.metrics)

	s.executor = runtime.New(runtime.Config{
		Timeout:          cfg.Sandbox.Timeout,
		MaxPageCalls:     cfg.Sandbox.PageCallBudget,
		AllowedMethods:   cfg.Sandbox.AllowedPageMethods,
		MaxCallStackSize: cfg.Sandbox.MaxCallStackSize,
		PreNavWait:       cfg.Sandbox.PreNavWait,
		MaxConcurrent:    cfg.Sandbox.MaxConcurrent,
	}, runtime.Deps{
		Scanner: scanner,
		Access:  checker,
		PreNav:  captures,
		Logger:  logger.Component("runtime"),
		Metrics: s.metrics,
		Tracer:  s.tracer,
	})
	s.closers = append(s.closers, func() error { s.executor.Close(); return nil })

	s.validator = validator.New(scanner, validator.DefaultLimits(), logger.Component("validator"), s.metrics, s.tracer)

	s.client, err = client.New(client.Options{
		Store:          s.store,
		Validator:      s.validator,
		Executor:       s.executor,
		Access:         checker,
		Recorder:       execlog.Multi(recorders...),
		CacheTTL:       cfg.Template.CacheTTL,
		RateLimitRPS:   cfg.Template.RateLimitRPS,
		RateLimitBurst: cfg.Template.RateLimitBurst,
		Logger:         logger.Component("client"),
		Metrics:        s.metrics,
		Tracer:         s.tracer,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Sandbox initialized",
		zap.String("store", cfg.Template.Store),
		zap.Duration("timeout", cfg.Sandbox.Timeout),
		zap.Int("page_call_budget", cfg.Sandbox.PageCallBudget),
		zap.Int("max_concurrent", cfg.Sandbox.MaxConcurrent),
	)
	return s, nil
}

func (s *stack) buildStore(cfg *config.Config) (*sql.DB, error) {
	logger := s.logger.Component("store")

	switch cfg.Template.Store {
	case "memory":
		s.store = store.NewMemoryStore()
		return nil, nil

	case "file":
		files, err := store.NewFileStore(cfg.Template.Dir, logger)
		if err != nil {
			return nil, err
		}
		s.store, s.files = files, files
		logger.Info("Loaded template directory", zap.String("dir", cfg.Template.Dir), zap.Int("templates", files.Len()))
		return nil, nil

	case "remote":
		remote, err := store.NewRemoteStore(store.RemoteConfig{
			BaseURL: cfg.Template.RemoteURL,
			Token:   cfg.Template.RemoteToken,
			Breaker: resilience.Settings{Timeout: 30 * time.Second},
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		s.store = remote
		return nil, nil

	case "sqlite":
		db, err := store.OpenSQLite(cfg.Template.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		sqlite, err := store.NewSQLiteStoreFromDB(db)
		if err != nil {
			return nil, err
		}
		s.store = sqlite
		s.checks["sqlite"] = db.PingContext
		return db, nil
	}
	return nil, fmt.Errorf("unknown template store %q", cfg.Template.Store)
}

func (s *stack) buildPreNav(cfg *config.Config) (prenav.Store, error) {
	if cfg.PreNav.RedisAddr == "" {
		return prenav.NewMemoryStore(), nil
	}
	rs, err := prenav.NewRedisStore(prenav.RedisConfig{
		Addr:         cfg.PreNav.RedisAddr,
		Password:     cfg.PreNav.RedisPassword,
		DB:           cfg.PreNav.RedisDB,
		TTL:          cfg.PreNav.TTL,
		PollInterval: cfg.PreNav.PollInterval,
	}, s.logger.Component("prenav"))
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, rs.Close)
	s.checks["redis"] = rs.Ping
	return rs, nil
}

// watch hot-reloads the file store, dropping cached templates and
// validations as their documents change.
func (s *stack) watch(ctx context.Context) error {
	if s.files == nil {
		return nil
	}
	return s.files.Watch(ctx, s.client.Invalidate)
}

func (s *stack) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	if s.logger != nil {
		_ = s.logger.Sync()
	}
	return errors.Join(errs...)
}
