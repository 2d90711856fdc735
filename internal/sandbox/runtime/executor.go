package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/id"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

// Executor runs template code on goja. Each execution gets a fresh VM and
// its own page proxy; nothing is shared between executions except the
// slot limit.
type Executor struct {
	config Config
	deps   Deps
	slots  *Slots
	logger *zap.Logger
}

type runResult struct {
	value interface{}
	err   error
}

// New creates an executor. Zero config fields take their defaults.
func New(config Config, deps Deps) *Executor {
	def := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxPageCalls <= 0 {
		config.MaxPageCalls = def.MaxPageCalls
	}
	if config.MaxCallStackSize <= 0 {
		config.MaxCallStackSize = def.MaxCallStackSize
	}
	if config.PreNavWait <= 0 {
		config.PreNavWait = def.PreNavWait
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = def.MaxConcurrent
	}

	logger := logging.OrNop(deps.Logger)
	return &Executor{
		config: config,
		deps:   deps,
		slots:  NewSlots(config.MaxConcurrent),
		logger: logger,
	}
}

// Config returns the effective limits
func (e *Executor) Config() Config {
	return e.config
}

// Stats reports execution slot usage
func (e *Executor) Stats() SlotStats {
	return e.slots.Stats()
}

// Close stops accepting executions
func (e *Executor) Close() {
	e.slots.Close()
}

// Execute runs tpl against ec, racing it against the configured timeout.
// On timeout the VM is interrupted and abandoned; the page handle is never
// closed here.
func (e *Executor) Execute(ctx context.Context, tpl *types.Template, ec *types.ExecutionContext) (out *Outcome, err error) {
	if tpl == nil {
		return nil, tplerr.New(tplerr.RuntimeError, "template is required")
	}
	if ec == nil {
		ec = &types.ExecutionContext{}
	}

	strategy := tpl.Strategy()
	executionID := id.NewExecutionID()
	logger := logging.ForTemplate(e.logger, tpl.TemplateID, executionID.String())

	ctx, span := e.deps.Tracer.Start(ctx, "sandbox.execute",
		attribute.String("template.id", tpl.TemplateID),
		attribute.String("execution.id", executionID.String()),
		attribute.String("strategy", strategy.String()))
	timer := monitoring.StartExecution(e.deps.Metrics, strategy.String())
	defer func() {
		timer.Stop(string(tplerr.CodeOf(err)))
		span.End(err)
	}()

	if err := e.slots.Acquire(ctx); err != nil {
		return nil, tplerr.Wrap(tplerr.RuntimeError, err, "no execution slot available: %s", err.Error()).
			WithTemplate(tpl.TemplateID)
	}

	execCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	s := newSession(execCtx, e.config, e.deps, tpl, ec, logger)
	start := time.Now()
	done := make(chan runResult, 1)

	go func() {
		defer e.slots.Release()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Template execution panicked", zap.Any("panic", r))
				done <- runResult{err: tplerr.New(tplerr.RuntimeError, "execution panicked: %v", r)}
			}
		}()
		value, err := s.run(strategy)
		done <- runResult{value: value, err: err}
	}()

	var res runResult
	select {
	case res = <-done:
	case <-execCtx.Done():
		select {
		case res = <-done:
		default:
			err = e.abandon(ctx, s, tpl)
			logger.Warn("Template execution abandoned",
				zap.String("code", string(tplerr.CodeOf(err))),
				zap.Duration("elapsed", time.Since(start)),
				zap.Int("page_calls", s.pageCalls()))
			return nil, err
		}
	}

	elapsed := time.Since(start)
	if res.err != nil {
		err = e.classify(res.err, tpl.TemplateID)
		logger.Warn("Template execution failed",
			zap.String("code", string(tplerr.CodeOf(err))),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}

	out = &Outcome{
		ExecutionID:     executionID.String(),
		Success:         true,
		Result:          res.value,
		ExecutionTime:   elapsed,
		PageMethodCalls: s.pageCalls(),
		Strategy:        strategy.String(),
		Console:         s.entries(),
	}
	logger.Info("Template executed",
		zap.String("strategy", out.Strategy),
		zap.Duration("elapsed", elapsed),
		zap.Int("page_calls", out.PageMethodCalls))
	return out, nil
}

// abandon interrupts a VM that outlived its context and reports why.
func (e *Executor) abandon(ctx context.Context, s *session, tpl *types.Template) error {
	var err *tplerr.Error
	if ctx.Err() != nil {
		err = tplerr.Wrap(tplerr.RuntimeError, ctx.Err(), "template execution cancelled: %s", ctx.Err().Error())
	} else {
		err = e.timeoutError()
	}
	err.WithTemplate(tpl.TemplateID)
	s.vm.Interrupt(err)
	return err
}

func (e *Executor) timeoutError() *tplerr.Error {
	return tplerr.New(tplerr.Timeout, "template execution timed out after %s", e.config.Timeout)
}

// classify maps whatever the VM produced onto the sandbox error codes,
// always tagged with the template id.
func (e *Executor) classify(err error, templateID string) error {
	if te, ok := tplerr.As(err); ok {
		if te.TemplateID == "" {
			te.WithTemplate(templateID)
		}
		return te
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return e.timeoutError().WithTemplate(templateID)
	}

	var overflow *goja.StackOverflowError
	if errors.As(err, &overflow) {
		return tplerr.Wrap(tplerr.RuntimeError, err, "maximum call stack size exceeded").WithTemplate(templateID)
	}

	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		return tplerr.Wrap(tplerr.InvalidSyntax, err, "%s", err.Error()).WithTemplate(templateID)
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		return tplerr.Wrap(tplerr.RuntimeError, err, "%s", exceptionMessage(ex)).WithTemplate(templateID)
	}
	return tplerr.Wrap(tplerr.RuntimeError, err, "%s", err.Error()).WithTemplate(templateID)
}

func exceptionMessage(ex *goja.Exception) string {
	if v := ex.Value(); v != nil {
		return v.String()
	}
	return ex.Error()
}

func (s *session) run(strategy types.IsolationStrategy) (interface{}, error) {
	html := ResolveHTML(s.ctx, s.ec, s.logger)

	var (
		v   goja.Value
		err error
	)
	switch strategy {
	case types.Ambient:
		v, err = s.runAmbient(html)
	case types.Isolated:
		v, err = s.runIsolated(html)
	default:
		return nil, fmt.Errorf("unknown isolation strategy %d", strategy)
	}
	if err != nil {
		return nil, err
	}

	v, err = s.settle(v)
	if err != nil {
		return nil, err
	}
	return s.fromJS(v)
}
