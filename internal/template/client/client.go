package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/access"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/runtime"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/validator"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/id"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/utils"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/template/execlog"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/template/store"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/template/variables"
)

// recordTimeout bounds the best-effort execution log write
const recordTimeout = 5 * time.Second

// Options wires a TemplateClient. Store, Validator and Executor are
// required.
type Options struct {
	Store          store.Store
	Validator      *validator.Validator
	Executor       *runtime.Executor
	Access         *access.Checker
	Recorder       execlog.Recorder
	CacheTTL       time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	Logger         *zap.Logger
	Metrics        *monitoring.Metrics
	Tracer         *tracing.Tracer
}

// ExecuteResult is the outcome of ExecuteTemplate. A rejected run carries
// the structured error instead of data.
type ExecuteResult struct {
	Success         bool               `json:"success"`
	Data            interface{}        `json:"data"`
	ExecutionID     string             `json:"executionId,omitempty"`
	ExecutionTime   time.Duration      `json:"executionTime"`
	CreditsCharged  int                `json:"creditsCharged"`
	PageMethodCalls int                `json:"pageMethodCalls"`
	Console         []runtime.LogEntry `json:"console,omitempty"`
	Error           *tplerr.Info       `json:"error,omitempty"`
}

// TemplateClient is the entry point used by the crawl engine: it resolves
// a template, applies access control and validation, runs it in the
// sandbox and records the outcome.
type TemplateClient struct {
	store     store.Store
	validator *validator.Validator
	executor  *runtime.Executor
	access    *access.Checker
	recorder  execlog.Recorder
	cache     *templateCache
	logger    *zap.Logger
	metrics   *monitoring.Metrics
	tracer    *tracing.Tracer

	rps      float64
	burst    int
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(opts Options) (*TemplateClient, error) {
	if opts.Store == nil {
		return nil, errors.New("template client requires a store")
	}
	if opts.Validator == nil {
		return nil, errors.New("template client requires a validator")
	}
	if opts.Executor == nil {
		return nil, errors.New("template client requires an executor")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Access == nil {
		opts.Access = access.New(opts.Logger, opts.Metrics)
	}
	if opts.Recorder == nil {
		opts.Recorder = execlog.NewZapRecorder(opts.Logger)
	}
	burst := opts.RateLimitBurst
	if burst <= 0 {
		burst = max(1, int(opts.RateLimitRPS))
	}

	return &TemplateClient{
		store:     opts.Store,
		validator: opts.Validator,
		executor:  opts.Executor,
		access:    opts.Access,
		recorder:  opts.Recorder,
		cache:     newTemplateCache(opts.CacheTTL),
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		tracer:    opts.Tracer,
		rps:       opts.RateLimitRPS,
		burst:     burst,
		limiters:  make(map[string]*rate.Limiter),
	}, nil
}

// ExecuteTemplate runs templateID for one request. The returned result is
// never nil; on rejection it carries the error in structured form and the
// error is returned as well.
func (c *TemplateClient) ExecuteTemplate(ctx context.Context, templateID string, ec *types.ExecutionContext) (res *ExecuteResult, err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "template.execute", attribute.String("template.id", templateID))
	defer func() { span.End(err) }()

	tpl, err := c.Resolve(ctx, templateID)
	if err != nil {
		return failed(err), err
	}

	var out *runtime.Outcome
	out, err = c.run(ctx, tpl, ec)
	res = &ExecuteResult{ExecutionTime: time.Since(start)}
	if err != nil {
		res.Error = tplerr.InfoOf(err)
	} else {
		res.Success = true
		res.Data = out.Result
		res.ExecutionID = out.ExecutionID
		res.ExecutionTime = out.ExecutionTime
		res.PageMethodCalls = out.PageMethodCalls
		res.Console = out.Console
		res.CreditsCharged = creditsFor(tpl)
		c.metrics.AddCredits(res.CreditsCharged)
	}

	c.record(ctx, tpl.TemplateID, res)
	return res, err
}

// creditsFor applies the one-credit default for stores that leave
// CreditsPerRun unset.
func creditsFor(tpl *types.Template) int {
	if tpl.CreditsPerRun <= 0 {
		return 1
	}
	return tpl.CreditsPerRun
}

func (c *TemplateClient) run(ctx context.Context, tpl *types.Template, ec *types.ExecutionContext) (*runtime.Outcome, error) {
	if err := c.wait(ctx, tpl.TemplateID); err != nil {
		return nil, err
	}

	run := prepare(tpl, ec)

	if run.SearchQuery != "" {
		if err := c.ValidateKeywordRestrictions(tpl, run.SearchQuery).Err(); err != nil {
			return nil, tag(err, tpl.TemplateID)
		}
	}
	if run.Request.URL != "" {
		if err := c.ValidateDomainRestrictions(tpl, run.Request.URL).Err(); err != nil {
			return nil, tag(err, tpl.TemplateID)
		}
	}

	if err := utils.ValidateVariablesPayload(run.Variables); err != nil {
		return nil, tplerr.Wrap(tplerr.InvalidVariable, err, "%s", err.Error()).WithTemplate(tpl.TemplateID)
	}

	if err := c.validator.ValidateSource(ctx, tpl.Code, tpl.TemplateID, tpl.VersionMarker()); err != nil {
		return nil, err
	}

	resolved, err := variables.Resolve(tpl.Variables, run.Variables, run.Request.Body)
	if err != nil {
		return nil, tag(err, tpl.TemplateID)
	}
	run.Variables = resolved

	return c.executor.Execute(ctx, tpl, run)
}

// prepare copies the caller's context so resolved variables and generated
// ids never leak back to it.
func prepare(tpl *types.Template, ec *types.ExecutionContext) *types.ExecutionContext {
	run := &types.ExecutionContext{}
	if ec != nil {
		*run = *ec
	}
	run.TemplateID = tpl.TemplateID
	if run.RequestID == "" {
		run.RequestID = id.NewRequestID().String()
	}
	if run.JobID == "" {
		run.JobID = id.NewJobID().String()
	}
	if run.ScrapeResult == nil {
		run.ScrapeResult = types.NewScrapeResult("")
	}
	return run
}

// Resolve returns a published template, from the TTL cache when possible.
func (c *TemplateClient) Resolve(ctx context.Context, templateID string) (*types.Template, error) {
	if tpl, ok := c.cache.get(templateID); ok {
		c.metrics.RecordStoreLookup("cache", "hit")
		return tpl, nil
	}

	tpl, err := c.store.Get(ctx, templateID)
	if err != nil {
		c.metrics.RecordStoreLookup("store", string(tplerr.CodeOf(err)))
		if tplerr.CodeOf(err) == tplerr.TemplateNotFound {
			return nil, err
		}
		c.logger.Error("Template lookup failed", zap.String("template_id", templateID), zap.Error(err))
		return nil, err
	}
	if tpl.Status != "" && tpl.Status != types.StatusPublished {
		c.metrics.RecordStoreLookup("store", string(tplerr.TemplateNotFound))
		return nil, tplerr.New(tplerr.TemplateNotFound, "template %q is not published (status %s)", templateID, tpl.Status).
			WithTemplate(templateID)
	}

	c.metrics.RecordStoreLookup("store", "hit")
	c.cache.put(tpl)
	return tpl, nil
}

// ValidateDomainRestrictions checks url against the template's allowed
// domains. Used before a job is enqueued as well as before execution.
func (c *TemplateClient) ValidateDomainRestrictions(tpl *types.Template, url string) access.Result {
	return c.access.ValidateURL(url, tpl.AllowedDomains)
}

// ValidateKeywordRestrictions checks a search query against the template's
// allowed keywords.
func (c *TemplateClient) ValidateKeywordRestrictions(tpl *types.Template, query string) access.Result {
	return c.access.ValidateKeyword(query, tpl.AllowedKeywords)
}

// Invalidate drops the cached template and its validation, e.g. after the
// template was edited.
func (c *TemplateClient) Invalidate(templateID string) {
	c.cache.delete(templateID)
	c.validator.Invalidate(templateID)
	c.logger.Info("Template invalidated", zap.String("template_id", templateID))
}

// CachedTemplates returns the number of templates currently cached
func (c *TemplateClient) CachedTemplates() int {
	return c.cache.len()
}

func (c *TemplateClient) wait(ctx context.Context, templateID string) error {
	if c.rps <= 0 {
		return nil
	}
	c.mu.Lock()
	l, ok := c.limiters[templateID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.rps), c.burst)
		c.limiters[templateID] = l
	}
	c.mu.Unlock()

	if err := l.Wait(ctx); err != nil {
		return tplerr.Wrap(tplerr.RuntimeError, err, "rate limit wait: %s", err.Error()).WithTemplate(templateID)
	}
	return nil
}

// record writes the execution log entry. It survives cancellation of ctx
// and never fails the run.
func (c *TemplateClient) record(ctx context.Context, templateID string, res *ExecuteResult) {
	entry := execlog.Entry{
		TemplateID:     templateID,
		ExecutionID:    res.ExecutionID,
		Duration:       res.ExecutionTime,
		CreditsCharged: res.CreditsCharged,
		Success:        res.Success,
		RecordedAt:     time.Now(),
	}
	if res.Error != nil {
		entry.ErrorCode = string(res.Error.Code)
		entry.ErrorMessage = res.Error.Message
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := c.recorder.Record(ctx, entry); err != nil {
		c.metrics.IncLogWriteFailures()
		c.logger.Warn("Failed to record template execution",
			zap.String("template_id", templateID),
			zap.Error(err))
	}
}

func failed(err error) *ExecuteResult {
	return &ExecuteResult{Error: tplerr.InfoOf(err)}
}

func tag(err error, templateID string) error {
	if e, ok := tplerr.As(err); ok && e.TemplateID == "" {
		e.WithTemplate(templateID)
	}
	return err
}
