package validator

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/dop251/goja"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/analyzer"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/utils"
)

// Validator checks template code before it is allowed to run.
type Validator struct {
	scanner analyzer.Scanner
	limits  Limits
	cache   *Cache
	logger  *zap.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer

	checks atomic.Int64
}

// New creates a validator. A nil scanner selects the default rule table.
func New(scanner analyzer.Scanner, limits Limits, logger *zap.Logger, metrics *monitoring.Metrics, tracer *tracing.Tracer) *Validator {
	if scanner == nil {
		scanner = analyzer.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		scanner: scanner,
		limits:  limits,
		cache:   NewCache(),
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
}

// ValidateCode accepts JavaScript code for templateID at version, consulting
// the cache first. Only a full pass is cached.
func (v *Validator) ValidateCode(ctx context.Context, code, templateID string, version int64) error {
	return v.ValidateSource(ctx, types.Code{Source: code, Language: types.LanguageJavaScript}, templateID, version)
}

// ValidateSource is ValidateCode for a code payload in any supported language.
// A cache hit needs the same version marker and the same source, and a zero
// marker is never served from the cache.
func (v *Validator) ValidateSource(ctx context.Context, src types.Code, templateID string, version int64) error {
	fingerprint := sourceDigest(src)
	if version != 0 && v.cache.Validated(templateID, version, fingerprint) {
		v.metrics.RecordValidationCache(true)
		v.logger.Debug("Validation cache hit",
			zap.String("template_id", templateID),
			zap.Int64("version", version))
		return nil
	}
	v.metrics.RecordValidationCache(false)

	_, span := v.tracer.Start(ctx, "template.validate",
		attribute.String("template.id", templateID),
		attribute.Int64("template.version", version),
		attribute.String("template.language", string(src.Language)))

	err := v.CheckSource(src)
	span.End(err)
	v.metrics.RecordValidation(string(tplerr.CodeOf(err)))

	if err != nil {
		if e, ok := tplerr.As(err); ok {
			e.WithTemplate(templateID)
		}
		v.logger.Info("Template rejected",
			zap.String("template_id", templateID),
			zap.Int64("version", version),
			zap.String("fingerprint", utils.SourceFingerprint(src.Source)),
			zap.Error(err))
		return err
	}

	if version != 0 {
		v.cache.Put(templateID, version, fingerprint)
	}
	v.logger.Debug("Template validated",
		zap.String("template_id", templateID),
		zap.Int64("version", version))
	return nil
}

// Check runs syntax, security and complexity checks on JavaScript code in
// that order without touching the cache.
func (v *Validator) Check(code string) error {
	return v.CheckSource(types.Code{Source: code, Language: types.LanguageJavaScript})
}

// CheckSource is Check for any supported language. TypeScript is transpiled
// for the syntax check; security and complexity rules apply to the source as
// written.
func (v *Validator) CheckSource(src types.Code) error {
	v.checks.Add(1)

	js, err := Transpile(src)
	if err != nil {
		return err
	}
	if err := CheckSyntax(js); err != nil {
		return err
	}
	if report := v.scanner.Scan(src.Source); !report.Safe {
		for _, rule := range report.Rules() {
			v.metrics.RecordSecurityFinding(rule)
		}
		e := tplerr.New(tplerr.SecurityViolation, "%s", strings.Join(report.Messages(), "; "))
		e.Violations = report.Rules()
		return e
	}
	return checkComplexity(src.Source, v.limits)
}

// Checks returns how many times the full check sequence has run.
func (v *Validator) Checks() int64 {
	return v.checks.Load()
}

// Invalidate forgets the validated version of templateID.
func (v *Validator) Invalidate(templateID string) {
	v.cache.Invalidate(templateID)
}

// Cache exposes the validation cache.
func (v *Validator) Cache() *Cache {
	return v.cache
}

// CheckSyntax compiles code as the body of an async function without
// running it.
func CheckSyntax(code string) error {
	if _, err := goja.Compile("template", WrapAsync(code), false); err != nil {
		return tplerr.Wrap(tplerr.InvalidSyntax, err, "%s", err.Error())
	}
	return nil
}

// WrapAsync wraps code as an async function expression.
func WrapAsync(code string) string {
	return "(async function() {\n" + code + "\n})"
}

// sourceDigest identifies a code payload for the validation cache.
func sourceDigest(src types.Code) string {
	return utils.DefaultHasher().HashString(string(src.Language) + "\x00" + src.Source)
}
