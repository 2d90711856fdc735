package access

import (
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/pattern"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

// Result is the outcome of one access decision
type Result struct {
	IsValid bool        `json:"isValid"`
	Error   string      `json:"error,omitempty"`
	Code    tplerr.Code `json:"code,omitempty"`
}

// Err converts a denial into a typed error; nil when valid.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	return tplerr.New(r.Code, "%s", r.Error)
}

var allowed = Result{IsValid: true}

// Checker applies domain and keyword restrictions
type Checker struct {
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

func New(logger *zap.Logger, metrics *monitoring.Metrics) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{logger: logger, metrics: metrics}
}

// ValidateURL checks candidate against a domain restriction. A missing or
// empty restriction allows everything; an unparseable URL never does.
func (c *Checker) ValidateURL(candidate string, restriction *types.Restriction) Result {
	if restriction.Empty() {
		return c.record("domain", candidate, allowed)
	}

	u, err := parseURL(candidate)
	if err != nil {
		return c.record("domain", candidate, Result{
			Code:  tplerr.InvalidURL,
			Error: err.Error(),
		})
	}

	for _, p := range restriction.Patterns {
		if pattern.MatchURL(u, p, restriction.Type) {
			return c.record("domain", candidate, allowed)
		}
	}
	return c.record("domain", candidate, Result{
		Code:  tplerr.DomainNotAllowed,
		Error: denial("URL", candidate, restriction),
	})
}

// ValidateKeyword checks a search query against a keyword restriction.
func (c *Checker) ValidateKeyword(query string, restriction *types.Restriction) Result {
	if restriction.Empty() {
		return c.record("keyword", query, allowed)
	}

	for _, p := range restriction.Patterns {
		if pattern.Match(query, p, restriction.Type) {
			return c.record("keyword", query, allowed)
		}
	}
	return c.record("keyword", query, Result{
		Code:  tplerr.PatternNotAllowed,
		Error: denial("Query", query, restriction),
	})
}

func (c *Checker) record(target, candidate string, r Result) Result {
	c.metrics.RecordAccessDecision(target, string(r.Code))
	if !r.IsValid {
		c.logger.Info("Access denied",
			zap.String("target", target),
			zap.String("code", string(r.Code)),
			zap.String("candidate", candidate))
	}
	return r
}

func parseURL(candidate string) (*url.URL, error) {
	raw := strings.TrimSpace(candidate)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, tplerr.Wrap(tplerr.InvalidURL, err, "invalid URL %q", candidate)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return nil, tplerr.New(tplerr.InvalidURL, "invalid URL %q: missing scheme or host", candidate)
	}
	return u, nil
}

func denial(what, candidate string, r *types.Restriction) string {
	kind := r.Type
	if kind == "" {
		kind = types.RestrictionGlob
	}
	return what + " " + quote(candidate) + " does not match any allowed " + string(kind) +
		" pattern: " + strings.Join(r.Patterns, ", ")
}

func quote(s string) string {
	return "\"" + s + "\""
}
