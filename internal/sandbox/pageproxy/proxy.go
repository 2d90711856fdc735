package pageproxy

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/analyzer"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/tplerr"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/shared/types"
)

// DefaultMaxCalls is the per-execution page call budget.
const DefaultMaxCalls = 1000

// NavigationGuard vets a navigation target before page.goto runs.
type NavigationGuard func(target string) error

// Config bounds what a template may do with the page
type Config struct {
	MaxCalls       int
	AllowedMethods []string // empty selects DefaultMethods
}

// Options carries the collaborators of a proxy
type Options struct {
	TemplateID string
	Scanner    analyzer.Scanner
	Guard      NavigationGuard
	Logger     *zap.Logger
	Metrics    *monitoring.Metrics
}

// Proxy mediates every call a template makes on a borrowed page handle.
// One proxy serves exactly one execution.
type Proxy struct {
	page       types.Page
	templateID string
	allowed    map[string]struct{}
	methods    []string
	maxCalls   int
	scanner    analyzer.Scanner
	guard      NavigationGuard
	logger     *zap.Logger
	metrics    *monitoring.Metrics

	mu    sync.Mutex
	calls int
}

// New wraps page.
func New(page types.Page, cfg Config, opts Options) *Proxy {
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = DefaultMethods()
	}
	sorted := append([]string(nil), methods...)
	sort.Strings(sorted)

	if cfg.MaxCalls <= 0 {
		cfg.MaxCalls = DefaultMaxCalls
	}
	if opts.Scanner == nil {
		opts.Scanner = analyzer.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Proxy{
		page:       page,
		templateID: opts.TemplateID,
		allowed:    toSet(methods),
		methods:    sorted,
		maxCalls:   cfg.MaxCalls,
		scanner:    opts.Scanner,
		guard:      opts.Guard,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

// Allowed reports whether method is on the allow-list.
func (p *Proxy) Allowed(method string) bool {
	_, ok := p.allowed[method]
	return ok
}

// Call invokes an allow-listed page method. Denied calls never count
// against the budget.
func (p *Proxy) Call(ctx context.Context, method string, args ...interface{}) (interface{}, error) {
	if !p.Allowed(method) {
		return nil, p.deny(tplerr.New(tplerr.CapabilityDenied,
			"page method %q is not allowed; allowed methods: %s", method, strings.Join(p.methods, ", ")))
	}
	if err := p.checkBudget(); err != nil {
		return nil, err
	}
	if err := p.inspect(method, args); err != nil {
		return nil, p.deny(err)
	}

	if err := p.take(method); err != nil {
		return nil, err
	}
	if method == "isClosed" {
		return p.page.IsClosed(), nil
	}
	return p.page.Invoke(ctx, method, args...)
}

// Cookies reads cookies through the budget without exposing the browser
// context.
func (p *Proxy) Cookies(ctx context.Context, urls ...string) ([]types.Cookie, error) {
	if err := p.take("cookies"); err != nil {
		return nil, err
	}
	return p.page.Cookies(ctx, urls...)
}

// DenyMutation is the answer to any attempt to set or delete a property
// of the page handle.
func (p *Proxy) DenyMutation(op, property string) error {
	return p.deny(tplerr.New(tplerr.ModificationDenied,
		"cannot %s property %q of page", op, property))
}

// Calls returns the number of calls made so far.
func (p *Proxy) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// MaxCalls returns the configured budget.
func (p *Proxy) MaxCalls() int {
	return p.maxCalls
}

// Methods returns the sorted allow-list.
func (p *Proxy) Methods() []string {
	return append([]string(nil), p.methods...)
}

// IsClosed reports whether the underlying page has been closed. It is a
// host-side query and does not count as a call.
func (p *Proxy) IsClosed() bool {
	return p.page.IsClosed()
}

func (p *Proxy) checkBudget() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls >= p.maxCalls {
		return p.deny(p.budgetError())
	}
	return nil
}

func (p *Proxy) take(method string) error {
	p.mu.Lock()
	if p.calls >= p.maxCalls {
		p.mu.Unlock()
		return p.deny(p.budgetError())
	}
	p.calls++
	n := p.calls
	p.mu.Unlock()

	p.metrics.RecordPageCall(method)
	p.logger.Info("Page method call",
		zap.String("template_id", p.templateID),
		zap.String("method", method),
		zap.Int("calls", n),
		zap.Int("max_calls", p.maxCalls))
	return nil
}

func (p *Proxy) budgetError() error {
	return tplerr.New(tplerr.CallBudgetExceeded,
		"page call budget of %d calls exhausted", p.maxCalls)
}

// inspect rescans code handed to in-page evaluation and vets navigation.
func (p *Proxy) inspect(method string, args []interface{}) error {
	if _, ok := evalMethods[method]; ok {
		for _, arg := range args {
			code, ok := arg.(string)
			if !ok {
				continue
			}
			if report := p.scanner.Scan(code); !report.Safe {
				e := tplerr.New(tplerr.SecurityViolation,
					"code passed to page.%s: %s", method, strings.Join(report.Messages(), "; "))
				e.Violations = report.Rules()
				return e
			}
		}
	}

	if method == "goto" && p.guard != nil {
		target := ""
		if len(args) > 0 {
			target, _ = args[0].(string)
		}
		if err := p.guard(target); err != nil {
			return err
		}
	}
	return nil
}

func (p *Proxy) deny(err error) error {
	p.metrics.RecordPageDenied(string(tplerr.CodeOf(err)))
	if e, ok := tplerr.As(err); ok && e.TemplateID == "" {
		e.WithTemplate(p.templateID)
	}
	return err
}
