package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the sandbox. Every method is
// safe to call on a nil *Metrics so components can run unmetered.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics (ops server)
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Execution metrics
	Executions        *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	ExecutionsActive  prometheus.Gauge
	CreditsCharged    prometheus.Counter

	// Validation metrics
	Validations      *prometheus.CounterVec
	ValidationCache  *prometheus.CounterVec
	SecurityFindings *prometheus.CounterVec

	// Access control metrics
	AccessDecisions *prometheus.CounterVec

	// Page proxy metrics
	PageCalls  *prometheus.CounterVec
	PageDenied *prometheus.CounterVec

	// Collaborator metrics
	StoreLookups  *prometheus.CounterVec
	LogWriteFails prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON status endpoint
type Snapshot struct {
	TotalExecutions  int64   `json:"total_executions"`
	FailedExecutions int64   `json:"failed_executions"`
	ActiveExecutions int64   `json:"active_executions"`
	TotalDuration    float64 `json:"total_duration_seconds"`
}

// NewMetrics creates a metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_http_requests_total",
				Help: "Total number of ops HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_http_request_duration_seconds",
				Help:    "Ops HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),

		Executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_executions_total",
				Help: "Total number of template executions by strategy and outcome code",
			},
			[]string{"strategy", "code"},
		),
		ExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sandbox_execution_duration_seconds",
				Help:    "Template execution duration in seconds",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"strategy"},
		),
		ExecutionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sandbox_executions_active",
				Help: "Number of template executions in flight",
			},
		),
		CreditsCharged: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sandbox_credits_charged_total",
				Help: "Total credits charged for successful executions",
			},
		),

		Validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_validations_total",
				Help: "Total number of code validations by outcome code",
			},
			[]string{"code"},
		),
		ValidationCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_validation_cache_total",
				Help: "Validation cache lookups",
			},
			[]string{"result"},
		),
		SecurityFindings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_security_findings_total",
				Help: "Static analysis rule hits",
			},
			[]string{"rule"},
		),

		AccessDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_access_decisions_total",
				Help: "Domain and keyword access decisions",
			},
			[]string{"target", "code"},
		),

		PageCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_page_calls_total",
				Help: "Page proxy calls let through, by method",
			},
			[]string{"method"},
		),
		PageDenied: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_page_denied_total",
				Help: "Page proxy calls denied, by reason",
			},
			[]string{"code"},
		),

		StoreLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sandbox_template_lookups_total",
				Help: "Template resolutions by source",
			},
			[]string{"source", "status"},
		),
		LogWriteFails: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sandbox_execution_log_failures_total",
				Help: "Execution log writes that failed",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sandbox_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}

	return m
}

// Registry exposes the underlying registry for the /metrics handler
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordHTTPRequest records an ops HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ExecutionStarted marks one execution in flight
func (m *Metrics) ExecutionStarted() {
	if m == nil {
		return
	}
	m.ExecutionsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveExecutions++
	m.mu.Unlock()
}

// ExecutionFinished records the outcome of an execution. An empty code means success.
func (m *Metrics) ExecutionFinished(strategy, code string, duration time.Duration) {
	if m == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	m.ExecutionsActive.Dec()
	m.Executions.WithLabelValues(strategy, code).Inc()
	m.ExecutionDuration.WithLabelValues(strategy).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.ActiveExecutions--
	m.snapshot.TotalExecutions++
	m.snapshot.TotalDuration += duration.Seconds()
	if code != "OK" {
		m.snapshot.FailedExecutions++
	}
	m.mu.Unlock()
}

// AddCredits records credits charged for a run
func (m *Metrics) AddCredits(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CreditsCharged.Add(float64(n))
}

// RecordValidation records a validation outcome. An empty code means success.
func (m *Metrics) RecordValidation(code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	m.Validations.WithLabelValues(code).Inc()
}

// RecordValidationCache records a cache hit or miss
func (m *Metrics) RecordValidationCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ValidationCache.WithLabelValues(result).Inc()
}

// RecordSecurityFinding records a static analysis rule hit
func (m *Metrics) RecordSecurityFinding(rule string) {
	if m == nil {
		return
	}
	m.SecurityFindings.WithLabelValues(rule).Inc()
}

// RecordAccessDecision records an access-control decision for "domain" or "keyword"
func (m *Metrics) RecordAccessDecision(target, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	m.AccessDecisions.WithLabelValues(target, code).Inc()
}

// RecordPageCall records an allowed page proxy call
func (m *Metrics) RecordPageCall(method string) {
	if m == nil {
		return
	}
	m.PageCalls.WithLabelValues(method).Inc()
}

// RecordPageDenied records a denied page proxy call
func (m *Metrics) RecordPageDenied(code string) {
	if m == nil {
		return
	}
	m.PageDenied.WithLabelValues(code).Inc()
}

// RecordStoreLookup records a template resolution ("cache" or "store")
func (m *Metrics) RecordStoreLookup(source, status string) {
	if m == nil {
		return
	}
	m.StoreLookups.WithLabelValues(source, status).Inc()
}

// IncLogWriteFailures records a failed execution log write
func (m *Metrics) IncLogWriteFailures() {
	if m == nil {
		return
	}
	m.LogWriteFails.Inc()
}

// UpdateUptime refreshes the uptime gauge
func (m *Metrics) UpdateUptime() {
	if m == nil {
		return
	}
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// GetSnapshot returns the current snapshot
func (m *Metrics) GetSnapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
