package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the Prometheus exposition handler for m's registry
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	m.UpdateUptime()
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Timer measures one execution
type Timer struct {
	start    time.Time
	metrics  *Metrics
	strategy string
}

// StartExecution marks an execution in flight and returns its timer
func StartExecution(metrics *Metrics, strategy string) *Timer {
	metrics.ExecutionStarted()
	return &Timer{
		start:    time.Now(),
		metrics:  metrics,
		strategy: strategy,
	}
}

// Stop records the outcome code and returns the elapsed time
func (t *Timer) Stop(code string) time.Duration {
	duration := time.Since(t.start)
	t.metrics.ExecutionFinished(t.strategy, code, duration)
	return duration
}
