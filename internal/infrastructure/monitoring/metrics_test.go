package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsAreIndependent(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordValidation("")
	a.RecordValidation("SECURITY_VIOLATION")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Validations.WithLabelValues("OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Validations.WithLabelValues("SECURITY_VIOLATION")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Validations.WithLabelValues("OK")))
}

func TestExecutionTimer(t *testing.T) {
	m := NewMetrics()

	timer := StartExecution(m, "isolated")
	assert.Equal(t, int64(1), m.GetSnapshot().ActiveExecutions)

	timer.Stop("TIMEOUT")

	snap := m.GetSnapshot()
	assert.Equal(t, int64(0), snap.ActiveExecutions)
	assert.Equal(t, int64(1), snap.TotalExecutions)
	assert.Equal(t, int64(1), snap.FailedExecutions)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Executions.WithLabelValues("isolated", "TIMEOUT")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordPageCall("goto")
		m.RecordPageDenied("CAPABILITY_DENIED")
		m.RecordAccessDecision("domain", "")
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
		StartExecution(m, "ambient").Stop("")
		_ = m.GetSnapshot()
		_ = m.Handler()
	})
}
