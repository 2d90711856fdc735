package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ScrapeSandbox/backend/internal/sandbox/runtime"
)

func serve(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Handler().ServeHTTP(w, req)

	var body map[string]interface{}
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestHealth(t *testing.T) {
	srv := NewServer(config.Default(), Deps{})

	w, body := serve(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Check
		code   int
		status string
	}{
		{"no checks", nil, http.StatusOK, "ready"},
		{
			"all pass",
			map[string]Check{"sqlite": func(context.Context) error { return nil }},
			http.StatusOK, "ready",
		},
		{
			"one fails",
			map[string]Check{
				"sqlite": func(context.Context) error { return nil },
				"redis":  func(context.Context) error { return errors.New("connection refused") },
			},
			http.StatusServiceUnavailable, "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(config.Default(), Deps{Checks: tt.checks})
			w, body := serve(t, srv, "/readyz")
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.status, body["status"])
		})
	}
}

func TestReadinessClosedExecutor(t *testing.T) {
	exec := runtime.New(runtime.Config{}, runtime.Deps{})
	exec.Close()

	srv := NewServer(config.Default(), Deps{Executor: exec})
	w, body := serve(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "closed", checks["executor"])
}

func TestStats(t *testing.T) {
	exec := runtime.New(runtime.Config{MaxConcurrent: 4}, runtime.Deps{})
	defer exec.Close()

	srv := NewServer(config.Default(), Deps{Executor: exec, Metrics: monitoring.NewMetrics()})
	w, body := serve(t, srv, "/stats")
	require.Equal(t, http.StatusOK, w.Code)

	slots := body["slots"].(map[string]interface{})
	assert.EqualValues(t, 4, slots["size"])
	assert.EqualValues(t, 4, slots["available"])
	assert.Contains(t, body, "metrics")
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := monitoring.NewMetrics()
	srv := NewServer(config.Default(), Deps{Metrics: metrics})

	serve(t, srv, "/healthz")
	w, _ := serve(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 2
	srv := NewServer(cfg, Deps{})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w, _ := serve(t, srv, "/healthz")
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestClientLimitersForgetIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newClientLimiters(config.RateLimitConfig{RequestsPerSecond: 10, Burst: 1, IdleTTL: time.Minute})
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("10.0.0.1"))
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))
	assert.Equal(t, 2, l.len())

	now = now.Add(2 * time.Minute)
	assert.True(t, l.allow("10.0.0.3"))
	assert.Equal(t, 1, l.len())
}
