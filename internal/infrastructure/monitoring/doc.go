/*
Package monitoring provides Prometheus metrics for the template sandbox.

# Overview

Each Metrics value owns its own registry so several instances (tests,
multiple clients) never collide on registration.

# Metrics

  - sandbox_executions_total{strategy,code}: outcome of every execution
  - sandbox_execution_duration_seconds{strategy}
  - sandbox_validations_total{code}, sandbox_validation_cache_total{result}
  - sandbox_security_findings_total{rule}
  - sandbox_access_decisions_total{target,code}
  - sandbox_page_calls_total{method}, sandbox_page_denied_total{code}
  - sandbox_template_lookups_total{source,status}
  - sandbox_execution_log_failures_total

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

All recording methods are nil-safe.
*/
package monitoring
