// Package config provides 12-factor configuration for the template sandbox.
//
// Configuration is loaded from environment variables with defaults; every
// execution limit can be changed without a code change.
//
// Configuration Sections:
//   - Server: Ops HTTP server (port, host)
//   - Sandbox: Timeout, page-call budget, page-method allow-list, concurrency
//   - Template: Store backend, resolved-template cache TTL, rate limiting
//   - PreNav: Redis-backed pre-navigation capture store
//   - Logging: Log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("timeout %s, budget %d\n", cfg.Sandbox.Timeout, cfg.Sandbox.PageCallBudget)
//
// Environment Variables:
//   - SANDBOX_TIMEOUT, SANDBOX_PAGE_CALL_BUDGET, SANDBOX_ALLOWED_PAGE_METHODS
//   - SANDBOX_MAX_CONCURRENT, SANDBOX_MAX_CALL_STACK, SANDBOX_PRENAV_WAIT
//   - TEMPLATE_CACHE_TTL, TEMPLATE_STORE, TEMPLATE_SQLITE_PATH, TEMPLATE_DIR
//   - TEMPLATE_REMOTE_URL, TEMPLATE_RATE_LIMIT_RPS, TEMPLATE_RATE_LIMIT_BURST
//   - PRENAV_REDIS_ADDR, PORT, HOST, LOG_LEVEL, LOG_DEV
package config
