// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Sandbox components receive a *zap.Logger and tag their lines with
// template_id and execution_id through ForTemplate. Template console output
// is forwarded here as well (console.log → Info, console.warn → Warn).
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	log := logging.ForTemplate(logger.Component("runtime"), "tpl-1", execID)
//	log.Info("page call", zap.Int("calls", 3), zap.Int("max_calls", 1000))
package logging
