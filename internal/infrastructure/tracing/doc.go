/*
Package tracing wraps OpenTelemetry for the sandbox.

Spans are created on the global tracer provider; without an SDK installed
they are no-ops. The orchestrator opens one span per execution
(template.execute) with children for validation and the sandbox run.

# Usage

	tracer := tracing.New("template-sandbox", logger)
	ctx, span := tracer.Start(ctx, "template.execute",
		attribute.String("template.id", id))
	defer func() { span.End(err) }()
*/
package tracing
