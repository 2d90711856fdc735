package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Tracer creates spans on the global OpenTelemetry provider and logs
// failed spans through zap.
type Tracer struct {
	service string
	tracer  trace.Tracer
	logger  *zap.Logger
}

// Span is one traced operation
type Span struct {
	span   trace.Span
	name   string
	start  time.Time
	logger *zap.Logger
}

// New creates a tracer for service
func New(service string, logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{
		service: service,
		tracer:  otel.Tracer(service),
		logger:  logger,
	}
}

// Start opens a span named name as a child of any span in ctx
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	if t == nil {
		t = New("sandbox", nil)
	}
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &Span{
		span:   span,
		name:   name,
		start:  time.Now(),
		logger: t.logger,
	}
}

// SetAttributes adds attributes to the span
func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// End closes the span, recording err when non-nil
func (s *Span) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
		s.logger.Debug("span completed with error",
			zap.String("operation", s.name),
			zap.String("trace_id", s.span.SpanContext().TraceID().String()),
			zap.Duration("duration", time.Since(s.start)),
			zap.Error(err),
		)
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// TraceID returns the trace id of the span in ctx, or "" when not sampled
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
