package tracing

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// HTTPMiddleware creates Gin middleware for ops request tracing
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "http "+c.FullPath(),
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.target", c.Request.URL.Path),
		)
		c.Request = c.Request.WithContext(ctx)

		if id := TraceID(ctx); id != "" {
			c.Header("X-Trace-ID", id)
		}

		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
		var err error
		if len(c.Errors) > 0 {
			err = errors.New(c.Errors.String())
		}
		span.End(err)
	}
}
