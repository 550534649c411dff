package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans emitted by this service.
const InstrumentationName = "news-fetcher"

// GetTracer returns the service tracer from the current global provider.
// It is resolved on each call so tests can swap providers.
func GetTracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
