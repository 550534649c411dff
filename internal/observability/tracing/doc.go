// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are created through the global tracer provider, so the binaries decide
// where spans are exported. Without a configured provider every span is a
// no-op.
//
//	ctx, span := tracing.GetTracer().Start(ctx, "fetch.Fetch")
//	defer span.End()
package tracing
