// Package observability groups the service's structured logging, Prometheus
// metrics and OpenTelemetry tracing.
//
// Subpackages:
//   - logging: slog construction and request-scoped loggers
//   - metrics: Prometheus collectors and recorders for HTTP and fetch activity
//   - tracing: tracer access and HTTP server spans
package observability
