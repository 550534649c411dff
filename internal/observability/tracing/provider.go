package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Setup installs a global tracer provider that samples requests whose caller
// sampled them, and all root requests when sampleRoot is true. Spans are not
// exported; they only give log lines and responses a trace ID. The returned
// function flushes and stops the provider.
func Setup(sampleRoot bool, opts ...sdktrace.TracerProviderOption) func(context.Context) error {
	root := sdktrace.NeverSample()
	if sampleRoot {
		root = sdktrace.AlwaysSample()
	}
	opts = append([]sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(root)),
	}, opts...)

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))
	return tp.Shutdown
}
