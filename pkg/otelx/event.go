package otelx

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type OtelTracePropagator interface {
	Propagate(ctx context.Context)
}

type OtelTraceExtractor interface {
	Extract() context.Context
}

type OtelTracePropagatorExtractor interface {
	OtelTracePropagator
	OtelTraceExtractor
}

func ContextFromExtractor(extractor OtelTraceExtractor) context.Context {
	if extractor == nil {
		return context.Background()
	}
	return extractor.Extract()
}

// ConsumerSpanOptions starts an asynchronous consumer span as a new root
// linked to the producer span carried by the event.
func ConsumerSpanOptions(extractor OtelTraceExtractor, opts ...trace.SpanStartOption) []trace.SpanStartOption {
	return append([]trace.SpanStartOption{
		trace.WithNewRoot(),
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithLinks(trace.LinkFromContext(ContextFromExtractor(extractor))),
	}, opts...)
}
