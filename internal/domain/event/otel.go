package event

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
)

var propagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

// Otel carries W3C trace context across the outbox so consumers can link to the producer span.
// Carrier is exported so it survives the JSON round trip through watermill.
type Otel struct {
	Carrier map[string]string `json:"otel_carrier,omitempty"`
}

func (o *Otel) Propagate(ctx context.Context) {
	if o.Carrier == nil {
		o.Carrier = make(map[string]string)
	}

	propagator.Inject(ctx, propagation.MapCarrier(o.Carrier))
}

func (o *Otel) Extract() context.Context {
	if o == nil || len(o.Carrier) == 0 {
		return context.Background()
	}

	return propagator.Extract(context.Background(), propagation.MapCarrier(o.Carrier))
}
