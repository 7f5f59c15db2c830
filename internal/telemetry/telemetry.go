// Package telemetry configures OpenTelemetry context propagation so trace and
// baggage headers follow a link from the HTTP request into queue messages.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InitPropagation installs the W3C trace-context and baggage propagators as
// the global text map propagator.
func InitPropagation() propagation.TextMapPropagator {
	prop := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	otel.SetTextMapPropagator(prop)
	return prop
}
