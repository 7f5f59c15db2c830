package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
)

func TestInitPropagationInstallsGlobal(t *testing.T) {
	prop := InitPropagation()

	assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, prop.Fields())
	assert.ElementsMatch(t, prop.Fields(), otel.GetTextMapPropagator().Fields())
}
