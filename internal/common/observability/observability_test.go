package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNoop_RecordsNothing(t *testing.T) {
	o := Noop()
	o.RecordAggregation(context.Background(), "streaming", "ok", 3, time.Millisecond)
	o.InitTracing(context.Background(), TracingConfig{Enabled: false}, nil)
	o.Shutdown()

	var nilObs *Observability
	nilObs.RecordAggregation(context.Background(), "streaming", "ok", 1, time.Millisecond)
	nilObs.Shutdown()
}

func TestStartSpan_UsesGlobalProvider(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(context.Background(), "subrequest", attribute.String("name", "bob"))
	span.End()

	spans := recorder.Ended()
	if assert.Len(t, spans, 1) {
		assert.Equal(t, "subrequest", spans[0].Name())
		assert.Contains(t, spans[0].Attributes(), attribute.String("name", "bob"))
	}
}
