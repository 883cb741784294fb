package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records aggregate-level OTel metrics exported through the
// Prometheus registry.
type Observability struct {
	meterProvider  *metric.MeterProvider
	meter          otelmetric.Meter
	aggCounter     otelmetric.Int64Counter
	aggDuration    otelmetric.Float64Histogram
	memberCounter  otelmetric.Int64Counter
	tracerShutdown func(context.Context) error
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func New(serviceName string, log Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		if log != nil {
			log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err.Error()})
		}
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	aggCounter, _ := meter.Int64Counter(
		"aggregations.processed",
		otelmetric.WithDescription("Number of /multiple requests processed"),
	)

	aggDuration, _ := meter.Float64Histogram(
		"aggregations.duration",
		otelmetric.WithDescription("Aggregation processing duration"),
		otelmetric.WithUnit("ms"),
	)

	memberCounter, _ := meter.Int64Counter(
		"aggregations.members",
		otelmetric.WithDescription("Number of output members written"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		aggCounter:    aggCounter,
		aggDuration:   aggDuration,
		memberCounter: memberCounter,
	}
}

// Noop returns an Observability that records nothing.
func Noop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordAggregation(ctx context.Context, mode, status string, members int, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("status", status),
	)
	if o.aggCounter != nil {
		o.aggCounter.Add(ctx, 1, attrs)
	}
	if o.memberCounter != nil {
		o.memberCounter.Add(ctx, int64(members), attrs)
	}
	if o.aggDuration != nil {
		o.aggDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerShutdown != nil {
		_ = o.tracerShutdown(ctx)
	}
}
