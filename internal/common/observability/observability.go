// internal/common/observability/observability.go
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// Observability owns the otel meter provider and the per-turn instruments.
type Observability struct {
	meterProvider *metric.MeterProvider
	tracer        trace.Tracer
	turnCounter   otelmetric.Int64Counter
	turnDuration  otelmetric.Float64Histogram
}

// New registers a prometheus-backed meter provider globally. When the exporter cannot
// be created the returned value still works and records nothing.
func New(serviceName string) (*Observability, error) {
	o := &Observability{tracer: otel.Tracer(serviceName)}

	exporter, err := prometheus.New()
	if err != nil {
		return o, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter(serviceName)

	o.meterProvider = provider
	o.turnCounter, _ = meter.Int64Counter(
		"bot.turns.processed",
		otelmetric.WithDescription("Number of turns processed"),
	)
	o.turnDuration, _ = meter.Float64Histogram(
		"bot.turns.duration",
		otelmetric.WithDescription("Turn processing duration"),
		otelmetric.WithUnit("ms"),
	)
	return o, nil
}

// NewNoop returns an instance that only carries the global tracer.
func NewNoop() *Observability {
	return &Observability{tracer: otel.Tracer("bookings-bot")}
}

// StartSpan opens a span for one turn.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordTurnProcessed(ctx context.Context, activityType, outcome string) {
	if o.turnCounter != nil {
		o.turnCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("activity_type", activityType),
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) RecordTurnDuration(ctx context.Context, duration time.Duration, activityType string) {
	if o.turnDuration != nil {
		o.turnDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("activity_type", activityType),
		))
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}
