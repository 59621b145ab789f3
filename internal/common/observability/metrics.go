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

// Observability records OpenTelemetry instruments exported through the Prometheus registry.
type Observability struct {
	meterProvider *metric.MeterProvider
	jobCounter    otelmetric.Int64Counter
	jobDuration   otelmetric.Float64Histogram
	chatTurns     otelmetric.Int64Counter
	chatLatency   otelmetric.Float64Histogram
}

// New returns a usable value even when the exporter cannot be created; the
// instruments are then nil and every Record call is a no-op.
func New(serviceName string) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return &Observability{}, err
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter(serviceName)

	o := &Observability{meterProvider: provider}

	o.jobCounter, _ = meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	o.jobDuration, _ = meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	o.chatTurns, _ = meter.Int64Counter(
		"chat.turns",
		otelmetric.WithDescription("Chat turns answered, by provider and response type"),
	)
	o.chatLatency, _ = meter.Float64Histogram(
		"chat.turn.duration",
		otelmetric.WithDescription("End-to-end chat turn latency"),
		otelmetric.WithUnit("ms"),
	)
	return o, nil
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
	))
}

// RecordChatTurn counts one answered chat turn and its latency.
func (o *Observability) RecordChatTurn(ctx context.Context, provider, responseType string, duration time.Duration) {
	if o == nil || o.chatTurns == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("response_type", responseType),
	)
	o.chatTurns.Add(ctx, 1, attrs)
	if o.chatLatency != nil {
		o.chatLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
