// Package telemetry reports audit pipeline metrics through OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "github.com/awmpietro/golang-trace-explainability-case"

type Shutdown func(ctx context.Context) error

// Init installs a global meter provider exporting over OTLP/HTTP. With an
// empty endpoint nothing is installed and the returned shutdown is a no-op.
func Init(ctx context.Context, endpoint, serviceName string) (Shutdown, error) {
	if endpoint == "" {
		return func(ctx context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}

	exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(endpoint), otlpmetrichttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("telemetry: create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(15*time.Second))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}

// Meter returns the meter from the global provider.
func Meter() metric.Meter {
	return otel.GetMeterProvider().Meter(meterName)
}

// Recorder counts judgments and records stage latency.
type Recorder struct {
	judgments metric.Int64Counter
	stages    metric.Float64Histogram
}

func NewRecorder(meter metric.Meter) (*Recorder, error) {
	judgments, err := meter.Int64Counter("audit.judgments",
		metric.WithDescription("Run comparisons by judgment."))
	if err != nil {
		return nil, fmt.Errorf("telemetry: judgments counter: %w", err)
	}
	stages, err := meter.Float64Histogram("audit.stage.duration",
		metric.WithDescription("Audit pipeline stage latency."),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: stage histogram: %w", err)
	}
	return &Recorder{judgments: judgments, stages: stages}, nil
}

func (r *Recorder) RecordJudgment(ctx context.Context, judgment string) {
	if r == nil {
		return
	}
	r.judgments.Add(ctx, 1, metric.WithAttributes(attribute.String("judgment", judgment)))
}

func (r *Recorder) ObserveStage(stage string, duration time.Duration) {
	if r == nil {
		return
	}
	r.stages.Record(context.Background(), float64(duration.Microseconds())/1000.0,
		metric.WithAttributes(attribute.String("stage", stage)))
}
