package calculator

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metric instruments. They record nothing until InitMetrics() binds them to
// the global meter provider.
var (
	keysCounter   metric.Int64Counter
	equalsCounter metric.Int64Counter
	enrichCounter metric.Int64Counter
	errorCounter  metric.Int64Counter
	opsHistogram  metric.Float64Histogram
	resultGauge   metric.Float64Gauge
)

func init() {
	if err := registerInstruments(noop.Meter{}); err != nil {
		panic(err)
	}
}

// InitMetrics registers custom OTel metric instruments for the calculator domain.
// Call this once at startup (after observability.InitMetrics).
func InitMetrics() error {
	return registerInstruments(otel.Meter("calculator"))
}

func registerInstruments(meter metric.Meter) error {
	var err error

	keysCounter, err = meter.Int64Counter("calculator.keys.total",
		metric.WithDescription("Total number of key presses handled"),
		metric.WithUnit("{key}"),
	)
	if err != nil {
		return fmt.Errorf("creating keys counter: %w", err)
	}

	equalsCounter, err = meter.Int64Counter("calculator.equals.total",
		metric.WithDescription("Total number of completed calculations"),
		metric.WithUnit("{calculation}"),
	)
	if err != nil {
		return fmt.Errorf("creating equals counter: %w", err)
	}

	enrichCounter, err = meter.Int64Counter("calculator.enrichment.total",
		metric.WithDescription("Background pincode lookups by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return fmt.Errorf("creating enrichment counter: %w", err)
	}

	errorCounter, err = meter.Int64Counter("calculator.errors.total",
		metric.WithDescription("Total number of calculator errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return fmt.Errorf("creating error counter: %w", err)
	}

	opsHistogram, err = meter.Float64Histogram("calculator.operation.duration",
		metric.WithDescription("Duration of calculator operations in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return fmt.Errorf("creating ops histogram: %w", err)
	}

	resultGauge, err = meter.Float64Gauge("calculator.last_result",
		metric.WithDescription("The true result of the last completed calculation"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("creating result gauge: %w", err)
	}

	return nil
}
