package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/alnah/go-workout"

// Metrics records generation outcomes. The zero value is unusable; build
// it with NewMetrics.
type Metrics struct {
	generations metric.Int64Counter
	duration    metric.Float64Histogram
	tracks      metric.Int64Counter
}

// NewMetrics registers instruments on mp, or the global provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	generations, err := meter.Int64Counter("workout.generations",
		metric.WithDescription("Workouts generated, by outcome"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("workout.generation.duration",
		metric.WithDescription("Wall time to generate a workout"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	tracks, err := meter.Int64Counter("workout.background.tracks",
		metric.WithDescription("Background tracks requested"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{generations: generations, duration: duration, tracks: tracks}, nil
}

// RecordGeneration counts one generation and its latency.
// outcome is "ok", "invalid" or "error".
func (m *Metrics) RecordGeneration(ctx context.Context, outcome string, elapsed time.Duration, backgroundURLs int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.generations.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	if backgroundURLs > 0 {
		m.tracks.Add(ctx, int64(backgroundURLs))
	}
}
