package worker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Job outcomes recorded per enrichment task.
const (
	outcomeCompleted = "completed"
	outcomeDropped   = "dropped"
	outcomeFailed    = "failed"
	outcomeInvalid   = "invalid"
)

// WorkerMetrics counts enrichment tasks by outcome and how many dishes
// they covered.
type WorkerMetrics struct {
	jobs     metric.Int64Counter
	dishes   metric.Int64Counter
	duration metric.Float64Histogram
}

func NewWorkerMetrics() (*WorkerMetrics, error) {
	meter := otel.Meter("kiku/worker")

	jobs, err := meter.Int64Counter("worker.enrich.jobs",
		metric.WithDescription("Enrichment tasks handled, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	dishes, err := meter.Int64Counter("worker.enrich.dishes",
		metric.WithDescription("Dishes named in enrichment tasks that completed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("worker.enrich.duration",
		metric.WithDescription("Wall time of one enrichment task"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2, 5, 10, 30, 60, 300),
	)
	if err != nil {
		return nil, err
	}

	return &WorkerMetrics{jobs: jobs, dishes: dishes, duration: duration}, nil
}

// RecordJob is safe on a nil receiver so the worker runs without metrics.
func (m *WorkerMetrics) RecordJob(ctx context.Context, outcome string, dishCount int, elapsed time.Duration) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.jobs.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	if outcome == outcomeCompleted {
		m.dishes.Add(ctx, int64(dishCount))
	}
}
