package metrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	meter = otel.Meter("kiku/business")

	// Menu metrics
	MenuExtractionsTotal   metric.Int64Counter
	MenuExtractionDuration metric.Float64Histogram
	BatchLoadsTotal        metric.Int64Counter

	// External API metrics
	ExternalAPICallsTotal metric.Int64Counter
	ExternalAPIDuration   metric.Float64Histogram

	// Enrichment metrics
	ImageSearchTotal   metric.Int64Counter
	EnrichmentDuration metric.Float64Histogram

	// Order metrics
	OrdersPlacedTotal metric.Int64Counter
)

// Instruments exist from package load so tests and early callers never see
// nil. The global meter delegates to the SDK provider once it is installed.
func init() {
	_ = Init()
}

func Init() error {
	var err error

	// Menu metrics
	MenuExtractionsTotal, err = meter.Int64Counter(
		"menu.extractions.total",
		metric.WithDescription("Total number of menu extraction runs"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	MenuExtractionDuration, err = meter.Float64Histogram(
		"menu.extraction.duration",
		metric.WithDescription("Duration of menu extraction including the model call"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2, 5, 10, 30, 60, 120),
	)
	if err != nil {
		return err
	}

	BatchLoadsTotal, err = meter.Int64Counter(
		"menu.batch_loads.total",
		metric.WithDescription("Total number of load-more batches revealed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	// External API metrics
	ExternalAPICallsTotal, err = meter.Int64Counter(
		"external.api.calls.total",
		metric.WithDescription("Total number of external API calls"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	ExternalAPIDuration, err = meter.Float64Histogram(
		"external.api.duration",
		metric.WithDescription("Duration of external API calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return err
	}

	// Enrichment metrics
	ImageSearchTotal, err = meter.Int64Counter(
		"image_search.total",
		metric.WithDescription("Image search lookups by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	EnrichmentDuration, err = meter.Float64Histogram(
		"enrichment.duration",
		metric.WithDescription("Duration of image enrichment for one batch"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30),
	)
	if err != nil {
		return err
	}

	// Order metrics
	OrdersPlacedTotal, err = meter.Int64Counter(
		"orders.placed.total",
		metric.WithDescription("Total number of non-empty orders placed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}
