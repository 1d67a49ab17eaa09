package cache

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type cacheMetricsCollection struct {
	lookupCount       metric.Int64Counter
	invalidationCount metric.Int64Counter
	flightDuration    metric.Float64Histogram
}

var metrics cacheMetricsCollection

func init() {
	const name = "eliteseller/cache"
	meter := otel.Meter(name)

	lookupCount, err := meter.Int64Counter(
		"cache/lookup_count",
		metric.WithDescription("Cache lookups by outcome (hit, miss, wait)"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create lookup count metric: %w", err))
	}

	invalidationCount, err := meter.Int64Counter(
		"cache/invalidation_count",
		metric.WithDescription("Number of entries removed by invalidation"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create invalidation count metric: %w", err))
	}

	flightDuration, err := meter.Float64Histogram(
		"cache/flight_duration_seconds",
		metric.WithDescription("Time from starting a coalesced operation until it resolved"),
		metric.WithUnit("s"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create flight duration metric: %w", err))
	}

	metrics = cacheMetricsCollection{
		lookupCount:       lookupCount,
		invalidationCount: invalidationCount,
		flightDuration:    flightDuration,
	}
}
