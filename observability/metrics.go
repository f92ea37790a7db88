package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "mcp-timerange"

// mcpHistogramBuckets are the boundaries the OTel MCP semantic conventions
// recommend for operation and session durations.
var mcpHistogramBuckets = metric.WithExplicitBucketBoundaries(
	0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30, 60, 120, 300,
)

// stepBuckets are the rungs of the interval ladder in seconds, so each
// bucket counts exactly one rung.
var stepBuckets = metric.WithExplicitBucketBoundaries(
	0.001, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5,
	1, 2, 5, 10, 15, 20, 30, 60, 120, 300, 600, 900, 1200, 1800,
	3600, 7200, 10800, 21600, 43200, 86400, 604800, 2592000, 31536000,
)

var lowLimitedKey = attribute.Key("low_limited")

func newIntervalStepHistogram(meter metric.Meter) (metric.Float64Histogram, error) {
	return meter.Float64Histogram(
		"mcp_timerange.interval.step",
		metric.WithDescription("Query steps returned by calculate_interval."),
		metric.WithUnit("s"),
		stepBuckets,
	)
}

// RecordInterval records a query step handed out by calculate_interval.
// lowLimited is true when the caller's minimum interval replaced the
// snapped value. It does nothing when metrics are disabled.
func (o *Observability) RecordInterval(ctx context.Context, intervalMs int64, lowLimited bool) {
	if o == nil || o.intervalStep == nil {
		return
	}
	o.intervalStep.Record(ctx, float64(intervalMs)/1000, metric.WithAttributes(lowLimitedKey.Bool(lowLimited)))
}
