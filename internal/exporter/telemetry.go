package exporter

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "gridexport/exporter"

var tracer = otel.Tracer(instrumentationName)

// Metrics holds the export instruments
type Metrics struct {
	ExportsTotal   metric.Int64Counter
	ExportDuration metric.Float64Histogram
	ExportRecords  metric.Int64Counter
}

// NewMetrics creates the export instruments on meter. A nil meter uses the
// global meter provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	exportsTotal, err := meter.Int64Counter(
		"exports_total",
		metric.WithDescription("Total number of export requests by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	exportDuration, err := meter.Float64Histogram(
		"export_duration_seconds",
		metric.WithDescription("Export duration from request to artifact"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	exportRecords, err := meter.Int64Counter(
		"export_records_total",
		metric.WithDescription("Flattened records written to artifacts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ExportsTotal:   exportsTotal,
		ExportDuration: exportDuration,
		ExportRecords:  exportRecords,
	}, nil
}

func (m *Metrics) record(ctx context.Context, format, scope, outcome string, records int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
	)
	m.ExportsTotal.Add(ctx, 1, attrs)
	m.ExportDuration.Record(ctx, duration.Seconds(), attrs)
	if records > 0 {
		m.ExportRecords.Add(ctx, int64(records), attrs)
	}
}
