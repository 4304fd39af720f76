package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records nostrstore metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordSave records a save decision, its latency, and error status.
	RecordSave(ctx context.Context, stored bool, duration time.Duration, err error)

	// RecordBulkImport records a batch import with its accepted size.
	RecordBulkImport(ctx context.Context, accepted int, duration time.Duration, err error)

	// RecordReconcile records a startup reconciliation: events loaded from
	// storage and events purged on the index's decision.
	RecordReconcile(ctx context.Context, loaded, discarded int, duration time.Duration)

	// RecordWipe records a completed wipe.
	RecordWipe(ctx context.Context, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	saves            metric.Int64Counter
	saveLatency      metric.Float64Histogram
	saveErrors       metric.Int64Counter
	importsAccepted  metric.Int64Counter
	importLatency    metric.Float64Histogram
	reconcileLoaded  metric.Int64Counter
	reconcilePurged  metric.Int64Counter
	reconcileLatency metric.Float64Histogram
	wipes            metric.Int64Counter
	wipeLatency      metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("nostrstore")

	saves, err := meter.Int64Counter("nostrstore.save.decisions",
		metric.WithDescription("Number of save operations, by index decision"),
	)
	if err != nil {
		return nil, err
	}

	saveLatency, err := meter.Float64Histogram("nostrstore.save.latency_ms",
		metric.WithDescription("Save operation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	saveErrors, err := meter.Int64Counter("nostrstore.save.errors",
		metric.WithDescription("Number of failed save operations"),
	)
	if err != nil {
		return nil, err
	}

	importsAccepted, err := meter.Int64Counter("nostrstore.import.accepted_events",
		metric.WithDescription("Number of events accepted by bulk imports"),
	)
	if err != nil {
		return nil, err
	}

	importLatency, err := meter.Float64Histogram("nostrstore.import.latency_ms",
		metric.WithDescription("Bulk import latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	reconcileLoaded, err := meter.Int64Counter("nostrstore.reconcile.loaded_events",
		metric.WithDescription("Number of events loaded from storage at startup"),
	)
	if err != nil {
		return nil, err
	}

	reconcilePurged, err := meter.Int64Counter("nostrstore.reconcile.purged_events",
		metric.WithDescription("Number of stale events purged during reconciliation"),
	)
	if err != nil {
		return nil, err
	}

	reconcileLatency, err := meter.Float64Histogram("nostrstore.reconcile.latency_ms",
		metric.WithDescription("Startup reconciliation latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	wipes, err := meter.Int64Counter("nostrstore.wipes",
		metric.WithDescription("Number of completed wipe operations"),
	)
	if err != nil {
		return nil, err
	}

	wipeLatency, err := meter.Float64Histogram("nostrstore.wipe.latency_ms",
		metric.WithDescription("Wipe latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		saves:            saves,
		saveLatency:      saveLatency,
		saveErrors:       saveErrors,
		importsAccepted:  importsAccepted,
		importLatency:    importLatency,
		reconcileLoaded:  reconcileLoaded,
		reconcilePurged:  reconcilePurged,
		reconcileLatency: reconcileLatency,
		wipes:            wipes,
		wipeLatency:      wipeLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordSave records a save decision.
func (m *otelMetrics) RecordSave(ctx context.Context, stored bool, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("stored", stored),
	}

	m.saves.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.saveLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))

	if err != nil {
		m.saveErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordBulkImport records a batch import.
func (m *otelMetrics) RecordBulkImport(ctx context.Context, accepted int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", err == nil),
	}
	m.importsAccepted.Add(ctx, int64(accepted), metric.WithAttributes(attrs...))
	m.importLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordReconcile records a startup reconciliation.
func (m *otelMetrics) RecordReconcile(ctx context.Context, loaded, discarded int, duration time.Duration) {
	m.reconcileLoaded.Add(ctx, int64(loaded))
	m.reconcilePurged.Add(ctx, int64(discarded))
	m.reconcileLatency.Record(ctx, float64(duration.Milliseconds()))
}

// RecordWipe records a completed wipe.
func (m *otelMetrics) RecordWipe(ctx context.Context, duration time.Duration) {
	m.wipes.Add(ctx, 1)
	m.wipeLatency.Record(ctx, float64(duration.Milliseconds()))
}
