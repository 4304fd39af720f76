package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest creates a test meter provider and returns a function to collect metrics.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	// Save the original provider
	originalProvider := otel.GetMeterProvider()

	// Set test provider
	otel.SetMeterProvider(provider)

	// Return cleanup function
	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}

	return reader, cleanup
}

// collectMetrics collects all metrics from the reader.
func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)
	return &rm
}

// findMetric finds a metric by name in the collected data.
func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	// NewMetricsRecorder uses the global provider
	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)
}

func TestRecordSave(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	// Create a fresh metrics instance using the test provider
	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSave(ctx, true, 5*time.Millisecond, nil)
	m.RecordSave(ctx, false, 2*time.Millisecond, nil)
	m.RecordSave(ctx, true, 9*time.Millisecond, errors.New("disk full"))

	rm := collectMetrics(t, reader)

	saves := findMetric(rm, "nostrstore.save.decisions")
	require.NotNil(t, saves)
	sum, ok := saves.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(3), total)

	saveErrors := findMetric(rm, "nostrstore.save.errors")
	require.NotNil(t, saveErrors)
	errSum, ok := saveErrors.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var errTotal int64
	for _, dp := range errSum.DataPoints {
		errTotal += dp.Value
	}
	assert.Equal(t, int64(1), errTotal)

	latency := findMetric(rm, "nostrstore.save.latency_ms")
	require.NotNil(t, latency)
}

func TestRecordBulkImport(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordBulkImport(ctx, 8, 20*time.Millisecond, nil)
	m.RecordBulkImport(ctx, 3, 4*time.Millisecond, nil)

	rm := collectMetrics(t, reader)

	accepted := findMetric(rm, "nostrstore.import.accepted_events")
	require.NotNil(t, accepted)
	sum, ok := accepted.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(11), total)
}

func TestRecordReconcile(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordReconcile(context.Background(), 100, 7, 30*time.Millisecond)

	rm := collectMetrics(t, reader)

	loaded := findMetric(rm, "nostrstore.reconcile.loaded_events")
	require.NotNil(t, loaded)
	loadedSum, ok := loaded.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, loadedSum.DataPoints, 1)
	assert.Equal(t, int64(100), loadedSum.DataPoints[0].Value)

	purged := findMetric(rm, "nostrstore.reconcile.purged_events")
	require.NotNil(t, purged)
	purgedSum, ok := purged.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, purgedSum.DataPoints, 1)
	assert.Equal(t, int64(7), purgedSum.DataPoints[0].Value)
}

func TestRecordWipe(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordWipe(context.Background(), 3*time.Millisecond)
	m.RecordWipe(context.Background(), 5*time.Millisecond)

	rm := collectMetrics(t, reader)

	wipes := findMetric(rm, "nostrstore.wipes")
	require.NotNil(t, wipes)
	sum, ok := wipes.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}

func TestOtelMetrics_AllMethods(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	// None of these should panic
	ctx := context.Background()
	m.RecordSave(ctx, true, time.Millisecond, nil)
	m.RecordBulkImport(ctx, 0, time.Millisecond, errors.New("rollback"))
	m.RecordReconcile(ctx, 0, 0, 0)
	m.RecordWipe(ctx, 0)
}
