package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workshop/backend/internal/infrastructure/telemetry"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func newReader(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider, reader
}

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.Equal(t, 60*time.Second, mp.GetConfig().ExportInterval)
	assert.Equal(t, telemetry.TracerName, mp.GetConfig().ServiceName)
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestNewMeterProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		ExportInterval:    time.Second,
		ServiceName:       "test-service",
		Insecure:          true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, mp.IsEnabled())

	counter, err := telemetry.NewCounter(mp.Meter("test"), "test_total", "Test counter", "{call}")
	require.NoError(t, err)
	counter.Inc(ctx)

	assert.NoError(t, mp.Shutdown(ctx))
}

func TestCounter(t *testing.T) {
	provider, reader := newReader(t)
	counter, err := telemetry.NewCounter(provider.Meter("test"), "payments_total", "Payments", "{payment}")
	require.NoError(t, err)

	ctx := context.Background()
	counter.Inc(ctx, telemetry.AttrPaymentMethod.String("cash"))
	counter.Add(ctx, 2, telemetry.AttrPaymentMethod.String("cash"))
	counter.Inc(ctx, telemetry.AttrPaymentMethod.String("card"))

	m, ok := collectMetric(t, reader, "payments_total")
	require.True(t, ok)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 2)

	byMethod := map[string]int64{}
	for _, dp := range sum.DataPoints {
		method, _ := dp.Attributes.Value(telemetry.AttrPaymentMethod)
		byMethod[method.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"cash": 3, "card": 1}, byMethod)
}

func TestHistogram(t *testing.T) {
	tests := []struct {
		name       string
		boundaries []float64
		wantBounds []float64
	}{
		{"custom boundaries", telemetry.DBDurationBuckets, telemetry.DBDurationBuckets},
		{"http boundaries", telemetry.HTTPDurationBuckets, telemetry.HTTPDurationBuckets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, reader := newReader(t)
			h, err := telemetry.NewHistogram(provider.Meter("test"), telemetry.HistogramOpts{
				Name:        "latency_seconds",
				Description: "Latency",
				Unit:        "s",
				Boundaries:  tt.boundaries,
			})
			require.NoError(t, err)

			h.Record(context.Background(), 0.02)
			h.RecordDuration(context.Background(), 300*time.Millisecond)

			m, ok := collectMetric(t, reader, "latency_seconds")
			require.True(t, ok)
			hist, ok := m.Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			require.Len(t, hist.DataPoints, 1)
			assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
			assert.Equal(t, tt.wantBounds, hist.DataPoints[0].Bounds)
			assert.InDelta(t, 0.32, hist.DataPoints[0].Sum, 1e-9)
		})
	}
}

func TestGauge(t *testing.T) {
	provider, reader := newReader(t)
	g, err := telemetry.NewGauge(provider.Meter("test"), "orders_open", "Open orders", "{order}")
	require.NoError(t, err)

	g.Record(context.Background(), 7)
	g.Record(context.Background(), 4)

	m, ok := collectMetric(t, reader, "orders_open")
	require.True(t, ok)
	gauge, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(4), gauge.DataPoints[0].Value)
}

func TestAttributeKeys(t *testing.T) {
	assert.Equal(t, "operator_role", string(telemetry.AttrOperatorRole))
	assert.Equal(t, "http.route", string(telemetry.AttrHTTPRoute))
	assert.Equal(t, "db.pool.state", string(telemetry.AttrDBState))
	assert.Equal(t, "payment_method", string(telemetry.AttrPaymentMethod))
}
