package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMeterProvider_RequiresServiceName(t *testing.T) {
	provider, err := NewMeterProvider(context.Background(), Config{})

	require.Error(t, err)
	assert.Nil(t, provider)
}

func TestMeterProvider_Collect(t *testing.T) {
	ctx := context.Background()
	provider, err := NewMeterProvider(ctx, Config{ServiceName: "luascan", ServiceVersion: "test"})
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(ctx) }()

	meter := provider.Meter("telemetry-test")
	counter, err := meter.Int64Counter("b_counter")
	require.NoError(t, err)
	histogram, err := meter.Float64Histogram("a_histogram")
	require.NoError(t, err)

	counter.Add(ctx, 2, metric.WithAttributes(attribute.String("scope", "tree")))
	counter.Add(ctx, 3, metric.WithAttributes(attribute.String("scope", "global")))
	histogram.Record(ctx, 0.5)
	histogram.Record(ctx, 1.5)

	summaries, err := provider.Collect(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, MetricSummary{Name: "a_histogram", Kind: KindHistogram, Count: 2, Sum: 2.0}, summaries[0])
	assert.Equal(t, MetricSummary{Name: "b_counter", Kind: KindSum, Count: 2, Sum: 5}, summaries[1])
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		data metricdata.ResourceMetrics
		want []MetricSummary
	}{
		{
			name: "empty",
			data: metricdata.ResourceMetrics{},
			want: []MetricSummary{},
		},
		{
			name: "gauge and int histogram",
			data: metricdata.ResourceMetrics{
				ScopeMetrics: []metricdata.ScopeMetrics{{
					Metrics: []metricdata.Metrics{
						{
							Name: "source_bytes",
							Data: metricdata.Histogram[int64]{
								DataPoints: []metricdata.HistogramDataPoint[int64]{{Count: 3, Sum: 300}},
							},
						},
						{
							Name: "open_frames",
							Data: metricdata.Gauge[int64]{
								DataPoints: []metricdata.DataPoint[int64]{{Value: 4}},
							},
						},
					},
				}},
			},
			want: []MetricSummary{
				{Name: "open_frames", Kind: KindGauge, Count: 1, Sum: 4},
				{Name: "source_bytes", Kind: KindHistogram, Count: 3, Sum: 300},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.data))
		})
	}
}
