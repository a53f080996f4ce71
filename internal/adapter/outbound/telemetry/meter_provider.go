// Package telemetry wires the OpenTelemetry SDK for command-line runs.
package telemetry

import (
	"context"
	"errors"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Config holds the resource attributes of the provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
}

// MeterProvider is an SDK meter provider backed by a manual reader, so a
// short-lived command can collect its own metrics before exiting.
type MeterProvider struct {
	*sdkmetric.MeterProvider
	reader *sdkmetric.ManualReader
}

// NewMeterProvider creates a meter provider for cfg.
func NewMeterProvider(ctx context.Context, cfg Config) (*MeterProvider, error) {
	if cfg.ServiceName == "" {
		return nil, errors.New("service name cannot be empty")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	return &MeterProvider{MeterProvider: provider, reader: reader}, nil
}

// MetricSummary is the aggregate of one instrument across all attribute sets.
type MetricSummary struct {
	Name  string  `json:"name"  yaml:"name"`
	Kind  string  `json:"kind"  yaml:"kind"`
	Count uint64  `json:"count" yaml:"count"`
	Sum   float64 `json:"sum"   yaml:"sum"`
}

// Metric kinds.
const (
	KindSum       = "sum"
	KindHistogram = "histogram"
	KindGauge     = "gauge"
)

// Collect reads the current metrics and summarizes them, sorted by name.
func (p *MeterProvider) Collect(ctx context.Context) ([]MetricSummary, error) {
	var data metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &data); err != nil {
		return nil, err
	}
	return Summarize(data), nil
}

// Summarize flattens collected metrics into one summary per instrument.
func Summarize(data metricdata.ResourceMetrics) []MetricSummary {
	summaries := make([]MetricSummary, 0)
	for _, scope := range data.ScopeMetrics {
		for _, m := range scope.Metrics {
			if summary, ok := summarizeMetric(m); ok {
				summaries = append(summaries, summary)
			}
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})
	return summaries
}

func summarizeMetric(m metricdata.Metrics) (MetricSummary, bool) {
	summary := MetricSummary{Name: m.Name}

	switch data := m.Data.(type) {
	case metricdata.Sum[int64]:
		summary.Kind = KindSum
		for _, dp := range data.DataPoints {
			summary.Count++
			summary.Sum += float64(dp.Value)
		}
	case metricdata.Sum[float64]:
		summary.Kind = KindSum
		for _, dp := range data.DataPoints {
			summary.Count++
			summary.Sum += dp.Value
		}
	case metricdata.Histogram[int64]:
		summary.Kind = KindHistogram
		for _, dp := range data.DataPoints {
			summary.Count += dp.Count
			summary.Sum += float64(dp.Sum)
		}
	case metricdata.Histogram[float64]:
		summary.Kind = KindHistogram
		for _, dp := range data.DataPoints {
			summary.Count += dp.Count
			summary.Sum += dp.Sum
		}
	case metricdata.Gauge[int64]:
		summary.Kind = KindGauge
		for _, dp := range data.DataPoints {
			summary.Count++
			summary.Sum += float64(dp.Value)
		}
	case metricdata.Gauge[float64]:
		summary.Kind = KindGauge
		for _, dp := range data.DataPoints {
			summary.Count++
			summary.Sum += dp.Value
		}
	default:
		return MetricSummary{}, false
	}

	return summary, true
}
