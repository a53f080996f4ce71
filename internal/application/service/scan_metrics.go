package service

import (
	"context"
	"errors"
	"time"

	"luascan/internal/application/dto"
	"luascan/internal/domain/errors/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	ScansCounterName                 = "luascan_scans_total"
	FunctionsCounterName             = "luascan_functions_total"
	UnterminatedFunctionsCounterName = "luascan_unterminated_functions_total"
	ScanDurationHistogramName        = "luascan_scan_duration_seconds"
	SourceBytesHistogramName         = "luascan_source_bytes"
	SaveRetriesCounterName           = "luascan_save_retries_total"
	scanMetricsScope                 = "luascan/application/service"
)

// Attribute keys and values.
const (
	AttrScanResult = "result"
	AttrScope      = "scope"
	AttrOperation  = "operation"

	ScopeTree   = "tree"
	ScopeGlobal = "global"

	ResultSuccess      = "success"
	ResultInvalidInput = "invalid_input"
	ResultTooLarge     = "too_large"
	ResultError        = "error"
)

// getScanLatencyBuckets returns bucket boundaries for scan durations (50us to 5s).
func getScanLatencyBuckets() []float64 {
	return []float64{
		0.00005, // 50us
		0.0001,  // 100us
		0.0005,  // 500us
		0.001,   // 1ms
		0.005,   // 5ms
		0.01,    // 10ms
		0.05,    // 50ms
		0.1,     // 100ms
		0.5,     // 500ms
		1.0,     // 1s
		5.0,     // 5s
	}
}

// getSourceSizeBuckets returns bucket boundaries for source sizes (1KiB to 10MiB).
func getSourceSizeBuckets() []float64 {
	return []float64{1 << 10, 4 << 10, 16 << 10, 64 << 10, 256 << 10, 1 << 20, 4 << 20, 10 << 20}
}

// ScanMetrics records OpenTelemetry metrics for function scans.
type ScanMetrics struct {
	scans        metric.Int64Counter
	functions    metric.Int64Counter
	unterminated metric.Int64Counter
	duration     metric.Float64Histogram
	sourceBytes  metric.Int64Histogram
	saveRetries  metric.Int64Counter

	treeAttr   metric.AddOption
	globalAttr metric.AddOption
}

// NewScanMetrics creates the scan instruments on provider, or on the global
// meter provider when provider is nil.
func NewScanMetrics(provider metric.MeterProvider) (*ScanMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(scanMetricsScope)

	scans, err := meter.Int64Counter(ScansCounterName,
		metric.WithDescription("Number of Lua sources scanned"),
		metric.WithUnit("{scan}"))
	if err != nil {
		return nil, err
	}

	functions, err := meter.Int64Counter(FunctionsCounterName,
		metric.WithDescription("Number of functions found, by scope"),
		metric.WithUnit("{function}"))
	if err != nil {
		return nil, err
	}

	unterminated, err := meter.Int64Counter(UnterminatedFunctionsCounterName,
		metric.WithDescription("Number of functions without a matching end"),
		metric.WithUnit("{function}"))
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(ScanDurationHistogramName,
		metric.WithDescription("Duration of a single source scan in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(getScanLatencyBuckets()...))
	if err != nil {
		return nil, err
	}

	sourceBytes, err := meter.Int64Histogram(SourceBytesHistogramName,
		metric.WithDescription("Size of scanned sources"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(getSourceSizeBuckets()...))
	if err != nil {
		return nil, err
	}

	saveRetries, err := meter.Int64Counter(SaveRetriesCounterName,
		metric.WithDescription("Number of repeated index save attempts"),
		metric.WithUnit("{retry}"))
	if err != nil {
		return nil, err
	}

	return &ScanMetrics{
		scans:        scans,
		functions:    functions,
		unterminated: unterminated,
		duration:     duration,
		sourceBytes:  sourceBytes,
		saveRetries:  saveRetries,
		treeAttr:     metric.WithAttributes(attribute.String(AttrScope, ScopeTree)),
		globalAttr:   metric.WithAttributes(attribute.String(AttrScope, ScopeGlobal)),
	}, nil
}

// RecordScan records one scan. doc may be nil when the scan failed.
func (m *ScanMetrics) RecordScan(ctx context.Context, result string, duration time.Duration, doc *dto.LuaDocument) {
	if m == nil {
		return
	}

	resultAttr := attribute.String(AttrScanResult, result)
	m.scans.Add(ctx, 1, metric.WithAttributes(resultAttr))
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(resultAttr))

	if doc == nil {
		return
	}
	m.sourceBytes.Record(ctx, int64(doc.SizeBytes))
	m.functions.Add(ctx, int64(doc.Stats.TotalFunctions), m.treeAttr)
	m.functions.Add(ctx, int64(doc.Stats.GlobalFunctions), m.globalAttr)
	if doc.Stats.UnterminatedFunctions > 0 {
		m.unterminated.Add(ctx, int64(doc.Stats.UnterminatedFunctions))
	}
}

// RecordSaveRetry counts one repeated attempt of operation.
func (m *ScanMetrics) RecordSaveRetry(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.saveRetries.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOperation, operation)))
}

// scanResult classifies a scan error for the result attribute.
func scanResult(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, domain.ErrInvalidInput):
		return ResultInvalidInput
	case errors.Is(err, domain.ErrSourceTooLarge):
		return ResultTooLarge
	default:
		return ResultError
	}
}
