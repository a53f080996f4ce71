package cmd

import (
	"context"
	"fmt"
	"io"

	"luascan/internal/adapter/outbound/cache"
	"luascan/internal/adapter/outbound/filesystem"
	"luascan/internal/adapter/outbound/telemetry"
	"luascan/internal/application/common/slogger"
	"luascan/internal/application/service"
	"luascan/internal/config"
	"luascan/internal/version"
)

// newAnalysisService wires the analysis service for one command run. The
// returned finish func logs the metrics summary, if any, and releases the
// meter provider.
func newAnalysisService(
	ctx context.Context,
	appCfg *config.Config,
	stdin io.Reader,
	opts ...service.FunctionAnalysisOption,
) (*service.FunctionAnalysisService, func(), error) {
	loader := filesystem.NewFileSourceLoaderWithStdin(int64(appCfg.Scanner.MaxSourceBytes), stdin)
	finish := func() {}

	if appCfg.Scanner.CacheSize > 0 {
		opts = append(opts, service.WithTreeCache(cache.NewFunctionTreeCache(appCfg.Scanner.CacheSize)))
	}

	if appCfg.Metrics.Enabled {
		provider, err := telemetry.NewMeterProvider(ctx, telemetry.Config{
			ServiceName:    appCfg.Metrics.ServiceName,
			ServiceVersion: version.GetVersion().Version,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create meter provider: %w", err)
		}

		metrics, err := service.NewScanMetrics(provider)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create scan metrics: %w", err)
		}
		opts = append(opts, service.WithScanMetrics(metrics))
		finish = func() { logMetricsSummary(ctx, provider) }
	}

	svc := service.NewFunctionAnalysisService(service.FunctionAnalysisConfig{
		MaxSourceBytes: appCfg.Scanner.MaxSourceBytes,
		Concurrency:    appCfg.Scanner.Concurrency,
	}, loader, opts...)

	return svc, finish, nil
}

func logMetricsSummary(ctx context.Context, provider *telemetry.MeterProvider) {
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if err := provider.Shutdown(ctx); err != nil {
			slogger.Warn(ctx, "Failed to shut down meter provider", slogger.Field("error", err.Error()))
		}
	}()

	summaries, err := provider.Collect(ctx)
	if err != nil {
		slogger.Warn(ctx, "Failed to collect metrics", slogger.Field("error", err.Error()))
		return
	}
	for _, summary := range summaries {
		slogger.Info(ctx, "Metric summary", slogger.Fields{
			"metric": summary.Name,
			"kind":   summary.Kind,
			"count":  summary.Count,
			"sum":    summary.Sum,
		})
	}
}
