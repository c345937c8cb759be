package di

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/config"
	"github.com/lumenide/pluginhub/internal/observability"
)

// ObservabilityModule provides metrics dependencies
var ObservabilityModule = fx.Module("observability",
	fx.Provide(provideMetricsProvider),
)

func provideMetricsProvider(
	lc fx.Lifecycle,
	appCfg *config.AppConfig,
	metricsCfg *config.MetricsConfig,
	logger *zap.Logger,
) (*observability.MetricsProvider, error) {
	mp, err := observability.NewMetricsProvider(appCfg.Name, metricsCfg.Enabled, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return mp.Shutdown(ctx)
		},
	})
	return mp, nil
}
