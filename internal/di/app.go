package di

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/config"
)

// AppModule aggregates all application modules
var AppModule = fx.Options(
	ConfigModule,
	LoggerModule,
	DatabaseModule,
	DAOModule,
	StateStoreModule,
	SecurityModule,
	ObservabilityModule,
	WebSocketModule,
	SessionModule,
	ServiceModule,
	MiddlewareModule,
	ControllerModule,
	MaintenanceModule,
	HTTPServerModule,
)

// PrintBanner prints the application startup banner
func PrintBanner(cfg *config.Config, logger *zap.Logger) {
	logger.Info("Application Info",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)
	logger.Info("Plugin Config",
		zap.String("dir", cfg.Plugins.Dir),
		zap.String("staging_dir", cfg.Plugins.StagingDir),
		zap.Bool("watch_drops", cfg.Plugins.WatchDrops),
	)
}
