package di

import (
	"go.uber.org/fx"

	"github.com/lumenide/pluginhub/internal/config"
)

// ConfigModule provides configuration dependencies
var ConfigModule = fx.Module("config",
	fx.Provide(
		config.Load,
		provideAppConfig,
		provideServerConfig,
		provideStoreConfig,
		providePluginsConfig,
		provideAuthConfig,
		provideEventsConfig,
		provideMetricsConfig,
		provideHousekeepingConfig,
	),
)

func provideAppConfig(cfg *config.Config) *config.AppConfig {
	return &cfg.App
}

func provideServerConfig(cfg *config.Config) *config.ServerConfig {
	return &cfg.Server
}

func provideStoreConfig(cfg *config.Config) *config.StoreConfig {
	return &cfg.Store
}

func providePluginsConfig(cfg *config.Config) *config.PluginsConfig {
	return &cfg.Plugins
}

func provideAuthConfig(cfg *config.Config) *config.AuthConfig {
	return &cfg.Auth
}

func provideEventsConfig(cfg *config.Config) *config.EventsConfig {
	return &cfg.Events
}

func provideMetricsConfig(cfg *config.Config) *config.MetricsConfig {
	return &cfg.Metrics
}

func provideHousekeepingConfig(cfg *config.Config) *config.HousekeepingConfig {
	return &cfg.Housekeeping
}
