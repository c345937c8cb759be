package di

import (
	"path/filepath"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/config"
	"github.com/lumenide/pluginhub/internal/domain/service"
	"github.com/lumenide/pluginhub/internal/domain/service/impl"
	"github.com/lumenide/pluginhub/internal/reconcile"
)

// ServiceModule provides business service dependencies
var ServiceModule = fx.Module("service",
	fx.Provide(
		providePluginService,
		impl.NewAuthService,
	),
)

func providePluginService(
	session *reconcile.Session,
	cfg *config.PluginsConfig,
	logger *zap.Logger,
) (service.PluginService, error) {
	return impl.NewPluginService(session, filepath.Join(cfg.StagingDir, "uploads"), logger)
}
