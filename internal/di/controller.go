package di

import (
	"go.uber.org/fx"

	httpctrl "github.com/lumenide/pluginhub/internal/controller/http"
	"github.com/lumenide/pluginhub/internal/domain/service"
	"github.com/lumenide/pluginhub/internal/middleware"
)

// ControllerModule provides HTTP controller dependencies
var ControllerModule = fx.Module("controller",
	fx.Provide(
		httpctrl.NewAuthController,
		providePluginController,
		provideSessionController,
	),
)

func providePluginController(
	pluginService service.PluginService,
	authMiddleware *middleware.AuthMiddleware,
) *httpctrl.PluginController {
	return httpctrl.NewPluginController(pluginService, authMiddleware)
}

func provideSessionController(
	pluginService service.PluginService,
	authMiddleware *middleware.AuthMiddleware,
) *httpctrl.SessionController {
	return httpctrl.NewSessionController(pluginService, authMiddleware)
}
