package di

import (
	"go.uber.org/fx"

	"github.com/lumenide/pluginhub/internal/config"
	"github.com/lumenide/pluginhub/internal/middleware"
	"github.com/lumenide/pluginhub/internal/security"
)

// MiddlewareModule provides middleware dependencies
var MiddlewareModule = fx.Module("middleware",
	fx.Provide(provideAuthMiddleware),
)

func provideAuthMiddleware(cfg *config.AuthConfig, jwtProvider *security.JWTProvider) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(jwtProvider, cfg.Enabled)
}
