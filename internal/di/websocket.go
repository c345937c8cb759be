package di

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/config"
	"github.com/lumenide/pluginhub/internal/security"
	"github.com/lumenide/pluginhub/internal/websocket"
)

// WebSocketModule provides the event feed hub and handler
var WebSocketModule = fx.Module("websocket",
	fx.Provide(
		websocket.NewHub,
		provideWebSocketHandler,
	),
	fx.Invoke(startHub),
)

func provideWebSocketHandler(
	cfg *config.Config,
	hub *websocket.Hub,
	jwtProvider *security.JWTProvider,
	logger *zap.Logger,
) *websocket.Handler {
	return websocket.NewHandler(&cfg.Events, cfg.Auth.Enabled, hub, jwtProvider, logger)
}

func startHub(eventsCfg *config.EventsConfig, hub *websocket.Hub, handler *websocket.Handler) {
	if !eventsCfg.Enabled {
		return
	}
	go hub.Run()
	handler.StartHeartbeat()
}
