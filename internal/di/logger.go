package di

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/config"
	"github.com/lumenide/pluginhub/pkg/logger"
)

// LoggerModule provides logging dependencies
var LoggerModule = fx.Module("logger",
	fx.Provide(provideLogger),
)

func provideLogger(cfg *config.AppConfig) (*zap.Logger, error) {
	level := "info"
	encoding := "json"
	if cfg.Debug {
		level = "debug"
		encoding = "console"
	}
	return logger.New(logger.Config{
		Level:       level,
		Development: cfg.Debug,
		Encoding:    encoding,
	})
}
