package di

import (
	"go.uber.org/fx"

	gormdao "github.com/lumenide/pluginhub/internal/domain/dao/gorm"
)

// DAOModule provides data access objects
var DAOModule = fx.Module("dao",
	fx.Provide(gormdao.NewPluginDAO),
)
