package di

import (
	"go.uber.org/fx"

	"github.com/lumenide/pluginhub/internal/statestore"
)

// StateStoreModule provides the persistence layer the session commits through
var StateStoreModule = fx.Module("statestore",
	fx.Provide(statestore.New),
)
