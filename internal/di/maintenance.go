package di

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/config"
	"github.com/lumenide/pluginhub/internal/housekeeping"
	"github.com/lumenide/pluginhub/internal/installer"
	"github.com/lumenide/pluginhub/internal/reconcile"
	"github.com/lumenide/pluginhub/internal/watcher"
	"github.com/lumenide/pluginhub/internal/websocket"
)

// MaintenanceModule provides the drop-directory watcher and the scheduled
// housekeeping jobs.
var MaintenanceModule = fx.Module("maintenance",
	fx.Provide(provideScheduler),
	fx.Invoke(
		startHousekeeping,
		startDropWatcher,
	),
)

func provideScheduler(
	cfg *config.HousekeepingConfig,
	driver *installer.Driver,
	session *reconcile.Session,
	hub *websocket.Hub,
	logger *zap.Logger,
) (*housekeeping.Scheduler, error) {
	// late-joining event clients still learn a restart is pending
	restartPing := func() {
		if session.NeedsRestart() {
			hub.Broadcast(websocket.NewEventMessage(
				string(reconcile.EventRestartRequired), "", nil))
		}
	}
	return housekeeping.NewScheduler(cfg, driver, restartPing, logger)
}

func startHousekeeping(lc fx.Lifecycle, scheduler *housekeeping.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			scheduler.Stop()
			return nil
		},
	})
}

func startDropWatcher(
	lc fx.Lifecycle,
	cfg *config.PluginsConfig,
	driver *installer.Driver,
	session *reconcile.Session,
	logger *zap.Logger,
) {
	if !cfg.WatchDrops {
		return
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			w, err := watcher.New(cfg.DropDir, driver, session, logger)
			if err != nil {
				stopWatch()
				return err
			}
			go w.Run(watchCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopWatch()
			return nil
		},
	})
}
