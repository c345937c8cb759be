package di

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/config"
	"github.com/lumenide/pluginhub/internal/installer"
	"github.com/lumenide/pluginhub/internal/observability"
	"github.com/lumenide/pluginhub/internal/reconcile"
	"github.com/lumenide/pluginhub/internal/statestore"
	"github.com/lumenide/pluginhub/internal/websocket"
)

// SessionModule provides the plugin session, its install driver and the
// startup recovery that replays persisted state into it.
var SessionModule = fx.Module("session",
	fx.Provide(
		provideInstallDriver,
		provideSession,
	),
	fx.Invoke(startSession),
)

func provideInstallDriver(cfg *config.PluginsConfig, logger *zap.Logger) (*installer.Driver, error) {
	return installer.New(cfg.Dir, cfg.StagingDir, logger)
}

func provideSession(
	store *statestore.Store,
	driver *installer.Driver,
	cfg *config.PluginsConfig,
	metrics *observability.MetricsProvider,
	hub *websocket.Hub,
	logger *zap.Logger,
) *reconcile.Session {
	session := reconcile.NewSession(reconcile.Options{
		Store:          store,
		Driver:         driver,
		Logger:         logger,
		Recorder:       metrics,
		IsHostModule:   cfg.IsHostModule,
		InstallWorkers: cfg.InstallWorkers,
	})
	session.AddListener(websocket.NewFeed(hub))
	return session
}

// startSession runs the session loop for the process lifetime and seeds it
// from the persisted records, installing any archives that were deferred to
// this restart first.
func startSession(
	lc fx.Lifecycle,
	session *reconcile.Session,
	store *statestore.Store,
	driver *installer.Driver,
	logger *zap.Logger,
) {
	loopCtx, stopLoop := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go session.Run(loopCtx)

			descriptors, err := store.Load(ctx)
			if err != nil {
				return fmt.Errorf("failed to load plugin records: %w", err)
			}

			recovered, err := driver.ProcessPending(ctx)
			if err != nil {
				return fmt.Errorf("failed to install pending archives: %w", err)
			}
			for _, d := range recovered {
				if err := store.SaveInstalled(ctx, d); err != nil {
					return fmt.Errorf("failed to persist recovered plugin %s: %w", d.ID, err)
				}
				descriptors = mergeDescriptor(descriptors, d)
			}

			if err := session.Seed(descriptors); err != nil {
				return err
			}

			logger.Info("plugin session started",
				zap.Int("plugins", len(descriptors)),
				zap.Int("recovered", len(recovered)),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopLoop()
			return nil
		},
	})
}

// mergeDescriptor replaces a same-id descriptor or appends, preserving the
// persisted enablement state when the record already existed.
func mergeDescriptor(descriptors []*reconcile.Descriptor, d *reconcile.Descriptor) []*reconcile.Descriptor {
	for i, existing := range descriptors {
		if existing.ID == d.ID {
			d.State = existing.State
			descriptors[i] = d
			return descriptors
		}
	}
	return append(descriptors, d)
}
