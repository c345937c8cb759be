// Package statestore bridges the in-session reconciliation model and the
// committed plugin records in the database.
package statestore

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/lumenide/pluginhub/internal/domain/dao"
	"github.com/lumenide/pluginhub/internal/domain/entity"
	"github.com/lumenide/pluginhub/internal/reconcile"
)

// Store implements reconcile.StateStore on top of the plugin DAO. It is the
// only writer of committed enablement state.
type Store struct {
	plugins dao.PluginDAO
	logger  *zap.Logger
}

// New creates a store.
func New(plugins dao.PluginDAO, logger *zap.Logger) *Store {
	return &Store{plugins: plugins, logger: logger}
}

// Load reads every committed record and converts it into a descriptor for
// seeding the session registry.
func (s *Store) Load(ctx context.Context) ([]*reconcile.Descriptor, error) {
	records, err := s.plugins.FindAllOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin records: %w", err)
	}

	descriptors := make([]*reconcile.Descriptor, 0, len(records))
	for _, record := range records {
		d, err := toDescriptor(record)
		if err != nil {
			s.logger.Error("skipping corrupt plugin record",
				zap.String("plugin", record.PluginID),
				zap.Error(err),
			)
			continue
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// ApplyEnablement commits one batch of plugins moving under one action.
func (s *Store) ApplyEnablement(ctx context.Context, action reconcile.EnableAction, ids []string) error {
	state := entity.RecordStateDisabled
	if action == reconcile.ActionEnable {
		state = entity.RecordStateEnabled
	}
	if err := s.plugins.UpdateEnablement(ctx, state, ids); err != nil {
		return fmt.Errorf("failed to commit enablement batch: %w", err)
	}
	s.logger.Info("enablement committed",
		zap.String("state", string(state)),
		zap.Strings("plugins", ids),
	)
	return nil
}

// SaveInstalled persists a newly installed or updated plugin record.
func (s *Store) SaveInstalled(ctx context.Context, d *reconcile.Descriptor) error {
	record, err := toRecord(d)
	if err != nil {
		return err
	}
	if err := s.plugins.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to save plugin record: %w", err)
	}
	return nil
}

// RemoveUninstalled deletes the committed record of an uninstalled plugin.
func (s *Store) RemoveUninstalled(ctx context.Context, id string) error {
	if err := s.plugins.DeleteByPluginID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete plugin record: %w", err)
	}
	return nil
}

func toRecord(d *reconcile.Descriptor) (*entity.PluginRecord, error) {
	deps, err := json.Marshal(d.Dependencies)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dependencies: %w", err)
	}

	state := entity.RecordStateDisabled
	if d.IsEnabled() {
		state = entity.RecordStateEnabled
	}
	return &entity.PluginRecord{
		PluginID:             d.ID,
		Name:                 d.Name,
		Version:              d.Version,
		Vendor:               d.Vendor,
		Description:          d.Description,
		Dependencies:         string(deps),
		Dynamic:              d.Dynamic,
		ImplementationDetail: d.ImplementationDetail,
		State:                state,
		Path:                 d.Path,
		Checksum:             d.Checksum,
		InstalledAt:          d.InstalledAt,
	}, nil
}

func toDescriptor(record *entity.PluginRecord) (*reconcile.Descriptor, error) {
	var deps []reconcile.Dependency
	if record.Dependencies != "" {
		if err := json.Unmarshal([]byte(record.Dependencies), &deps); err != nil {
			return nil, fmt.Errorf("failed to decode dependencies: %w", err)
		}
	}

	state := reconcile.StateDisabled
	if record.IsEnabled() {
		state = reconcile.StateEnabled
	}
	return &reconcile.Descriptor{
		ID:                   record.PluginID,
		Name:                 record.Name,
		Version:              record.Version,
		Vendor:               record.Vendor,
		Description:          record.Description,
		Dependencies:         deps,
		Dynamic:              record.Dynamic,
		ImplementationDetail: record.ImplementationDetail,
		State:                state,
		Loaded:               true,
		Path:                 record.Path,
		Checksum:             record.Checksum,
		InstalledAt:          record.InstalledAt,
	}, nil
}
