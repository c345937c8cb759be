package gorm

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/lumenide/pluginhub/internal/domain/dao"
	"github.com/lumenide/pluginhub/internal/domain/entity"
)

// pluginDAO implements dao.PluginDAO using GORM for SQL databases.
type pluginDAO struct {
	*baseGormDAO[entity.PluginRecord]
}

// NewPluginDAO creates a new GORM-based PluginDAO.
func NewPluginDAO(db *gorm.DB) dao.PluginDAO {
	return &pluginDAO{
		baseGormDAO: newBaseGormDAO[entity.PluginRecord](db),
	}
}

// FindByPluginID retrieves a record by its stable plugin id.
func (d *pluginDAO) FindByPluginID(ctx context.Context, pluginID string) (*entity.PluginRecord, error) {
	var record entity.PluginRecord
	err := d.getDB().WithContext(ctx).Where(map[string]any{"plugin_id": pluginID}).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindAllOrdered retrieves every record, ordered by install time.
func (d *pluginDAO) FindAllOrdered(ctx context.Context) ([]*entity.PluginRecord, error) {
	var records []*entity.PluginRecord
	err := d.getDB().WithContext(ctx).
		Order("installed_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ExistsByPluginID checks if a record with the given plugin id exists.
func (d *pluginDAO) ExistsByPluginID(ctx context.Context, pluginID string) (bool, error) {
	return d.ExistsBy(ctx, "plugin_id", pluginID)
}

// Upsert inserts a record or replaces the one with the same plugin id,
// keeping the storage key stable across updates.
func (d *pluginDAO) Upsert(ctx context.Context, record *entity.PluginRecord) error {
	existing, err := d.FindByPluginID(ctx, record.PluginID)
	if err != nil {
		return err
	}
	if existing != nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		return d.getDB().WithContext(ctx).Save(record).Error
	}
	return d.getDB().WithContext(ctx).Create(record).Error
}

// UpdateEnablement moves a batch of plugin ids to one state.
// Enabling also sets the enabled_at timestamp.
func (d *pluginDAO) UpdateEnablement(ctx context.Context, state entity.RecordState, pluginIDs []string) error {
	if len(pluginIDs) == 0 {
		return nil
	}

	updates := map[string]any{
		"state":      state,
		"updated_at": time.Now(),
	}
	if state == entity.RecordStateEnabled {
		now := time.Now()
		updates["enabled_at"] = &now
	}

	return d.getDB().WithContext(ctx).
		Model(&entity.PluginRecord{}).
		Where("plugin_id IN ?", pluginIDs).
		Updates(updates).Error
}

// DeleteByPluginID removes a record for good.
func (d *pluginDAO) DeleteByPluginID(ctx context.Context, pluginID string) error {
	return d.getDB().WithContext(ctx).
		Where(map[string]any{"plugin_id": pluginID}).
		Delete(&entity.PluginRecord{}).Error
}
