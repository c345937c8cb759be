package dao

import (
	"context"

	"github.com/lumenide/pluginhub/internal/domain/entity"
)

// PluginDAO extends BaseDAO with plugin-record-specific data access
// operations.
type PluginDAO interface {
	BaseDAO[entity.PluginRecord, uint]

	// FindByPluginID retrieves a record by its stable plugin id.
	// Returns nil, nil if the record is not found.
	FindByPluginID(ctx context.Context, pluginID string) (*entity.PluginRecord, error)

	// FindAllOrdered retrieves every record, ordered by install time.
	FindAllOrdered(ctx context.Context) ([]*entity.PluginRecord, error)

	// ExistsByPluginID checks if a record with the given plugin id exists.
	ExistsByPluginID(ctx context.Context, pluginID string) (bool, error)

	// Upsert inserts a record or replaces the one with the same plugin id.
	Upsert(ctx context.Context, record *entity.PluginRecord) error

	// UpdateEnablement moves a batch of plugin ids to one state.
	// Enabling also sets the enabled_at timestamp.
	UpdateEnablement(ctx context.Context, state entity.RecordState, pluginIDs []string) error

	// DeleteByPluginID removes a record for good; the plugin id becomes
	// installable again.
	DeleteByPluginID(ctx context.Context, pluginID string) error
}
