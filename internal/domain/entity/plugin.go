package entity

import (
	"time"
)

// RecordState is the committed enablement of a plugin record.
type RecordState string

const (
	RecordStateEnabled  RecordState = "ENABLED"
	RecordStateDisabled RecordState = "DISABLED"
)

// PluginRecord is the committed row for one installed plugin. PluginID is
// the stable identity; the numeric ID is only the storage key. Records are
// hard-deleted on uninstall so the same plugin id can be installed again.
type PluginRecord struct {
	ID                   uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	PluginID             string      `gorm:"uniqueIndex;size:200;not null" json:"plugin_id"`
	Name                 string      `gorm:"size:200;not null" json:"name"`
	Version              string      `gorm:"size:50;not null" json:"version"`
	Vendor               string      `gorm:"size:200" json:"vendor,omitempty"`
	Description          string      `gorm:"size:1000" json:"description,omitempty"`
	Dependencies         string      `gorm:"type:text" json:"-"` // JSON-encoded dependency set
	Dynamic              bool        `gorm:"not null;default:false" json:"dynamic"`
	ImplementationDetail bool        `gorm:"not null;default:false" json:"implementation_detail"`
	State                RecordState `gorm:"size:20;not null;default:ENABLED" json:"state"`
	Path                 string      `gorm:"size:500" json:"path,omitempty"`
	Checksum             string      `gorm:"size:128" json:"checksum,omitempty"`
	InstalledAt          time.Time   `gorm:"column:installed_at" json:"installed_at"`
	EnabledAt            *time.Time  `gorm:"column:enabled_at" json:"enabled_at,omitempty"`
	CreatedAt            time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for PluginRecord
func (PluginRecord) TableName() string {
	return "plugin_records"
}

// IsEnabled checks if the record is enabled
func (p *PluginRecord) IsEnabled() bool {
	return p.State == RecordStateEnabled
}
