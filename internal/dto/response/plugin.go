package response

import (
	"time"

	"github.com/lumenide/pluginhub/internal/reconcile"
)

// DependencyResponse is one dependency entry of a plugin.
type DependencyResponse struct {
	ID       string `json:"id"`
	Optional bool   `json:"optional,omitempty"`
}

// PluginResponse is the list representation of a plugin.
type PluginResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Version       string    `json:"version"`
	Vendor        string    `json:"vendor,omitempty"`
	State         string    `json:"state"`
	Dynamic       bool      `json:"dynamic"`
	Deleted       bool      `json:"deleted,omitempty"`
	PendingAction string    `json:"pending_action,omitempty"`
	InstalledAt   time.Time `json:"installed_at,omitempty"`
}

// PluginDetailResponse is the full representation of a plugin.
type PluginDetailResponse struct {
	PluginResponse
	Description  string               `json:"description,omitempty"`
	Dependencies []DependencyResponse `json:"dependencies,omitempty"`
	Path         string               `json:"path,omitempty"`
	Checksum     string               `json:"checksum,omitempty"`
}

// InstallOperationResponse describes one in-flight install operation.
type InstallOperationResponse struct {
	OpID      string    `json:"op_id"`
	PluginID  string    `json:"plugin_id"`
	Phase     string    `json:"phase"`
	Update    bool      `json:"update"`
	StartedAt time.Time `json:"started_at"`
}

// UninstallResponse reports the outcome of an uninstall request.
type UninstallResponse struct {
	PluginID        string `json:"plugin_id"`
	RestartRequired bool   `json:"restart_required"`
}

// SessionStatusResponse summarizes the pending state of the session.
type SessionStatusResponse struct {
	Modified       bool                       `json:"modified"`
	NeedsRestart   bool                       `json:"needs_restart"`
	PendingChanges map[string]string          `json:"pending_changes,omitempty"`
	Installing     []InstallOperationResponse `json:"installing,omitempty"`
}

// ApplyResponse reports the outcome of committing the session.
type ApplyResponse struct {
	AppliedWithoutRestart bool `json:"applied_without_restart"`
	NeedsRestart          bool `json:"needs_restart"`
}

// NewPluginResponse maps a descriptor and its pending action.
func NewPluginResponse(d *reconcile.Descriptor, pendingAction string) PluginResponse {
	return PluginResponse{
		ID:            d.ID,
		Name:          d.Name,
		Version:       d.Version,
		Vendor:        d.Vendor,
		State:         string(d.State),
		Dynamic:       d.Dynamic,
		Deleted:       d.Deleted,
		PendingAction: pendingAction,
		InstalledAt:   d.InstalledAt,
	}
}

// NewPluginDetailResponse maps a descriptor with its full dependency set.
func NewPluginDetailResponse(d *reconcile.Descriptor, pendingAction string) *PluginDetailResponse {
	deps := make([]DependencyResponse, 0, len(d.Dependencies))
	for _, dep := range d.Dependencies {
		deps = append(deps, DependencyResponse{ID: dep.ID, Optional: dep.Optional})
	}
	return &PluginDetailResponse{
		PluginResponse: NewPluginResponse(d, pendingAction),
		Description:    d.Description,
		Dependencies:   deps,
		Path:           d.Path,
		Checksum:       d.Checksum,
	}
}

// NewInstallOperationResponse maps an in-flight install operation.
func NewInstallOperationResponse(info reconcile.InstallInfo) InstallOperationResponse {
	return InstallOperationResponse{
		OpID:      info.OpID,
		PluginID:  info.PluginID,
		Phase:     string(info.Phase),
		Update:    info.Update,
		StartedAt: info.StartedAt,
	}
}
