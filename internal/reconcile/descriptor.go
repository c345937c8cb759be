package reconcile

import (
	"time"

	"github.com/lumenide/pluginhub/internal/manifest"
)

// EnableState represents the committed or in-session enablement of a plugin
type EnableState string

const (
	StateEnabled  EnableState = "ENABLED"
	StateDisabled EnableState = "DISABLED"
)

// IsEnabled reports whether the state is enabled.
func (s EnableState) IsEnabled() bool {
	return s == StateEnabled
}

// EnableAction is a requested enablement change
type EnableAction string

const (
	ActionEnable  EnableAction = "ENABLE"
	ActionDisable EnableAction = "DISABLE"
)

// TargetState returns the state the action moves a plugin to.
func (a EnableAction) TargetState() EnableState {
	if a == ActionEnable {
		return StateEnabled
	}
	return StateDisabled
}

// Dependency is one entry of a descriptor's dependency set.
type Dependency struct {
	ID       string `json:"id"`
	Optional bool   `json:"optional,omitempty"`
}

// Descriptor is the in-session metadata record for one plugin. Identity is
// the ID string: lookups never rely on pointer equality, and the registry
// holds at most one descriptor per id.
type Descriptor struct {
	ID                   string       `json:"id"`
	Name                 string       `json:"name"`
	Version              string       `json:"version"`
	Vendor               string       `json:"vendor,omitempty"`
	Description          string       `json:"description,omitempty"`
	Dependencies         []Dependency `json:"dependencies,omitempty"`
	Dynamic              bool         `json:"dynamic"` // supports load/unload without restart
	ImplementationDetail bool         `json:"implementation_detail,omitempty"`

	State   EnableState `json:"state"`
	Loaded  bool        `json:"loaded"`  // known to the host runtime this session
	Deleted bool        `json:"deleted"` // uninstall requested this session

	Path        string    `json:"path,omitempty"`
	Checksum    string    `json:"checksum,omitempty"`
	InstalledAt time.Time `json:"installed_at,omitempty"`
}

// FromManifest builds a descriptor from a staged archive's manifest.
func FromManifest(m *manifest.Manifest, path, checksum string) *Descriptor {
	deps := make([]Dependency, 0, len(m.Dependencies))
	for _, d := range m.Dependencies {
		deps = append(deps, Dependency{ID: d.ID, Optional: d.Optional})
	}
	return &Descriptor{
		ID:                   m.ID,
		Name:                 m.Name,
		Version:              m.Version,
		Vendor:               m.Vendor,
		Description:          m.Description,
		Dependencies:         deps,
		Dynamic:              m.Dynamic,
		ImplementationDetail: m.ImplementationDetail,
		State:                StateEnabled,
		Loaded:               true,
		Path:                 path,
		Checksum:             checksum,
		InstalledAt:          time.Now(),
	}
}

// Clone returns a deep copy of the descriptor.
func (d *Descriptor) Clone() *Descriptor {
	cp := *d
	cp.Dependencies = append([]Dependency(nil), d.Dependencies...)
	return &cp
}

// IsEnabled reports the in-session enablement of the plugin.
func (d *Descriptor) IsEnabled() bool {
	return d.State.IsEnabled()
}

// RequiredDependencyIDs returns the ids of all non-optional dependencies.
func (d *Descriptor) RequiredDependencyIDs() []string {
	var ids []string
	for _, dep := range d.Dependencies {
		if !dep.Optional {
			ids = append(ids, dep.ID)
		}
	}
	return ids
}
