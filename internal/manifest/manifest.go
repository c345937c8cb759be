package manifest

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is the manifest file carried inside every plugin archive.
const FileName = "plugin.yaml"

// Dependency declares a required or optional plugin dependency.
type Dependency struct {
	ID       string `yaml:"id"`
	Optional bool   `yaml:"optional,omitempty"`
}

// Manifest describes a plugin archive: identity, versioning and the
// dependency set the reconciler validates against.
type Manifest struct {
	ID                   string       `yaml:"id"`
	Name                 string       `yaml:"name"`
	Version              string       `yaml:"version"`
	Vendor               string       `yaml:"vendor,omitempty"`
	Description          string       `yaml:"description,omitempty"`
	Dynamic              bool         `yaml:"dynamic,omitempty"` // supports load/unload without restart
	ImplementationDetail bool         `yaml:"implementationDetail,omitempty"`
	Dependencies         []Dependency `yaml:"dependencies,omitempty"`
}

// Parse decodes a manifest from r and validates it.
func Parse(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses a manifest file from disk.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Validate checks structural invariants of the manifest.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("manifest id is required")
	}
	if m.Name == "" {
		return fmt.Errorf("manifest name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("manifest version is required")
	}

	seen := make(map[string]struct{}, len(m.Dependencies))
	for _, dep := range m.Dependencies {
		if dep.ID == "" {
			return fmt.Errorf("dependency id is required")
		}
		if dep.ID == m.ID {
			return fmt.Errorf("plugin %s cannot depend on itself", m.ID)
		}
		if _, dup := seen[dep.ID]; dup {
			return fmt.Errorf("duplicate dependency %s", dep.ID)
		}
		seen[dep.ID] = struct{}{}
	}
	return nil
}

// RequiredDependencyIDs returns the ids of all non-optional dependencies.
func (m *Manifest) RequiredDependencyIDs() []string {
	var ids []string
	for _, dep := range m.Dependencies {
		if !dep.Optional {
			ids = append(ids, dep.ID)
		}
	}
	return ids
}
