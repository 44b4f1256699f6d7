package plugins

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the static declaration file of a binary-only module
const ManifestFileName = "plugin.yaml"

// ErrNoManifest is returned when a module directory has no manifest
var ErrNoManifest = errors.New("no plugin manifest")

// Manifest declares the plugin units of a module shipped without sources
type Manifest struct {
	Binary      string         `yaml:"binary"`                 // compiled module, relative to the manifest
	HostVersion string         `yaml:"host_version,omitempty"` // host version the module was built against
	Description string         `yaml:"description,omitempty"`
	Author      string         `yaml:"author,omitempty"`
	Units       []ManifestUnit `yaml:"units"`
}

// ManifestUnit declares one plugin type inside the module
type ManifestUnit struct {
	Type              string               `yaml:"type"`
	Abstract          bool                 `yaml:"abstract,omitempty"`
	Metadata          *ManifestMetadata    `yaml:"metadata,omitempty"`
	Processes         []string             `yaml:"processes,omitempty"`
	Dependencies      []ManifestDependency `yaml:"dependencies,omitempty"`
	Incompatibilities []string             `yaml:"incompatibilities,omitempty"`
}

// ManifestMetadata keeps absent and empty values apart so validation can tell them apart
type ManifestMetadata struct {
	GUID    string  `yaml:"guid"`
	Name    *string `yaml:"name"`
	Version *string `yaml:"version"`
}

// ManifestDependency declares a dependency. Dependencies are hard unless Soft is set.
type ManifestDependency struct {
	GUID       string `yaml:"guid"`
	MinVersion string `yaml:"min_version,omitempty"`
	Soft       bool   `yaml:"soft,omitempty"`
}

// LoadManifest loads and parses a plugin manifest from a file
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoManifest, path)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &manifest, nil
}

// LoadManifestFromDir loads a plugin manifest from a directory (looks for plugin.yaml)
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, ManifestFileName))
}

// SaveManifest saves a plugin manifest to a file
func SaveManifest(manifest *Manifest, path string) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// Declaration converts a manifest unit into the neutral form the validator consumes
func (u ManifestUnit) Declaration() *Declaration {
	decl := &Declaration{
		TypeName:          u.Type,
		Processes:         u.Processes,
		Incompatibilities: u.Incompatibilities,
	}

	if u.Metadata != nil {
		decl.HasMetadata = true
		decl.GUID = u.Metadata.GUID
		decl.Name = u.Metadata.Name
		decl.Version = u.Metadata.Version
	}

	for _, dep := range u.Dependencies {
		decl.Dependencies = append(decl.Dependencies, DeclaredDependency{
			GUID:       dep.GUID,
			MinVersion: dep.MinVersion,
			Soft:       dep.Soft,
		})
	}

	return decl
}
