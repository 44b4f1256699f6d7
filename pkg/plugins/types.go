package plugins

import (
	"fmt"
	"strings"

	"github.com/platinummonkey/chainload/pkg/hostapi"
)

// Metadata is the identity a plugin unit declares
type Metadata struct {
	GUID    string  `yaml:"guid" json:"guid"`
	Name    string  `yaml:"name" json:"name"`
	Version Version `yaml:"version" json:"version"`
}

// ProcessFilter restricts a plugin to a host process
type ProcessFilter struct {
	ProcessName string `json:"process_name"`
}

// DependencyFlags qualifies a dependency
type DependencyFlags int

const (
	// HardDependency must be present and version-satisfied for the dependent to load
	HardDependency DependencyFlags = 1 << iota
	// SoftDependency only affects load order
	SoftDependency
)

func (f DependencyFlags) String() string {
	if f&HardDependency != 0 {
		return "hard"
	}
	return "soft"
}

// DependencyRef declares a dependency on another plugin
type DependencyRef struct {
	GUID           string          `json:"guid"`
	MinimumVersion Version         `json:"minimum_version"`
	Flags          DependencyFlags `json:"flags"`
}

// IsHard reports whether the dependency gates loading
func (d DependencyRef) IsHard() bool {
	return d.Flags&HardDependency != 0
}

func (d DependencyRef) String() string {
	if d.MinimumVersion.IsZero() {
		return d.GUID
	}
	return fmt.Sprintf("%s (v%s or newer)", d.GUID, d.MinimumVersion)
}

// IncompatibilityRef names a plugin the declaring plugin cannot coexist with
type IncompatibilityRef struct {
	GUID string `json:"guid"`
}

// Candidate is a statically discovered plugin unit that may become a loaded plugin.
// Everything except Instance is fixed once extraction has produced it.
type Candidate struct {
	Metadata            `json:"metadata"`
	Processes           []ProcessFilter      `json:"processes,omitempty"`
	Dependencies        []DependencyRef      `json:"dependencies,omitempty"`
	Incompatibilities   []IncompatibilityRef `json:"incompatibilities,omitempty"`
	TypeName            string               `json:"type_name"`
	Location            string               `json:"location"`        // source or manifest directory
	ModuleLocation      string               `json:"module_location"` // compiled artifact, the load cache key
	DeclaredHostVersion Version              `json:"declared_host_version"`

	instance hostapi.Plugin
}

// Key is the case-folded GUID used for all identity comparisons
func (c *Candidate) Key() string {
	return GUIDKey(c.Metadata.GUID)
}

// Instance returns the loaded instance, or nil if the candidate never loaded
func (c *Candidate) Instance() hostapi.Plugin {
	return c.instance
}

// SetInstance records the loaded instance. It may be called once.
func (c *Candidate) SetInstance(instance hostapi.Plugin) error {
	if instance == nil {
		return fmt.Errorf("cannot set nil instance on [%s]", c)
	}
	if c.instance != nil {
		return fmt.Errorf("instance already set on [%s]", c)
	}
	c.instance = instance
	return nil
}

// Info is the identity bound to the loaded instance
func (c *Candidate) Info() hostapi.Info {
	return hostapi.Info{
		GUID:     c.Metadata.GUID,
		Name:     c.Metadata.Name,
		Version:  c.Metadata.Version.String(),
		Location: c.Location,
	}
}

func (c *Candidate) String() string {
	return fmt.Sprintf("%s %s", c.Metadata.Name, c.Metadata.Version)
}

// ProcessNames lists the declared process filters
func (c *Candidate) ProcessNames() []string {
	names := make([]string, 0, len(c.Processes))
	for _, p := range c.Processes {
		names = append(names, p.ProcessName)
	}
	return names
}

// DependencyGUIDs lists the declared dependency GUIDs, hard and soft
func (c *Candidate) DependencyGUIDs() []string {
	guids := make([]string, 0, len(c.Dependencies))
	for _, d := range c.Dependencies {
		guids = append(guids, d.GUID)
	}
	return guids
}

// GUIDKey case-folds a GUID for comparison
func GUIDKey(guid string) string {
	return strings.ToLower(guid)
}

// LoadedSet maps GUID to the instance of every plugin that reached the Loaded state
type LoadedSet map[string]hostapi.Plugin

// GUIDs returns the loaded GUIDs in no particular order
func (s LoadedSet) GUIDs() []string {
	guids := make([]string, 0, len(s))
	for guid := range s {
		guids = append(guids, guid)
	}
	return guids
}

// Has reports whether guid loaded, ignoring case
func (s LoadedSet) Has(guid string) bool {
	if _, ok := s[guid]; ok {
		return true
	}
	for loaded := range s {
		if strings.EqualFold(loaded, guid) {
			return true
		}
	}
	return false
}
