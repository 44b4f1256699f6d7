// Package hostapi is the contract between the chainload host and its plugins.
//
// A plugin unit is a struct type that embeds Base. The host never runs plugin code
// to discover units: it reads the doc-comment directives on the type declaration.
//
//	//chainload:plugin guid=com.example.greeter name="Greeter" version=1.2.0
//	//chainload:dependency com.example.core 1.0 hard
//	type Greeter struct {
//		hostapi.Base
//	}
//
//	func NewGreeter() hostapi.Plugin { return &Greeter{} }
package hostapi

const (
	// Version is the host API version implemented by this build.
	Version = "1.0.0"

	// ModulePath is the module a plugin's go.mod must require; its version is the
	// host version the plugin was built against.
	ModulePath = "github.com/platinummonkey/chainload"

	// ImportPath is the package plugin sources import to associate with the host.
	ImportPath = ModulePath + "/pkg/hostapi"

	// BaseTypeName is the embedded type that marks a struct as a plugin unit.
	BaseTypeName = "Base"

	// FactoryPrefix prefixes the exported constructor symbol of each unit.
	FactoryPrefix = "New"
)

// Info is the identity the host binds to an instantiated plugin.
type Info struct {
	GUID     string
	Name     string
	Version  string
	Location string
}

// Plugin is implemented by every plugin unit through its embedded Base.
type Plugin interface {
	Bind(info Info)
	Info() Info
}

// Factory constructs a plugin instance. Compiled plugins export one per unit,
// named FactoryPrefix + type name.
type Factory func() Plugin

// Base is embedded by plugin units.
type Base struct {
	info Info
}

// Bind records the host-assigned identity. Only the first call takes effect.
func (b *Base) Bind(info Info) {
	if b.info.GUID != "" {
		return
	}
	b.info = info
}

// Info returns the identity bound by the host.
func (b *Base) Info() Info {
	return b.info
}
