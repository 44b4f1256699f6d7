// Package loader provides the two capabilities the chainloader consumes: loading
// a compiled module from disk and instantiating a plugin type from it.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	goplugin "plugin"

	"github.com/sirupsen/logrus"
)

// ErrSymbolNotFound is returned when a module does not export a requested symbol
var ErrSymbolNotFound = errors.New("symbol not found")

// Handle is a loaded module
type Handle interface {
	// Location is the path the module was loaded from
	Location() string
	// Lookup returns an exported symbol. Missing symbols wrap ErrSymbolNotFound.
	Lookup(name string) (interface{}, error)
}

// ModuleLoader loads a module. It is called at most once per location per run.
type ModuleLoader interface {
	Load(location string) (Handle, error)
}

// GoPluginLoader opens modules built with -buildmode=plugin
type GoPluginLoader struct {
	log *logrus.Logger
}

// NewGoPluginLoader creates a loader backed by the standard plugin package
func NewGoPluginLoader(log *logrus.Logger) *GoPluginLoader {
	if log == nil {
		log = logrus.New()
	}
	return &GoPluginLoader{log: log}
}

// Load opens the module at location
func (l *GoPluginLoader) Load(location string) (Handle, error) {
	l.log.Debugf("Opening module %s", location)

	p, err := goplugin.Open(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open module %s: %w", location, err)
	}
	return &goPluginHandle{plugin: p, location: location}, nil
}

type goPluginHandle struct {
	plugin   *goplugin.Plugin
	location string
}

func (h *goPluginHandle) Location() string {
	return h.location
}

func (h *goPluginHandle) Lookup(name string) (interface{}, error) {
	sym, err := h.plugin.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, name, h.location)
	}
	return sym, nil
}

type cachedHandle struct {
	handle Handle
	err    error
}

// HandleCache remembers the outcome of loading each module location for the
// duration of one run. Failed loads are remembered too, so a broken module file
// is attempted once no matter how many candidates it declares.
type HandleCache struct {
	loader  ModuleLoader
	handles map[string]cachedHandle
	loads   int
}

// NewHandleCache creates an empty cache in front of loader
func NewHandleCache(loader ModuleLoader) *HandleCache {
	return &HandleCache{
		loader:  loader,
		handles: make(map[string]cachedHandle),
	}
}

// Get returns the handle for location, loading it on first use
func (c *HandleCache) Get(location string) (Handle, error) {
	key := filepath.Clean(location)
	if cached, ok := c.handles[key]; ok {
		return cached.handle, cached.err
	}

	c.loads++
	handle, err := c.loader.Load(location)
	c.handles[key] = cachedHandle{handle: handle, err: err}
	return handle, err
}

// Loads returns the number of underlying loads performed
func (c *HandleCache) Loads() int {
	return c.loads
}
