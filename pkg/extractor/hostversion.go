package extractor

import (
	"debug/buildinfo"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"

	"github.com/platinummonkey/chainload/pkg/plugins"
)

// hostVersionFromGoMod reads the version of hostModule that dir's go.mod requires.
// The zero version means the module has no go.mod or no such requirement.
func hostVersionFromGoMod(dir, hostModule string) (plugins.Version, error) {
	gomodPath := filepath.Join(dir, "go.mod")
	data, err := os.ReadFile(gomodPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return plugins.Version{}, nil
		}
		return plugins.Version{}, fmt.Errorf("failed to read go.mod: %w", err)
	}

	f, err := modfile.ParseLax(gomodPath, data, nil)
	if err != nil {
		return plugins.Version{}, fmt.Errorf("failed to parse go.mod: %w", err)
	}

	for _, req := range f.Require {
		if req.Mod.Path == hostModule {
			return moduleVersion(req.Mod.Version)
		}
	}
	return plugins.Version{}, nil
}

// binaryHostReference inspects a compiled Go module. known is false when the file
// is not a readable Go build, in which case nothing can be concluded.
func binaryHostReference(binaryPath, hostModule string) (references bool, version plugins.Version, known bool) {
	info, err := buildinfo.ReadFile(binaryPath)
	if err != nil {
		return false, plugins.Version{}, false
	}

	if info.Main.Path == hostModule {
		v, _ := moduleVersion(info.Main.Version)
		return true, v, true
	}
	for _, dep := range info.Deps {
		if dep.Path != hostModule {
			continue
		}
		raw := dep.Version
		if dep.Replace != nil && dep.Replace.Version != "" {
			raw = dep.Replace.Version
		}
		v, _ := moduleVersion(raw)
		return true, v, true
	}
	return false, plugins.Version{}, true
}

// moduleVersion converts a Go module version ("v1.4.2", pseudo-versions,
// "(devel)") to a four-component version, dropping prerelease and build parts
func moduleVersion(raw string) (plugins.Version, error) {
	canonical := semver.Canonical(raw)
	if canonical == "" {
		return plugins.Version{}, fmt.Errorf("not a semantic version: %q", raw)
	}
	if i := strings.IndexAny(canonical, "-+"); i >= 0 {
		canonical = canonical[:i]
	}
	return plugins.ParseVersion(canonical)
}
