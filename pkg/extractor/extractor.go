package extractor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/chainload/pkg/hostapi"
	"github.com/platinummonkey/chainload/pkg/plugins"
)

const (
	// DefaultCacheSize bounds the number of modules whose metadata is remembered
	DefaultCacheSize = 256
	// DefaultCacheTTL expires remembered metadata
	DefaultCacheTTL = 30 * time.Minute

	// ModuleExtension is the file extension of a compiled module
	ModuleExtension = ".so"
)

// Module is a candidate module: a directory holding either plugin sources or a
// plugin.yaml manifest next to a compiled module
type Module struct {
	Location string
}

// Options configures an Extractor
type Options struct {
	HostImportPath string // defaults to hostapi.ImportPath
	HostModulePath string // defaults to hostapi.ModulePath
	CacheSize      int    // 0 uses DefaultCacheSize, negative disables caching
	CacheTTL       time.Duration
	Logger         *logrus.Logger
}

// Extractor reads plugin metadata from modules without executing them
type Extractor struct {
	hostImport string
	hostModule string
	cache      *metadataCache
	log        *logrus.Logger
}

// NewExtractor creates a new metadata extractor
func NewExtractor(opts Options) *Extractor {
	if opts.HostImportPath == "" {
		opts.HostImportPath = hostapi.ImportPath
	}
	if opts.HostModulePath == "" {
		opts.HostModulePath = hostapi.ModulePath
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	return &Extractor{
		hostImport: opts.HostImportPath,
		hostModule: opts.HostModulePath,
		cache:      newMetadataCache(opts.CacheSize, opts.CacheTTL),
		log:        opts.Logger,
	}
}

// Discover lists the module directories directly under each plugin directory.
// Directories are returned in lexicographic order per plugin directory; missing
// plugin directories are skipped.
func Discover(dirs []string, log *logrus.Logger) ([]Module, error) {
	if log == nil {
		log = logrus.New()
	}

	var modules []Module
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Debugf("Plugin directory does not exist: %s", dir)
				continue
			}
			return nil, fmt.Errorf("failed to read plugin directory %s: %w", dir, err)
		}

		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() {
				names = append(names, entry.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			modules = append(modules, Module{Location: filepath.Join(dir, name)})
		}
	}

	return modules, nil
}

// Extract inspects every module in order and returns the candidates found, in
// discovery order. Rejections are appended to diags; none of them stops extraction.
func (e *Extractor) Extract(modules []Module, diags *plugins.Diagnostics) []*plugins.Candidate {
	var candidates []*plugins.Candidate

	for _, module := range modules {
		found, moduleDiags := e.extractModule(module)
		for _, d := range moduleDiags {
			diags.Add(d)
		}
		candidates = append(candidates, found...)
	}

	return candidates
}

// CachedModules reports how many modules have remembered metadata
func (e *Extractor) CachedModules() int {
	return e.cache.len()
}

func (e *Extractor) extractModule(module Module) ([]*plugins.Candidate, []plugins.Diagnostic) {
	dir := module.Location

	manifest, err := plugins.LoadManifestFromDir(dir)
	if err != nil && !errors.Is(err, plugins.ErrNoManifest) {
		return nil, []plugins.Diagnostic{moduleRejected(dir, err)}
	}

	binary := ""
	if manifest != nil && manifest.Binary != "" {
		binary = resolveBinary(dir, manifest.Binary)
	}

	fp, err := moduleFingerprint(dir, binary)
	if err != nil {
		return nil, []plugins.Diagnostic{moduleRejected(dir, err)}
	}
	if entry, ok := e.cache.get(dir, fp); ok {
		e.log.Debugf("Using cached metadata for module %s", dir)
		return cloneCandidates(entry.candidates), entry.diagnostics
	}

	e.log.Debugf("Inspecting module %s", dir)

	var (
		found []*plugins.Candidate
		diags []plugins.Diagnostic
	)
	if manifest != nil {
		found, diags = e.extractManifestModule(dir, manifest, binary)
	} else {
		found, diags = e.extractSourceModule(dir)
	}

	e.cache.put(dir, &cacheEntry{fp: fp, candidates: found, diagnostics: diags})
	return cloneCandidates(found), diags
}

func (e *Extractor) extractSourceModule(dir string) ([]*plugins.Candidate, []plugins.Diagnostic) {
	files, err := goSourceFiles(dir)
	if err != nil {
		return nil, []plugins.Diagnostic{moduleRejected(dir, err)}
	}
	if len(files) == 0 {
		return nil, []plugins.Diagnostic{moduleSkipped(dir, "it contains no plugin sources or manifest")}
	}

	mod, err := parseSourceModule(files, e.hostImport)
	if err != nil {
		return nil, []plugins.Diagnostic{moduleRejected(dir, err)}
	}
	if !mod.referencesHost {
		return nil, []plugins.Diagnostic{moduleSkipped(dir, "it does not reference "+e.hostImport)}
	}

	var diags []plugins.Diagnostic
	hostVersion, err := hostVersionFromGoMod(dir, e.hostModule)
	if err != nil {
		diags = append(diags, plugins.Diagnostic{
			Kind:     plugins.KindInvalidMetadata,
			Severity: plugins.SeverityWarning,
			Message:  fmt.Sprintf("Could not read the host version of module [%s]: %v", dir, err),
		})
	}

	binary := filepath.Join(dir, filepath.Base(dir)+ModuleExtension)

	var found []*plugins.Candidate
	for _, unit := range mod.units {
		if unit.directiveErr != nil {
			diags = append(diags, typeRejected(unit.qualifiedName, unit.directiveErr))
			continue
		}
		c, diag := validate(unit.decl)
		if diag != nil {
			diags = append(diags, *diag)
			continue
		}
		c.TypeName = unit.typeName
		c.Location = dir
		c.ModuleLocation = binary
		c.DeclaredHostVersion = hostVersion
		found = append(found, c)
	}

	return found, diags
}

func (e *Extractor) extractManifestModule(dir string, manifest *plugins.Manifest, binary string) ([]*plugins.Candidate, []plugins.Diagnostic) {
	if binary == "" {
		return nil, []plugins.Diagnostic{moduleRejected(dir, errors.New("manifest declares no binary"))}
	}

	references, binaryVersion, known := binaryHostReference(binary, e.hostModule)
	if known && !references {
		return nil, []plugins.Diagnostic{moduleSkipped(dir, "its binary does not reference "+e.hostModule)}
	}

	var diags []plugins.Diagnostic
	hostVersion := binaryVersion
	if manifest.HostVersion != "" {
		v, err := plugins.ParseVersion(manifest.HostVersion)
		if err != nil {
			diags = append(diags, plugins.Diagnostic{
				Kind:     plugins.KindInvalidMetadata,
				Severity: plugins.SeverityWarning,
				Message:  fmt.Sprintf("Ignoring host_version of module [%s]: %v", dir, err),
			})
		} else {
			hostVersion = v
		}
	}

	var found []*plugins.Candidate
	for _, unit := range manifest.Units {
		if unit.Abstract {
			continue
		}
		if unit.Type == "" {
			// Without a type there is nothing to instantiate; a bare entry declares nothing
			if unit.Metadata != nil {
				diags = append(diags, untypedUnit(dir, unit.Metadata.GUID))
			}
			continue
		}
		c, diag := validate(unit.Declaration())
		if diag != nil {
			diags = append(diags, *diag)
			continue
		}
		c.Location = dir
		c.ModuleLocation = binary
		c.DeclaredHostVersion = hostVersion
		found = append(found, c)
	}

	return found, diags
}

func validate(decl *plugins.Declaration) (*plugins.Candidate, *plugins.Diagnostic) {
	c, err := plugins.ValidateDeclaration(decl)
	if err != nil {
		return nil, &plugins.Diagnostic{
			Kind:     plugins.KindInvalidMetadata,
			Severity: plugins.SeverityWarning,
			GUID:     decl.GUID,
			Message:  err.Error(),
		}
	}
	return c, nil
}

func resolveBinary(dir, binary string) string {
	if filepath.IsAbs(binary) {
		return filepath.Clean(binary)
	}
	return filepath.Join(dir, binary)
}

func moduleRejected(dir string, err error) plugins.Diagnostic {
	return plugins.Diagnostic{
		Kind:     plugins.KindInvalidMetadata,
		Severity: plugins.SeverityWarning,
		Message:  fmt.Sprintf("Skipping module [%s]: %v", dir, err),
	}
}

func moduleSkipped(dir, reason string) plugins.Diagnostic {
	return plugins.Diagnostic{
		Kind:     plugins.KindModuleSkipped,
		Severity: plugins.SeverityDebug,
		Message:  fmt.Sprintf("Skipping module [%s] because %s", dir, reason),
	}
}

func untypedUnit(dir, guid string) plugins.Diagnostic {
	return plugins.Diagnostic{
		Kind:     plugins.KindInvalidMetadata,
		Severity: plugins.SeverityWarning,
		GUID:     guid,
		Message:  fmt.Sprintf("Skipping unit [%s] of module [%s] because it names no type", guid, dir),
	}
}

func typeRejected(typeName string, err error) plugins.Diagnostic {
	return plugins.Diagnostic{
		Kind:     plugins.KindInvalidMetadata,
		Severity: plugins.SeverityWarning,
		Message:  fmt.Sprintf("Skipping type [%s] because its metadata is malformed: %v", typeName, err),
	}
}
