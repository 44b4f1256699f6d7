package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/chainload/pkg/plugins"
)

const greeterSource = `package main

import (
	"github.com/platinummonkey/chainload/pkg/hostapi"
)

// Greeter says hello.
//
//chainload:plugin guid=com.example.greeter name=Greeter version=1.2.0
//chainload:process game.exe
//chainload:dependency com.example.core 1.0
type Greeter struct {
	hostapi.Base
	greeting string
}

// Helper embeds the base type but declares nothing.
type Helper struct {
	hostapi.Base
}

// Hooks is abstract.
//
//chainload:plugin guid=com.example.hooks name=Hooks version=1.0
type Hooks interface {
	hostapi.Plugin
}

//chainload:plugin guid=com.example.generic name=Generic version=1.0
type Generic[T any] struct {
	hostapi.Base
	value T
}

type unrelated struct {
	name string
}

func main() {}
`

const greeterGoMod = `module example.com/greeter

go 1.22

require github.com/platinummonkey/chainload v1.4.0
`

func writeModule(t *testing.T, root, name string, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	for file, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0644))
	}
	return dir
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	return log
}

func TestExtract_SourceModule(t *testing.T) {
	root := t.TempDir()
	dir := writeModule(t, root, "greeter", map[string]string{
		"greeter.go":      greeterSource,
		"greeter_test.go": "package main\n\nthis is not go",
		"go.mod":          greeterGoMod,
	})

	e := NewExtractor(Options{Logger: quietLogger()})
	diags := plugins.NewDiagnostics(nil)
	candidates := e.Extract([]Module{{Location: dir}}, diags)

	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, "com.example.greeter", c.GUID)
	assert.Equal(t, "Greeter", c.Name)
	assert.Equal(t, plugins.MustParseVersion("1.2"), c.Version)
	assert.Equal(t, "Greeter", c.TypeName)
	assert.Equal(t, dir, c.Location)
	assert.Equal(t, filepath.Join(dir, "greeter.so"), c.ModuleLocation)
	assert.Equal(t, plugins.MustParseVersion("1.4"), c.DeclaredHostVersion)
	assert.Equal(t, []string{"game.exe"}, c.ProcessNames())
	require.Len(t, c.Dependencies, 1)
	assert.True(t, c.Dependencies[0].IsHard())

	invalid := diags.OfKind(plugins.KindInvalidMetadata)
	require.Len(t, invalid, 1)
	assert.Equal(t, "Skipping over type [main.Helper] as no metadata attribute is specified", invalid[0].Message)
	assert.Equal(t, 1, diags.Len())
}

func TestExtract_DotImport(t *testing.T) {
	root := t.TempDir()
	dir := writeModule(t, root, "dotted", map[string]string{
		"plugin.go": `package main

import . "github.com/platinummonkey/chainload/pkg/hostapi"

//chainload:plugin guid=com.example.dotted name=Dotted version=2.0
type Dotted struct {
	*Base
}
`,
	})

	e := NewExtractor(Options{Logger: quietLogger()})
	candidates := e.Extract([]Module{{Location: dir}}, plugins.NewDiagnostics(nil))

	require.Len(t, candidates, 1)
	assert.Equal(t, "com.example.dotted", candidates[0].GUID)
	assert.True(t, candidates[0].DeclaredHostVersion.IsZero())
}

func TestExtract_SkipsModuleWithoutHostReference(t *testing.T) {
	root := t.TempDir()
	dir := writeModule(t, root, "unrelated", map[string]string{
		"main.go": "package main\n\nimport \"fmt\"\n\nfunc main() { fmt.Println() }\n",
	})

	diags := plugins.NewDiagnostics(nil)
	candidates := NewExtractor(Options{Logger: quietLogger()}).Extract([]Module{{Location: dir}}, diags)

	assert.Empty(t, candidates)
	skipped := diags.OfKind(plugins.KindModuleSkipped)
	require.Len(t, skipped, 1)
	assert.Equal(t, plugins.SeverityDebug, skipped[0].Severity)
	assert.False(t, skipped[0].IsFault())
}

func TestExtract_MalformedDirective(t *testing.T) {
	root := t.TempDir()
	dir := writeModule(t, root, "broken", map[string]string{
		"plugin.go": `package broken

import "github.com/platinummonkey/chainload/pkg/hostapi"

//chainload:plugin guid=com.example.broken name=Broken version=1.0
//chainload:dependency
type Broken struct {
	hostapi.Base
}

//chainload:plugin guid=com.example.fine name=Fine version=1.0
type Fine struct {
	hostapi.Base
}
`,
	})

	diags := plugins.NewDiagnostics(nil)
	candidates := NewExtractor(Options{Logger: quietLogger()}).Extract([]Module{{Location: dir}}, diags)

	require.Len(t, candidates, 1)
	assert.Equal(t, "com.example.fine", candidates[0].GUID)

	invalid := diags.OfKind(plugins.KindInvalidMetadata)
	require.Len(t, invalid, 1)
	assert.Contains(t, invalid[0].Message, "Skipping type [broken.Broken] because its metadata is malformed")
}

func TestExtract_InvalidGUID(t *testing.T) {
	root := t.TempDir()
	dir := writeModule(t, root, "badguid", map[string]string{
		"plugin.go": `package main

import "github.com/platinummonkey/chainload/pkg/hostapi"

//chainload:plugin guid="bad guid" name=Bad version=1.0
type Bad struct {
	hostapi.Base
}
`,
	})

	diags := plugins.NewDiagnostics(nil)
	candidates := NewExtractor(Options{Logger: quietLogger()}).Extract([]Module{{Location: dir}}, diags)

	assert.Empty(t, candidates)
	require.Equal(t, 1, diags.Len())
	assert.Equal(t, "Skipping type [main.Bad] because its GUID [bad guid] is of an illegal format.", diags.All()[0].Message)
}

func TestExtract_UnparsableSource(t *testing.T) {
	root := t.TempDir()
	dir := writeModule(t, root, "garbage", map[string]string{
		"plugin.go": "package main\n\nfunc {",
	})

	diags := plugins.NewDiagnostics(nil)
	candidates := NewExtractor(Options{Logger: quietLogger()}).Extract([]Module{{Location: dir}}, diags)

	assert.Empty(t, candidates)
	require.Equal(t, 1, diags.Len())
	assert.Equal(t, plugins.KindInvalidMetadata, diags.All()[0].Kind)
	assert.Contains(t, diags.All()[0].Message, "failed to parse plugin.go")
}

func TestExtract_ManifestModule(t *testing.T) {
	root := t.TempDir()
	dir := writeModule(t, root, "binary", map[string]string{
		"plugin.yaml": `binary: binary.so
host_version: "1.3"
units:
  - type: Reader
    metadata:
      guid: com.example.reader
      name: Reader
      version: "0.9"
    incompatibilities: [com.example.writer]
  - type: AbstractReader
    abstract: true
    metadata:
      guid: com.example.abstract
      name: Abstract
      version: "1.0"
  - type: Nameless
    metadata:
      guid: com.example.nameless
      version: "1.0"
`,
		"binary.so": "not an object file",
	})

	diags := plugins.NewDiagnostics(nil)
	candidates := NewExtractor(Options{Logger: quietLogger()}).Extract([]Module{{Location: dir}}, diags)

	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, "Reader", c.TypeName)
	assert.Equal(t, filepath.Join(dir, "binary.so"), c.ModuleLocation)
	assert.Equal(t, plugins.MustParseVersion("1.3"), c.DeclaredHostVersion)
	require.Len(t, c.Incompatibilities, 1)

	require.Equal(t, 1, diags.Len())
	assert.Equal(t, "Skipping type [Nameless] because its name is null.", diags.All()[0].Message)
}

func TestExtract_ManifestUnitWithoutType(t *testing.T) {
	root := t.TempDir()
	dir := writeModule(t, root, "untyped", map[string]string{
		"plugin.yaml": `binary: untyped.so
units:
  - metadata:
      guid: com.example.untyped
      name: Untyped
      version: "1.0"
  - {}
  - type: Typed
    metadata:
      guid: com.example.typed
      name: Typed
      version: "1.0"
`,
	})

	diags := plugins.NewDiagnostics(nil)
	candidates := NewExtractor(Options{Logger: quietLogger()}).Extract([]Module{{Location: dir}}, diags)

	require.Len(t, candidates, 1)
	assert.Equal(t, "com.example.typed", candidates[0].GUID)

	invalid := diags.OfKind(plugins.KindInvalidMetadata)
	require.Len(t, invalid, 1)
	assert.Equal(t, "com.example.untyped", invalid[0].GUID)
	assert.Contains(t, invalid[0].Message, "names no type")
}

func TestExtract_ManifestWithoutBinary(t *testing.T) {
	root := t.TempDir()
	dir := writeModule(t, root, "nobinary", map[string]string{
		"plugin.yaml": "units: []\n",
	})

	diags := plugins.NewDiagnostics(nil)
	candidates := NewExtractor(Options{Logger: quietLogger()}).Extract([]Module{{Location: dir}}, diags)

	assert.Empty(t, candidates)
	require.Equal(t, 1, diags.Len())
	assert.Contains(t, diags.All()[0].Message, "manifest declares no binary")
}

func TestExtract_EmptyModule(t *testing.T) {
	root := t.TempDir()
	dir := writeModule(t, root, "empty", map[string]string{"README": "nothing here"})

	diags := plugins.NewDiagnostics(nil)
	candidates := NewExtractor(Options{Logger: quietLogger()}).Extract([]Module{{Location: dir}}, diags)

	assert.Empty(t, candidates)
	require.Len(t, diags.OfKind(plugins.KindModuleSkipped), 1)
}

func TestExtract_CachesAcrossCalls(t *testing.T) {
	root := t.TempDir()
	dir := writeModule(t, root, "greeter", map[string]string{
		"greeter.go": greeterSource,
		"go.mod":     greeterGoMod,
	})

	e := NewExtractor(Options{Logger: quietLogger()})
	modules := []Module{{Location: dir}}

	first := e.Extract(modules, plugins.NewDiagnostics(nil))
	assert.Equal(t, 1, e.CachedModules())

	diags := plugins.NewDiagnostics(nil)
	second := e.Extract(modules, diags)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Metadata, second[0].Metadata)
	assert.NotSame(t, first[0], second[0])
	assert.Equal(t, 1, diags.Len(), "cached diagnostics are replayed")

	// A changed module is inspected again
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.go"), []byte(`package main

import "github.com/platinummonkey/chainload/pkg/hostapi"

//chainload:plugin guid=com.example.extra name=Extra version=1.0
type Extra struct {
	hostapi.Base
}
`), 0644))

	third := e.Extract(modules, plugins.NewDiagnostics(nil))
	assert.Len(t, third, 2)
}

func TestExtract_CacheDisabled(t *testing.T) {
	root := t.TempDir()
	dir := writeModule(t, root, "greeter", map[string]string{"greeter.go": greeterSource})

	e := NewExtractor(Options{CacheSize: -1, Logger: quietLogger()})
	e.Extract([]Module{{Location: dir}}, plugins.NewDiagnostics(nil))
	assert.Equal(t, 0, e.CachedModules())
}

func TestDiscover(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeModule(t, first, "zeta", nil)
	writeModule(t, first, "alpha", nil)
	writeModule(t, second, "beta", nil)
	require.NoError(t, os.WriteFile(filepath.Join(first, "stray.txt"), []byte("x"), 0644))

	modules, err := Discover([]string{first, filepath.Join(first, "missing"), second}, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, []Module{
		{Location: filepath.Join(first, "alpha")},
		{Location: filepath.Join(first, "zeta")},
		{Location: filepath.Join(second, "beta")},
	}, modules)
}

func TestModuleVersion(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		err  bool
	}{
		{raw: "v1.4.2", want: "1.4.2.0"},
		{raw: "v2.0.0-20240101120000-abcdef123456", want: "2.0.0.0"},
		{raw: "v1.0.0+incompatible", want: "1.0.0.0"},
		{raw: "(devel)", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := moduleVersion(tt.raw)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.String())
		})
	}
}
