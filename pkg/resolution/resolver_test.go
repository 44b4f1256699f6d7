package resolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/chainload/pkg/plugins"
)

func candidate(guid, version string) *plugins.Candidate {
	return &plugins.Candidate{
		Metadata: plugins.Metadata{
			GUID:    guid,
			Name:    guid,
			Version: plugins.MustParseVersion(version),
		},
		Location: "/plugins/" + guid,
	}
}

func guids(candidates []*plugins.Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.GUID)
	}
	return out
}

func TestResolve_KeepsNewestVersion(t *testing.T) {
	older := candidate("g", "1.0.0.0")
	newer := candidate("g", "2.0.0.0")
	other := candidate("other", "1.0")

	diags := plugins.NewDiagnostics(nil)
	r := &Resolver{ProcessName: "host"}
	out := r.Resolve([]*plugins.Candidate{older, other, newer}, diags)

	require.Len(t, out, 2)
	assert.Same(t, other, out[0])
	assert.Same(t, newer, out[1])

	dups := diags.OfKind(plugins.KindDuplicateIdentity)
	require.Len(t, dups, 1)
	assert.Equal(t, "Skipping [g 1.0.0.0] because a newer version exists (g 2.0.0.0)", dups[0].Message)
}

func TestResolve_GroupsCaseInsensitively(t *testing.T) {
	lower := candidate("com.example.a", "1.0")
	upper := candidate("COM.Example.A", "1.5")

	diags := plugins.NewDiagnostics(nil)
	out := (&Resolver{}).Resolve([]*plugins.Candidate{lower, upper}, diags)

	require.Len(t, out, 1)
	assert.Same(t, upper, out[0])
	assert.Len(t, diags.OfKind(plugins.KindDuplicateIdentity), 1)
}

func TestResolve_EqualVersionsKeepFirst(t *testing.T) {
	first := candidate("g", "1.0")
	second := candidate("g", "1.0")
	second.Location = "/other/g"

	diags := plugins.NewDiagnostics(nil)
	out := (&Resolver{}).Resolve([]*plugins.Candidate{first, second}, diags)

	require.Len(t, out, 1)
	assert.Same(t, first, out[0])
	dups := diags.OfKind(plugins.KindDuplicateIdentity)
	require.Len(t, dups, 1)
	assert.Contains(t, dups[0].Message, "same version was already found at /plugins/g")
}

func TestResolve_ProcessFilter(t *testing.T) {
	d := candidate("D", "1.0")
	d.Processes = []plugins.ProcessFilter{{ProcessName: "game.exe"}}
	free := candidate("free", "1.0")

	diags := plugins.NewDiagnostics(nil)
	out := (&Resolver{ProcessName: "other.exe"}).Resolve([]*plugins.Candidate{d, free}, diags)

	assert.Equal(t, []string{"free"}, guids(out))
	skipped := diags.OfKind(plugins.KindProcessFilterMismatch)
	require.Len(t, skipped, 1)
	assert.Equal(t, "Skipping [D 1.0.0.0] because of process filters (game.exe)", skipped[0].Message)
	assert.Empty(t, diags.Errors(), "process filter skips are not faults")
}

func TestResolve_FilteredNewestDoesNotFallBack(t *testing.T) {
	older := candidate("g", "1.0")
	newer := candidate("g", "2.0")
	newer.Processes = []plugins.ProcessFilter{{ProcessName: "game"}}

	diags := plugins.NewDiagnostics(nil)
	out := (&Resolver{ProcessName: "other"}).Resolve([]*plugins.Candidate{older, newer}, diags)

	assert.Empty(t, out)
	assert.Len(t, diags.OfKind(plugins.KindDuplicateIdentity), 1)
	assert.Len(t, diags.OfKind(plugins.KindProcessFilterMismatch), 1)
}

func TestMatchesProcess(t *testing.T) {
	tests := []struct {
		name    string
		filters []string
		process string
		want    bool
	}{
		{name: "no filters", filters: nil, process: "anything", want: true},
		{name: "exact", filters: []string{"game"}, process: "game", want: true},
		{name: "case insensitive", filters: []string{"Game.EXE"}, process: "game", want: true},
		{name: "suffix on host side", filters: []string{"game"}, process: "GAME.exe", want: true},
		{name: "any of several", filters: []string{"editor", "game.exe"}, process: "game", want: true},
		{name: "mismatch", filters: []string{"game.exe"}, process: "other.exe", want: false},
		{name: "suffix only at end", filters: []string{"game.exe.bak"}, process: "game", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var filters []plugins.ProcessFilter
			for _, f := range tt.filters {
				filters = append(filters, plugins.ProcessFilter{ProcessName: f})
			}
			assert.Equal(t, tt.want, MatchesProcess(filters, tt.process))
		})
	}
}

func TestResolve_IncompatibilityIsAsymmetric(t *testing.T) {
	e := candidate("E", "1.0")
	e.Incompatibilities = []plugins.IncompatibilityRef{{GUID: "F"}, {GUID: "missing"}}
	f := candidate("F", "1.0")

	diags := plugins.NewDiagnostics(nil)
	out := (&Resolver{}).Resolve([]*plugins.Candidate{e, f}, diags)

	assert.Equal(t, []string{"F"}, guids(out))
	inc := diags.OfKind(plugins.KindIncompatible)
	require.Len(t, inc, 1)
	assert.Equal(t, "Could not load [E 1.0.0.0] because it is incompatible with: F", inc[0].Message)
	assert.Equal(t, "E", inc[0].GUID)
}

func TestResolve_IncompatibilityIsSinglePass(t *testing.T) {
	// Mutual incompatibility removes only the first side: once P is gone, Q no
	// longer conflicts with anything.
	p := candidate("P", "1.0")
	p.Incompatibilities = []plugins.IncompatibilityRef{{GUID: "Q"}}
	q := candidate("Q", "1.0")
	q.Incompatibilities = []plugins.IncompatibilityRef{{GUID: "P"}}

	diags := plugins.NewDiagnostics(nil)
	out := (&Resolver{}).Resolve([]*plugins.Candidate{p, q}, diags)

	assert.Equal(t, []string{"Q"}, guids(out))
	assert.Len(t, diags.OfKind(plugins.KindIncompatible), 1)
}

func TestResolve_IncompatibilityChain(t *testing.T) {
	a := candidate("A", "1.0")
	a.Incompatibilities = []plugins.IncompatibilityRef{{GUID: "B"}}
	b := candidate("B", "1.0")
	b.Incompatibilities = []plugins.IncompatibilityRef{{GUID: "C"}}
	c := candidate("C", "1.0")

	out := (&Resolver{}).Resolve([]*plugins.Candidate{a, b, c}, plugins.NewDiagnostics(nil))
	assert.Equal(t, []string{"C"}, guids(out))
}

func TestResolve_SelfIncompatibilityIgnored(t *testing.T) {
	a := candidate("A", "1.0")
	a.Incompatibilities = []plugins.IncompatibilityRef{{GUID: "a"}}

	diags := plugins.NewDiagnostics(nil)
	out := (&Resolver{}).Resolve([]*plugins.Candidate{a}, diags)
	assert.Equal(t, []string{"A"}, guids(out))
	assert.Zero(t, diags.Len())
}

func TestResolve_HostVersionWarning(t *testing.T) {
	wrong := candidate("wrong", "1.0")
	wrong.DeclaredHostVersion = plugins.MustParseVersion("2.0")
	fine := candidate("fine", "1.0")
	fine.DeclaredHostVersion = plugins.MustParseVersion("1.3.1")
	unknown := candidate("unknown", "1.0")

	diags := plugins.NewDiagnostics(nil)
	r := &Resolver{HostVersion: plugins.MustParseVersion("1.4")}
	out := r.Resolve([]*plugins.Candidate{wrong, fine, unknown}, diags)

	assert.Equal(t, []string{"wrong", "fine", "unknown"}, guids(out), "version mismatch never removes")
	warnings := diags.OfKind(plugins.KindHostVersionMismatch)
	require.Len(t, warnings, 1)
	assert.Equal(t,
		"Plugin [wrong 1.0.0.0] targets a wrong version of chainload (2.0.0.0) and might not work until you update",
		warnings[0].Message)
	assert.Equal(t, plugins.SeverityWarning, warnings[0].Severity)
}

func TestResolve_IncompatibleSkipsHostVersionCheck(t *testing.T) {
	e := candidate("E", "1.0")
	e.Incompatibilities = []plugins.IncompatibilityRef{{GUID: "F"}}
	e.DeclaredHostVersion = plugins.MustParseVersion("9.0")
	f := candidate("F", "1.0")

	diags := plugins.NewDiagnostics(nil)
	(&Resolver{HostVersion: plugins.MustParseVersion("1.0")}).Resolve([]*plugins.Candidate{e, f}, diags)

	assert.Len(t, diags.OfKind(plugins.KindIncompatible), 1)
	assert.Empty(t, diags.OfKind(plugins.KindHostVersionMismatch))
}

func TestTargetsWrongHost(t *testing.T) {
	host := plugins.MustParseVersion("1.4.2.7")

	tests := []struct {
		declared string
		want     bool
	}{
		{declared: "2.0", want: true},
		{declared: "0.9", want: true},
		{declared: "1.5", want: true},
		{declared: "1.3.9", want: false},
		{declared: "1.4.3", want: true},
		{declared: "1.4.2", want: false},
		{declared: "1.4.1", want: false},
		{declared: "1.4.2.99", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			assert.Equal(t, tt.want, TargetsWrongHost(plugins.MustParseVersion(tt.declared), host))
		})
	}

	assert.False(t, TargetsWrongHost(plugins.Version{}, host))
	assert.False(t, TargetsWrongHost(plugins.MustParseVersion("9.0"), plugins.Version{}))
}
