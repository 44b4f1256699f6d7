// Package resolution selects the surviving candidate set of a run: one candidate
// per GUID, filtered by host process and declared incompatibilities.
package resolution

import (
	"sort"
	"strings"

	"github.com/platinummonkey/chainload/pkg/plugins"
)

// DefaultHostName names the host in version mismatch warnings
const DefaultHostName = "chainload"

// Resolver applies the conflict and version policy to extracted candidates
type Resolver struct {
	// ProcessName is the current host process, matched against process filters
	ProcessName string
	// HostVersion is the running host API version. Zero disables the mismatch check.
	HostVersion plugins.Version
	// HostName is used in version mismatch warnings
	HostName string
}

// Resolve deduplicates candidates by GUID, drops process-filtered and
// incompatible candidates, and warns about host version mismatches. Survivors
// keep their discovery order.
func (r *Resolver) Resolve(candidates []*plugins.Candidate, diags *plugins.Diagnostics) []*plugins.Candidate {
	survivors := r.selectNewest(candidates, diags)
	survivors = r.filterProcesses(survivors, diags)
	return r.removeIncompatible(survivors, diags)
}

// selectNewest keeps the highest version of each GUID. Equal versions keep the
// first one discovered.
func (r *Resolver) selectNewest(candidates []*plugins.Candidate, diags *plugins.Diagnostics) []*plugins.Candidate {
	var order []string
	groups := make(map[string][]int)
	for i, c := range candidates {
		key := c.Key()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	winners := make([]int, 0, len(order))
	for _, key := range order {
		members := groups[key]
		sort.SliceStable(members, func(a, b int) bool {
			return candidates[members[b]].Version.Less(candidates[members[a]].Version)
		})

		winner := candidates[members[0]]
		winners = append(winners, members[0])

		for _, idx := range members[1:] {
			dropped := candidates[idx]
			if dropped.Version == winner.Version {
				diags.Addf(plugins.KindDuplicateIdentity, plugins.SeverityWarning, dropped.GUID,
					"Skipping [%s] because the same version was already found at %s", dropped, winner.Location)
				continue
			}
			diags.Addf(plugins.KindDuplicateIdentity, plugins.SeverityWarning, dropped.GUID,
				"Skipping [%s] because a newer version exists (%s)", dropped, winner)
		}
	}

	sort.Ints(winners)
	out := make([]*plugins.Candidate, 0, len(winners))
	for _, idx := range winners {
		out = append(out, candidates[idx])
	}
	return out
}

func (r *Resolver) filterProcesses(candidates []*plugins.Candidate, diags *plugins.Diagnostics) []*plugins.Candidate {
	out := make([]*plugins.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !MatchesProcess(c.Processes, r.ProcessName) {
			diags.Addf(plugins.KindProcessFilterMismatch, plugins.SeverityInfo, c.GUID,
				"Skipping [%s] because of process filters (%s)", c, strings.Join(c.ProcessNames(), ", "))
			continue
		}
		out = append(out, c)
	}
	return out
}

// removeIncompatible walks a snapshot of the candidates once. Presence is checked
// against the live set, so a candidate removed earlier in the pass no longer
// counts as a conflict for later ones.
func (r *Resolver) removeIncompatible(candidates []*plugins.Candidate, diags *plugins.Diagnostics) []*plugins.Candidate {
	present := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		present[c.Key()] = true
	}

	hostName := r.HostName
	if hostName == "" {
		hostName = DefaultHostName
	}

	for _, c := range candidates {
		if conflicts := conflictsOf(c, present); len(conflicts) > 0 {
			delete(present, c.Key())
			diags.Addf(plugins.KindIncompatible, plugins.SeverityError, c.GUID,
				"Could not load [%s] because it is incompatible with: %s", c, strings.Join(conflicts, ", "))
		} else if TargetsWrongHost(c.DeclaredHostVersion, r.HostVersion) {
			diags.Addf(plugins.KindHostVersionMismatch, plugins.SeverityWarning, c.GUID,
				"Plugin [%s] targets a wrong version of %s (%s) and might not work until you update",
				c, hostName, c.DeclaredHostVersion)
		}
	}

	out := make([]*plugins.Candidate, 0, len(present))
	for _, c := range candidates {
		if present[c.Key()] {
			out = append(out, c)
		}
	}
	return out
}

// conflictsOf lists, in declaration order, the incompatibility targets of c that
// are still present. A candidate never conflicts with itself.
func conflictsOf(c *plugins.Candidate, present map[string]bool) []string {
	var conflicts []string
	seen := make(map[string]bool)
	for _, inc := range c.Incompatibilities {
		key := plugins.GUIDKey(inc.GUID)
		if key == c.Key() || seen[key] || !present[key] {
			continue
		}
		seen[key] = true
		conflicts = append(conflicts, inc.GUID)
	}
	return conflicts
}

// MatchesProcess reports whether a candidate restricted to filters may load in
// processName. An empty filter set matches every process. Names compare
// case-insensitively with a trailing ".exe" ignored on both sides.
func MatchesProcess(filters []plugins.ProcessFilter, processName string) bool {
	if len(filters) == 0 {
		return true
	}
	current := normalizeProcessName(processName)
	for _, f := range filters {
		if normalizeProcessName(f.ProcessName) == current {
			return true
		}
	}
	return false
}

func normalizeProcessName(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".exe")
}

// TargetsWrongHost reports whether a plugin built against declared may not work on
// host: a different major version, a newer minor version, or a newer build of the
// same minor version. The revision component is a nightly counter and is ignored.
// Unknown (zero) versions never mismatch.
func TargetsWrongHost(declared, host plugins.Version) bool {
	if declared.IsZero() || host.IsZero() {
		return false
	}
	if declared.Major() != host.Major() {
		return true
	}
	if declared.Minor() != host.Minor() {
		return declared.Minor() > host.Minor()
	}
	return declared.Build() > host.Build()
}
