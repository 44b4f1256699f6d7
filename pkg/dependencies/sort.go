package dependencies

import (
	"github.com/platinummonkey/chainload/pkg/plugins"
)

// SortCandidates returns candidates in load order: every candidate after the
// candidates it depends on. Missing dependency targets take part in the sort as
// leaves and are dropped from the result. Each cycle found is reported as a
// dependency cycle diagnostic; its members still appear exactly once.
func SortCandidates(candidates []*plugins.Candidate, diags *plugins.Diagnostics) []*plugins.Candidate {
	graph := BuildGraph(candidates)
	order, cycles := graph.TopologicalSort()

	for _, cycle := range cycles {
		diags.Addf(plugins.KindDependencyCycle, plugins.SeverityError, cycle[0],
			"Dependency cycle detected: %s. Its members are ordered by GUID and may fail their dependency checks.", cycle)
	}

	byKey := make(map[string]*plugins.Candidate, len(candidates))
	for _, c := range candidates {
		byKey[c.Key()] = c
	}

	sorted := make([]*plugins.Candidate, 0, len(candidates))
	for _, key := range order {
		if c, ok := byKey[key]; ok {
			sorted = append(sorted, c)
		}
	}
	return sorted
}
