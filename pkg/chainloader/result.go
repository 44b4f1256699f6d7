package chainloader

import (
	"fmt"

	"github.com/platinummonkey/chainload/pkg/dependencies"
	"github.com/platinummonkey/chainload/pkg/plugins"
)

// Outcome is the final state of an ordered candidate
type Outcome int

const (
	// OutcomePending has not been visited, or was only planned
	OutcomePending Outcome = iota
	// OutcomeDependencyUnsatisfied is missing a hard dependency or its minimum version
	OutcomeDependencyUnsatisfied
	// OutcomeCascadeSkipped hard-depends on a candidate that did not load
	OutcomeCascadeSkipped
	// OutcomeLoadFailed failed while loading its module or instantiating its type
	OutcomeLoadFailed
	// OutcomeLoaded is in the loaded set
	OutcomeLoaded
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeDependencyUnsatisfied:
		return "dependency_unsatisfied"
	case OutcomeCascadeSkipped:
		return "cascade_skipped"
	case OutcomeLoadFailed:
		return "load_failed"
	case OutcomeLoaded:
		return "loaded"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// MarshalText renders the outcome name in JSON
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is everything one run produced
type Result struct {
	RunID string `json:"run_id"`
	// LoadOrder is the resolved candidates in dependency order
	LoadOrder []*plugins.Candidate `json:"load_order"`
	// Loaded maps GUID to the instance of each loaded plugin
	Loaded plugins.LoadedSet `json:"-"`
	// Outcomes is keyed by case-folded GUID
	Outcomes    map[string]Outcome            `json:"outcomes"`
	Diagnostics *plugins.Diagnostics          `json:"-"`
	Graph       *dependencies.DependencyGraph `json:"-"`
}

// Outcome returns the outcome of guid, ignoring case. Candidates that never
// reached the load order report false.
func (r *Result) Outcome(guid string) (Outcome, bool) {
	o, ok := r.Outcomes[plugins.GUIDKey(guid)]
	return o, ok
}

// OutcomeCounts counts ordered candidates per outcome
func (r *Result) OutcomeCounts() map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, o := range r.Outcomes {
		counts[o]++
	}
	return counts
}

// LoadedCandidates returns the loaded candidates in load order
func (r *Result) LoadedCandidates() []*plugins.Candidate {
	var out []*plugins.Candidate
	for _, c := range r.LoadOrder {
		if r.Outcomes[c.Key()] == OutcomeLoaded {
			out = append(out, c)
		}
	}
	return out
}

func (r *Result) recordPanic(v interface{}) {
	r.Diagnostics.Addf(plugins.KindRunFailure, plugins.SeverityError, "",
		"Chainloader run failed unexpectedly: %v", v)
}
