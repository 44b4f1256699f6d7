package dependencies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/platinummonkey/chainload/pkg/plugins"
)

// Dependency is an edge from a plugin to a GUID it depends on
type Dependency struct {
	GUID           string          `json:"guid"`
	MinimumVersion plugins.Version `json:"minimum_version"`
	Hard           bool            `json:"hard"`
	Type           string          `json:"type"` // "direct" or "transitive"
}

// Node is a plugin in the dependency graph. Dependency targets that were never
// added are not nodes; they act as leaves.
type Node struct {
	GUID         string
	Name         string
	Version      plugins.Version
	Dependencies []Dependency
}

// DependencyGraph maps plugins to the GUIDs they depend on. Keys are case-folded.
type DependencyGraph struct {
	nodes map[string]*Node
	edges map[string][]string // key -> sorted, deduplicated dependency keys
	names map[string]string   // key -> first spelling seen, for display
}

// Cycle is a closed dependency path, first element repeated at the end
type Cycle []string

func (c Cycle) String() string {
	return strings.Join(c, " -> ")
}

// CycleError is returned when a dependency path leads back to its start
type CycleError struct {
	Cycle Cycle
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", e.Cycle)
}

// NewDependencyGraph creates a new dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*Node),
		edges: make(map[string][]string),
		names: make(map[string]string),
	}
}

// BuildGraph creates a graph with one node per candidate. Hard and soft
// dependencies both become edges.
func BuildGraph(candidates []*plugins.Candidate) *DependencyGraph {
	graph := NewDependencyGraph()
	for _, c := range candidates {
		deps := make([]Dependency, 0, len(c.Dependencies))
		for _, d := range c.Dependencies {
			deps = append(deps, Dependency{
				GUID:           d.GUID,
				MinimumVersion: d.MinimumVersion,
				Hard:           d.IsHard(),
				Type:           "direct",
			})
		}
		graph.AddNode(c.GUID, c.Name, c.Version, deps)
	}
	return graph
}

// AddNode adds a node to the graph, replacing any node with the same GUID
func (g *DependencyGraph) AddNode(guid, name string, version plugins.Version, deps []Dependency) {
	key := plugins.GUIDKey(guid)
	g.nodes[key] = &Node{
		GUID:         guid,
		Name:         name,
		Version:      version,
		Dependencies: deps,
	}
	g.names[key] = guid

	seen := make(map[string]bool, len(deps))
	edges := make([]string, 0, len(deps))
	for _, dep := range deps {
		depKey := plugins.GUIDKey(dep.GUID)
		if _, ok := g.names[depKey]; !ok {
			g.names[depKey] = dep.GUID
		}
		if seen[depKey] {
			continue
		}
		seen[depKey] = true
		edges = append(edges, depKey)
	}
	sort.Strings(edges)
	g.edges[key] = edges
}

// GetNode retrieves a node from the graph
func (g *DependencyGraph) GetNode(guid string) *Node {
	return g.nodes[plugins.GUIDKey(guid)]
}

// Keys returns every node key in sorted order
func (g *DependencyGraph) Keys() []string {
	keys := make([]string, 0, len(g.nodes))
	for key := range g.nodes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of nodes
func (g *DependencyGraph) Len() int {
	return len(g.nodes)
}

// DisplayName returns the GUID as it was spelled when first seen
func (g *DependencyGraph) DisplayName(guid string) string {
	if name, ok := g.names[plugins.GUIDKey(guid)]; ok {
		return name
	}
	return guid
}

// IsMissing reports whether guid is referenced as a dependency but is not a node
func (g *DependencyGraph) IsMissing(guid string) bool {
	key := plugins.GUIDKey(guid)
	_, named := g.names[key]
	_, isNode := g.nodes[key]
	return named && !isNode
}

// GetDependencies returns the declared dependencies of a plugin
func (g *DependencyGraph) GetDependencies(guid string) []Dependency {
	node := g.GetNode(guid)
	if node == nil {
		return nil
	}
	return node.Dependencies
}

// GetTransitiveDependencies returns every plugin reachable from guid, each once
func (g *DependencyGraph) GetTransitiveDependencies(guid string) []Dependency {
	visited := map[string]bool{plugins.GUIDKey(guid): true}
	result := make([]Dependency, 0)

	var traverse func(string)
	traverse = func(key string) {
		for _, depKey := range g.edges[key] {
			if visited[depKey] {
				continue
			}
			visited[depKey] = true

			dep := Dependency{GUID: g.names[depKey], Type: "transitive"}
			if node, ok := g.nodes[key]; ok {
				for _, d := range node.Dependencies {
					if plugins.GUIDKey(d.GUID) == depKey {
						dep.MinimumVersion = d.MinimumVersion
						dep.Hard = d.Hard
						break
					}
				}
			}
			result = append(result, dep)
			traverse(depKey)
		}
	}

	traverse(plugins.GUIDKey(guid))
	return result
}

// GetDependents returns the plugins that directly depend on guid, in key order
func (g *DependencyGraph) GetDependents(guid string) []Dependency {
	target := plugins.GUIDKey(guid)
	dependents := make([]Dependency, 0)

	for _, key := range g.Keys() {
		for _, edge := range g.edges[key] {
			if edge != target {
				continue
			}
			node := g.nodes[key]
			dep := Dependency{GUID: node.GUID, Type: "direct"}
			for _, d := range node.Dependencies {
				if plugins.GUIDKey(d.GUID) == target {
					dep.MinimumVersion = d.MinimumVersion
					dep.Hard = d.Hard
					break
				}
			}
			dependents = append(dependents, dep)
			break
		}
	}

	return dependents
}

// DetectCircularDependencies reports the first cycle reachable from guid
func (g *DependencyGraph) DetectCircularDependencies(guid string) ([]string, error) {
	path := make([]string, 0)
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	var cycle Cycle

	var hasCycle func(string) bool
	hasCycle = func(key string) bool {
		visited[key] = true
		recStack[key] = true
		path = append(path, key)

		for _, dep := range g.edges[key] {
			if !visited[dep] {
				if hasCycle(dep) {
					return true
				}
			} else if recStack[dep] {
				cycle = g.closeCycle(path, dep)
				return true
			}
		}

		recStack[key] = false
		path = path[:len(path)-1]
		return false
	}

	if hasCycle(plugins.GUIDKey(guid)) {
		return cycle, &CycleError{Cycle: cycle}
	}

	return nil, nil
}

// DetectCycles returns every cycle found by a full sort
func (g *DependencyGraph) DetectCycles() []Cycle {
	_, cycles := g.TopologicalSort()
	return cycles
}

// TopologicalSort orders every node and every missing dependency target so that
// dependencies come before their dependents. Roots and dependency lists are
// walked in sorted key order, so the result depends only on the graph contents.
// An edge that closes a cycle is recorded and not followed; each key is emitted
// exactly once, so cyclic members come out in a stable order.
func (g *DependencyGraph) TopologicalSort() ([]string, []Cycle) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make([]string, 0)
	result := make([]string, 0, len(g.names))
	var cycles []Cycle

	var visit func(string)
	visit = func(key string) {
		visited[key] = true
		recStack[key] = true
		path = append(path, key)

		for _, dep := range g.edges[key] {
			if recStack[dep] {
				cycles = append(cycles, g.closeCycle(path, dep))
				continue
			}
			if !visited[dep] {
				visit(dep)
			}
		}

		recStack[key] = false
		path = path[:len(path)-1]
		result = append(result, key)
	}

	for _, key := range g.Keys() {
		if !visited[key] {
			visit(key)
		}
	}

	return result, cycles
}

// closeCycle turns the DFS path from target to its end into display GUIDs
func (g *DependencyGraph) closeCycle(path []string, target string) Cycle {
	start := 0
	for i, key := range path {
		if key == target {
			start = i
			break
		}
	}
	cycle := make(Cycle, 0, len(path)-start+1)
	for _, key := range path[start:] {
		cycle = append(cycle, g.names[key])
	}
	return append(cycle, g.names[target])
}

// GetImpactAnalysis returns the plugins that would be affected if guid failed to load
func (g *DependencyGraph) GetImpactAnalysis(guid string) *ImpactAnalysis {
	directDependents := g.GetDependents(guid)

	visited := map[string]bool{plugins.GUIDKey(guid): true}
	allDependents := make([]Dependency, 0)

	var traverse func(string)
	traverse = func(target string) {
		for _, dep := range g.GetDependents(target) {
			key := plugins.GUIDKey(dep.GUID)
			if visited[key] {
				continue
			}
			visited[key] = true
			dep.Type = "transitive"
			allDependents = append(allDependents, dep)
			traverse(dep.GUID)
		}
	}
	traverse(guid)

	return &ImpactAnalysis{
		GUID:                 g.DisplayName(guid),
		DirectDependents:     directDependents,
		TransitiveDependents: allDependents,
		TotalImpact:          len(allDependents),
	}
}

// ImpactAnalysis lists the plugins depending on a GUID, directly or not
type ImpactAnalysis struct {
	GUID                 string       `json:"guid"`
	DirectDependents     []Dependency `json:"direct_dependents"`
	TransitiveDependents []Dependency `json:"transitive_dependents"`
	TotalImpact          int          `json:"total_impact"`
}
