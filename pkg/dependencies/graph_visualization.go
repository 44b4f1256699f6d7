package dependencies

import (
	"fmt"
	"strings"

	"github.com/platinummonkey/chainload/pkg/plugins"
)

// CytoscapeNode represents a node in Cytoscape.js format
type CytoscapeNode struct {
	Data CytoscapeNodeData `json:"data"`
}

// CytoscapeNodeData contains node data for Cytoscape.js
type CytoscapeNodeData struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Type    string `json:"type"` // "plugin", "missing", "current", "dependency", "dependent"
}

// CytoscapeEdge represents an edge in Cytoscape.js format
type CytoscapeEdge struct {
	Data CytoscapeEdgeData `json:"data"`
}

// CytoscapeEdgeData contains edge data for Cytoscape.js
type CytoscapeEdgeData struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type,omitempty"` // "hard", "soft", "transitive", "depends-on"
}

// CytoscapeGraph represents the complete graph in Cytoscape.js format
type CytoscapeGraph struct {
	Nodes []CytoscapeNode `json:"nodes"`
	Edges []CytoscapeEdge `json:"edges"`
}

// Direction selects which side of a plugin a focused graph shows
type Direction string

const (
	DirectionDependencies Direction = "dependencies"
	DirectionDependents   Direction = "dependents"
	DirectionBoth         Direction = "both"
)

// Cytoscape renders the whole graph. Missing dependency targets are included as
// "missing" nodes.
func (g *DependencyGraph) Cytoscape() CytoscapeGraph {
	cytoGraph := CytoscapeGraph{
		Nodes: make([]CytoscapeNode, 0, len(g.names)),
		Edges: make([]CytoscapeEdge, 0),
	}

	order, _ := g.TopologicalSort()
	for _, key := range order {
		cytoGraph.Nodes = append(cytoGraph.Nodes, g.cytoscapeNode(key, "plugin"))
	}

	for _, key := range g.Keys() {
		for _, dep := range g.nodes[key].Dependencies {
			cytoGraph.Edges = append(cytoGraph.Edges, g.cytoscapeEdge(key, dep, edgeKind(dep)))
		}
	}

	return cytoGraph
}

// FocusedCytoscape renders the neighbourhood of one plugin. maxDepth < 0 means
// unlimited; transitive=false shows direct dependencies only.
func (g *DependencyGraph) FocusedCytoscape(guid string, transitive bool, maxDepth int, direction Direction) CytoscapeGraph {
	cytoGraph := CytoscapeGraph{
		Nodes: make([]CytoscapeNode, 0),
		Edges: make([]CytoscapeEdge, 0),
	}

	currentKey := plugins.GUIDKey(guid)
	visited := map[string]bool{currentKey: true}
	cytoGraph.Nodes = append(cytoGraph.Nodes, g.cytoscapeNode(currentKey, "current"))

	if direction == DirectionDependencies || direction == DirectionBoth {
		depth := maxDepth
		if !transitive {
			depth = 1
		}
		g.addDependencies(&cytoGraph, currentKey, visited, depth, 0)
	}

	if direction == DirectionDependents || direction == DirectionBoth {
		g.addDependents(&cytoGraph, currentKey, visited)
	}

	return cytoGraph
}

func (g *DependencyGraph) addDependencies(cytoGraph *CytoscapeGraph, key string, visited map[string]bool, maxDepth, currentDepth int) {
	if maxDepth >= 0 && currentDepth >= maxDepth {
		return
	}

	node, ok := g.nodes[key]
	if !ok {
		return
	}

	for _, dep := range node.Dependencies {
		depKey := plugins.GUIDKey(dep.GUID)

		if !visited[depKey] {
			cytoGraph.Nodes = append(cytoGraph.Nodes, g.cytoscapeNode(depKey, "dependency"))
			visited[depKey] = true
			g.addDependencies(cytoGraph, depKey, visited, maxDepth, currentDepth+1)
		}

		kind := edgeKind(dep)
		if currentDepth > 0 {
			kind = "transitive"
		}
		cytoGraph.Edges = append(cytoGraph.Edges, g.cytoscapeEdge(key, dep, kind))
	}
}

func (g *DependencyGraph) addDependents(cytoGraph *CytoscapeGraph, key string, visited map[string]bool) {
	for _, dependent := range g.GetDependents(key) {
		depKey := plugins.GUIDKey(dependent.GUID)

		if !visited[depKey] {
			cytoGraph.Nodes = append(cytoGraph.Nodes, g.cytoscapeNode(depKey, "dependent"))
			visited[depKey] = true
		}

		cytoGraph.Edges = append(cytoGraph.Edges, CytoscapeEdge{
			Data: CytoscapeEdgeData{
				ID:     depKey + "->" + key,
				Source: depKey,
				Target: key,
				Type:   "depends-on",
			},
		})
	}
}

func (g *DependencyGraph) cytoscapeNode(key, kind string) CytoscapeNode {
	data := CytoscapeNodeData{ID: key, Name: g.names[key], Type: kind}
	if node, ok := g.nodes[key]; ok {
		data.Name = node.Name
		data.Version = node.Version.String()
	} else if kind == "plugin" {
		data.Type = "missing"
	}
	if data.Name == "" {
		data.Name = g.DisplayName(key)
	}
	return CytoscapeNode{Data: data}
}

func (g *DependencyGraph) cytoscapeEdge(from string, dep Dependency, kind string) CytoscapeEdge {
	to := plugins.GUIDKey(dep.GUID)
	return CytoscapeEdge{
		Data: CytoscapeEdgeData{
			ID:     from + "->" + to,
			Source: from,
			Target: to,
			Type:   kind,
		},
	}
}

// DOT renders the graph in Graphviz format. Soft dependencies are dashed and
// missing targets are drawn in red.
func (g *DependencyGraph) DOT() string {
	var b strings.Builder
	b.WriteString("digraph plugins {\n")
	b.WriteString("\trankdir=BT;\n")
	b.WriteString("\tnode [shape=box];\n")

	order, _ := g.TopologicalSort()
	for _, key := range order {
		if node, ok := g.nodes[key]; ok {
			label := fmt.Sprintf("%s\\n%s %s", node.GUID, node.Name, node.Version)
			fmt.Fprintf(&b, "\t%s [label=%s];\n", dotQuote(key), dotQuote(label))
			continue
		}
		fmt.Fprintf(&b, "\t%s [label=%s, color=red, style=dashed];\n",
			dotQuote(key), dotQuote(g.names[key]+" (missing)"))
	}

	for _, key := range g.Keys() {
		for _, dep := range g.nodes[key].Dependencies {
			attrs := ""
			if !dep.Hard {
				attrs = " [style=dashed]"
			}
			if !dep.MinimumVersion.IsZero() {
				label := dotQuote(">= " + dep.MinimumVersion.String())
				if attrs == "" {
					attrs = " [label=" + label + "]"
				} else {
					attrs = " [style=dashed, label=" + label + "]"
				}
			}
			fmt.Fprintf(&b, "\t%s -> %s%s;\n", dotQuote(key), dotQuote(plugins.GUIDKey(dep.GUID)), attrs)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func edgeKind(dep Dependency) string {
	if dep.Hard {
		return "hard"
	}
	return "soft"
}

// dotQuote quotes s as a DOT identifier, keeping \n line breaks intact
func dotQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
