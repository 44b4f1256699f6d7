package dependencies

import (
	"strings"
	"testing"
)

func sampleGraph() *DependencyGraph {
	graph := NewDependencyGraph()
	graph.AddNode("base", "Base", v("1.0"), nil)
	graph.AddNode("common", "Common", v("1.2"), []Dependency{hard("base")})
	graph.AddNode("user", "User", v("2.0"), []Dependency{
		{GUID: "common", MinimumVersion: v("1.1"), Hard: true, Type: "direct"},
		soft("ghost"),
	})
	return graph
}

func TestCytoscape(t *testing.T) {
	cytoGraph := sampleGraph().Cytoscape()

	if len(cytoGraph.Nodes) != 4 {
		t.Fatalf("Expected 4 nodes, got %d", len(cytoGraph.Nodes))
	}

	types := make(map[string]string)
	for _, n := range cytoGraph.Nodes {
		types[n.Data.ID] = n.Data.Type
	}
	if types["ghost"] != "missing" {
		t.Errorf("Expected ghost to be missing, got %s", types["ghost"])
	}
	if types["user"] != "plugin" {
		t.Errorf("Expected user to be a plugin, got %s", types["user"])
	}

	if len(cytoGraph.Edges) != 3 {
		t.Fatalf("Expected 3 edges, got %d", len(cytoGraph.Edges))
	}

	edgeTypes := make(map[string]string)
	for _, e := range cytoGraph.Edges {
		edgeTypes[e.Data.ID] = e.Data.Type
	}
	if edgeTypes["user->ghost"] != "soft" {
		t.Errorf("Expected user->ghost to be soft, got %s", edgeTypes["user->ghost"])
	}
	if edgeTypes["common->base"] != "hard" {
		t.Errorf("Expected common->base to be hard, got %s", edgeTypes["common->base"])
	}
}

func TestFocusedCytoscape_Dependencies(t *testing.T) {
	graph := sampleGraph()

	direct := graph.FocusedCytoscape("user", false, -1, DirectionDependencies)
	if len(direct.Nodes) != 3 {
		t.Errorf("Expected user plus 2 direct dependencies, got %d nodes", len(direct.Nodes))
	}
	if direct.Nodes[0].Data.Type != "current" {
		t.Errorf("Expected first node to be current, got %s", direct.Nodes[0].Data.Type)
	}

	all := graph.FocusedCytoscape("user", true, -1, DirectionDependencies)
	if len(all.Nodes) != 4 {
		t.Errorf("Expected 4 nodes with transitive dependencies, got %d", len(all.Nodes))
	}

	var transitiveEdges int
	for _, e := range all.Edges {
		if e.Data.Type == "transitive" {
			transitiveEdges++
		}
	}
	if transitiveEdges != 1 {
		t.Errorf("Expected 1 transitive edge, got %d", transitiveEdges)
	}

	limited := graph.FocusedCytoscape("user", true, 1, DirectionDependencies)
	if len(limited.Nodes) != 3 {
		t.Errorf("Expected depth 1 to stop at direct dependencies, got %d nodes", len(limited.Nodes))
	}
}

func TestFocusedCytoscape_Dependents(t *testing.T) {
	graph := sampleGraph()

	cytoGraph := graph.FocusedCytoscape("base", true, -1, DirectionDependents)
	if len(cytoGraph.Nodes) != 2 {
		t.Fatalf("Expected base and common, got %d nodes", len(cytoGraph.Nodes))
	}
	if cytoGraph.Edges[0].Data.Type != "depends-on" || cytoGraph.Edges[0].Data.Source != "common" {
		t.Errorf("Unexpected edge %+v", cytoGraph.Edges[0].Data)
	}

	both := graph.FocusedCytoscape("common", true, -1, DirectionBoth)
	if len(both.Nodes) != 3 {
		t.Errorf("Expected common, base and user, got %d nodes", len(both.Nodes))
	}
}

func TestDOT(t *testing.T) {
	dot := sampleGraph().DOT()

	for _, want := range []string{
		"digraph plugins {",
		`"user" -> "common" [label=">= 1.1.0.0"];`,
		`"user" -> "ghost" [style=dashed];`,
		`"common" -> "base";`,
		`"ghost" [label="ghost (missing)", color=red, style=dashed];`,
		`"base" [label="base\nBase 1.0.0.0"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("Expected DOT output to contain %q\n%s", want, dot)
		}
	}

	if !strings.HasSuffix(dot, "}\n") {
		t.Error("Expected DOT output to be closed")
	}
}
