package dependencies

import (
	"errors"
	"reflect"
	"testing"

	"github.com/platinummonkey/chainload/pkg/plugins"
)

func hard(guid string) Dependency {
	return Dependency{GUID: guid, Hard: true, Type: "direct"}
}

func soft(guid string) Dependency {
	return Dependency{GUID: guid, Type: "direct"}
}

func v(s string) plugins.Version {
	return plugins.MustParseVersion(s)
}

func TestDependencyGraph_AddNode(t *testing.T) {
	graph := NewDependencyGraph()
	graph.AddNode("com.example.User", "User", v("1.0"), []Dependency{hard("com.example.common")})

	node := graph.GetNode("COM.EXAMPLE.USER")
	if node == nil {
		t.Fatal("Expected node to be found case-insensitively")
	}

	if node.GUID != "com.example.User" {
		t.Errorf("Expected GUID to keep its spelling, got %s", node.GUID)
	}

	if len(node.Dependencies) != 1 {
		t.Errorf("Expected 1 dependency, got %d", len(node.Dependencies))
	}

	if !graph.IsMissing("com.example.common") {
		t.Error("Expected undeclared dependency target to be missing")
	}

	if graph.IsMissing("com.example.user") {
		t.Error("Expected a node not to be missing")
	}
}

func TestDependencyGraph_GetTransitiveDependencies(t *testing.T) {
	graph := NewDependencyGraph()

	// user -> common -> base, user -> base
	graph.AddNode("base", "Base", v("1.0"), nil)
	graph.AddNode("common", "Common", v("1.0"), []Dependency{hard("base")})
	graph.AddNode("user", "User", v("1.0"), []Dependency{hard("common"), soft("base")})

	deps := graph.GetTransitiveDependencies("user")

	if len(deps) != 2 {
		t.Fatalf("Expected 2 transitive dependencies, got %d", len(deps))
	}

	for _, dep := range deps {
		if dep.Type != "transitive" {
			t.Errorf("Expected type 'transitive', got %s", dep.Type)
		}
	}
}

func TestDependencyGraph_GetDependents(t *testing.T) {
	graph := NewDependencyGraph()
	graph.AddNode("common", "Common", v("1.0"), nil)
	graph.AddNode("zeta", "Zeta", v("1.0"), []Dependency{hard("common")})
	graph.AddNode("alpha", "Alpha", v("1.0"), []Dependency{soft("Common")})
	graph.AddNode("other", "Other", v("1.0"), nil)

	dependents := graph.GetDependents("common")

	var got []string
	for _, d := range dependents {
		got = append(got, d.GUID)
	}
	if !reflect.DeepEqual(got, []string{"alpha", "zeta"}) {
		t.Errorf("Expected dependents [alpha zeta], got %v", got)
	}

	if dependents[0].Hard {
		t.Error("Expected alpha's dependency to be soft")
	}
}

func TestDependencyGraph_TopologicalSort(t *testing.T) {
	graph := NewDependencyGraph()
	graph.AddNode("C", "C", v("1.0"), []Dependency{hard("B")})
	graph.AddNode("B", "B", v("1.0"), []Dependency{hard("A")})
	graph.AddNode("A", "A", v("1.0"), nil)
	graph.AddNode("D", "D", v("1.0"), []Dependency{hard("Missing")})

	order, cycles := graph.TopologicalSort()

	if len(cycles) != 0 {
		t.Fatalf("Expected no cycles, got %v", cycles)
	}

	expected := []string{"a", "b", "c", "missing", "d"}
	if !reflect.DeepEqual(order, expected) {
		t.Errorf("Expected order %v, got %v", expected, order)
	}
}

func TestDependencyGraph_TopologicalSort_IsInsertionIndependent(t *testing.T) {
	build := func(reverse bool) []string {
		nodes := []struct {
			guid string
			deps []Dependency
		}{
			{"x", []Dependency{hard("b"), soft("a")}},
			{"a", nil},
			{"B", []Dependency{hard("a")}},
			{"m", nil},
		}
		graph := NewDependencyGraph()
		for i := range nodes {
			n := nodes[i]
			if reverse {
				n = nodes[len(nodes)-1-i]
			}
			graph.AddNode(n.guid, n.guid, v("1.0"), n.deps)
		}
		order, _ := graph.TopologicalSort()
		return order
	}

	first := build(false)
	second := build(true)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical orders, got %v and %v", first, second)
	}
}

func TestDependencyGraph_TopologicalSort_Cycle(t *testing.T) {
	graph := NewDependencyGraph()
	graph.AddNode("P", "P", v("1.0"), []Dependency{hard("Q")})
	graph.AddNode("Q", "Q", v("1.0"), []Dependency{hard("P")})
	graph.AddNode("R", "R", v("1.0"), []Dependency{hard("P")})

	order, cycles := graph.TopologicalSort()

	expected := []string{"q", "p", "r"}
	if !reflect.DeepEqual(order, expected) {
		t.Errorf("Expected order %v, got %v", expected, order)
	}

	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, got %d", len(cycles))
	}

	if cycles[0].String() != "P -> Q -> P" {
		t.Errorf("Expected cycle P -> Q -> P, got %s", cycles[0])
	}
}

func TestDependencyGraph_SelfDependency(t *testing.T) {
	graph := NewDependencyGraph()
	graph.AddNode("self", "Self", v("1.0"), []Dependency{hard("self")})

	order, cycles := graph.TopologicalSort()

	if !reflect.DeepEqual(order, []string{"self"}) {
		t.Errorf("Expected [self], got %v", order)
	}
	if len(cycles) != 1 || cycles[0].String() != "self -> self" {
		t.Errorf("Expected self cycle, got %v", cycles)
	}
}

func TestDependencyGraph_DetectCircularDependencies(t *testing.T) {
	graph := NewDependencyGraph()
	graph.AddNode("a", "A", v("1.0"), []Dependency{hard("b")})
	graph.AddNode("b", "B", v("1.0"), []Dependency{hard("c")})
	graph.AddNode("c", "C", v("1.0"), []Dependency{hard("a")})
	graph.AddNode("d", "D", v("1.0"), nil)

	path, err := graph.DetectCircularDependencies("a")
	if err == nil {
		t.Fatal("Expected circular dependency error")
	}

	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Expected *CycleError, got %T", err)
	}

	if !reflect.DeepEqual(path, []string{"a", "b", "c", "a"}) {
		t.Errorf("Expected path [a b c a], got %v", path)
	}

	if _, err := graph.DetectCircularDependencies("d"); err != nil {
		t.Errorf("Expected no cycle from d, got %v", err)
	}
}

func TestDependencyGraph_GetImpactAnalysis(t *testing.T) {
	graph := NewDependencyGraph()
	graph.AddNode("base", "Base", v("1.0"), nil)
	graph.AddNode("common", "Common", v("1.0"), []Dependency{hard("base")})
	graph.AddNode("user", "User", v("1.0"), []Dependency{hard("common")})
	graph.AddNode("admin", "Admin", v("1.0"), []Dependency{hard("common")})

	impact := graph.GetImpactAnalysis("base")

	if len(impact.DirectDependents) != 1 {
		t.Errorf("Expected 1 direct dependent, got %d", len(impact.DirectDependents))
	}

	if impact.TotalImpact != 3 {
		t.Errorf("Expected total impact 3, got %d", impact.TotalImpact)
	}
}

func TestBuildGraph(t *testing.T) {
	candidates := []*plugins.Candidate{
		{
			Metadata: plugins.Metadata{GUID: "B", Name: "B", Version: v("1.0")},
			Dependencies: []plugins.DependencyRef{
				{GUID: "A", MinimumVersion: v("1.0"), Flags: plugins.HardDependency},
				{GUID: "Z", Flags: plugins.SoftDependency},
			},
		},
		{Metadata: plugins.Metadata{GUID: "A", Name: "A", Version: v("1.0")}},
	}

	graph := BuildGraph(candidates)

	if graph.Len() != 2 {
		t.Fatalf("Expected 2 nodes, got %d", graph.Len())
	}

	deps := graph.GetDependencies("b")
	if len(deps) != 2 || !deps[0].Hard || deps[1].Hard {
		t.Errorf("Expected one hard and one soft dependency, got %+v", deps)
	}

	if !graph.IsMissing("z") {
		t.Error("Expected z to be missing")
	}
}
