// Package dependencies builds the plugin dependency graph and derives a load order.
//
// # Overview
//
// Every surviving candidate becomes a node keyed by its case-folded GUID. Hard and
// soft dependencies both become edges. A dependency target that is not a node is a
// missing plugin: it takes part in the sort as a leaf, so it sorts before everything
// that needs it, and is dropped when the order is mapped back to candidates.
//
// # Ordering
//
// TopologicalSort is a depth-first search over sorted keys with sorted dependency
// lists, so the order depends only on the graph contents and never on insertion or
// map iteration order. An edge that leads back into the current path closes a
// cycle: the cycle is reported and the edge is not followed. Every key is emitted
// exactly once.
//
//	sorted := dependencies.SortCandidates(survivors, diags)
//
// # Visualization
//
// The graph renders to Cytoscape.js JSON (Cytoscape, FocusedCytoscape) and to
// Graphviz DOT. DependencyHandlers serves both, plus per-plugin dependency,
// dependent and impact queries, on a gorilla/mux router.
//
//	handlers := dependencies.NewDependencyHandlers(func() *dependencies.DependencyGraph {
//		return lastRun.Graph
//	})
//	handlers.RegisterRoutes(router.PathPrefix("/api/v1").Subrouter())
package dependencies
