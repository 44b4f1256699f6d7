package dependencies

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/chainload/pkg/httputil"
)

// GraphSource returns the graph of the most recent run, or nil before the first run
type GraphSource func() *DependencyGraph

// DependencyHandlers provides HTTP handlers for the plugin dependency graph
type DependencyHandlers struct {
	source GraphSource
}

// NewDependencyHandlers creates new dependency handlers
func NewDependencyHandlers(source GraphSource) *DependencyHandlers {
	return &DependencyHandlers{source: source}
}

// RegisterRoutes registers dependency routes
func (h *DependencyHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/graph", h.getGraph).Methods("GET")
	router.HandleFunc("/graph.dot", h.getGraphDOT).Methods("GET")
	router.HandleFunc("/plugins/{guid}/dependencies", h.getDependencies).Methods("GET")
	router.HandleFunc("/plugins/{guid}/dependencies/transitive", h.getTransitiveDependencies).Methods("GET")
	router.HandleFunc("/plugins/{guid}/dependents", h.getDependents).Methods("GET")
	router.HandleFunc("/plugins/{guid}/impact", h.getImpact).Methods("GET")
	router.HandleFunc("/plugins/{guid}/graph", h.getFocusedGraph).Methods("GET")
}

func (h *DependencyHandlers) graph(w http.ResponseWriter) (*DependencyGraph, bool) {
	graph := h.source()
	if graph == nil {
		httputil.WriteServiceUnavailable(w, "no chainloader run has completed yet")
		return nil, false
	}
	return graph, true
}

// node resolves the {guid} path variable to a known plugin
func (h *DependencyHandlers) node(w http.ResponseWriter, r *http.Request) (*DependencyGraph, *Node, bool) {
	graph, ok := h.graph(w)
	if !ok {
		return nil, nil, false
	}
	guid, ok := httputil.PluginGUIDOrError(w, r)
	if !ok {
		return nil, nil, false
	}
	node := graph.GetNode(guid)
	if node == nil {
		httputil.WriteNotFoundError(w, "plugin not found: "+guid)
		return nil, nil, false
	}
	return graph, node, true
}

// getGraph handles GET /graph
func (h *DependencyHandlers) getGraph(w http.ResponseWriter, r *http.Request) {
	graph, ok := h.graph(w)
	if !ok {
		return
	}

	cycles := graph.DetectCycles()
	cyclePaths := make([]string, 0, len(cycles))
	for _, c := range cycles {
		cyclePaths = append(cyclePaths, c.String())
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"graph":  graph.Cytoscape(),
		"cycles": cyclePaths,
	})
}

// getGraphDOT handles GET /graph.dot
func (h *DependencyHandlers) getGraphDOT(w http.ResponseWriter, r *http.Request) {
	graph, ok := h.graph(w)
	if !ok {
		return
	}
	httputil.WriteText(w, http.StatusOK, "text/vnd.graphviz", graph.DOT())
}

// getDependencies handles GET /plugins/{guid}/dependencies
func (h *DependencyHandlers) getDependencies(w http.ResponseWriter, r *http.Request) {
	_, node, ok := h.node(w, r)
	if !ok {
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"guid":         node.GUID,
		"dependencies": node.Dependencies,
		"count":        len(node.Dependencies),
	})
}

// getTransitiveDependencies handles GET /plugins/{guid}/dependencies/transitive
func (h *DependencyHandlers) getTransitiveDependencies(w http.ResponseWriter, r *http.Request) {
	graph, node, ok := h.node(w, r)
	if !ok {
		return
	}

	deps := graph.GetTransitiveDependencies(node.GUID)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"guid":         node.GUID,
		"dependencies": deps,
		"count":        len(deps),
	})
}

// getDependents handles GET /plugins/{guid}/dependents
func (h *DependencyHandlers) getDependents(w http.ResponseWriter, r *http.Request) {
	graph, node, ok := h.node(w, r)
	if !ok {
		return
	}

	dependents := graph.GetDependents(node.GUID)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"guid":       node.GUID,
		"dependents": dependents,
		"count":      len(dependents),
	})
}

// getImpact handles GET /plugins/{guid}/impact
func (h *DependencyHandlers) getImpact(w http.ResponseWriter, r *http.Request) {
	graph, node, ok := h.node(w, r)
	if !ok {
		return
	}

	impact := graph.GetImpactAnalysis(node.GUID)
	response := map[string]interface{}{
		"impact":                  impact,
		"has_circular_dependency": false,
	}
	if path, err := graph.DetectCircularDependencies(node.GUID); err != nil {
		response["has_circular_dependency"] = true
		response["circular_path"] = path
	}

	httputil.WriteJSON(w, http.StatusOK, response)
}

// getFocusedGraph handles GET /plugins/{guid}/graph
// Query parameters:
//   - transitive: include transitive dependencies (default: true)
//   - depth: max depth for transitive dependencies (default: unlimited)
//   - direction: "dependencies", "dependents", or "both" (default: "dependencies")
func (h *DependencyHandlers) getFocusedGraph(w http.ResponseWriter, r *http.Request) {
	graph, node, ok := h.node(w, r)
	if !ok {
		return
	}

	transitive, err := httputil.QueryBool(r, "transitive", true)
	if err != nil {
		httputil.WriteBadRequest(w, "transitive must be a boolean")
		return
	}

	maxDepth, err := httputil.QueryInt(r, "depth", -1)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if maxDepth <= 0 {
		maxDepth = -1
	}

	direction := Direction(httputil.QueryString(r, "direction", string(DirectionDependencies)))
	switch direction {
	case DirectionDependencies, DirectionDependents, DirectionBoth:
	default:
		httputil.WriteBadRequest(w, "direction must be dependencies, dependents or both")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, graph.FocusedCytoscape(node.GUID, transitive, maxDepth, direction))
}
