// Package status serves a read-only HTTP view of a chainloader run: the loaded
// plugins, the diagnostics, the dependency graph, health probes and metrics.
package status

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/chainload/pkg/chainloader"
	"github.com/platinummonkey/chainload/pkg/dependencies"
	"github.com/platinummonkey/chainload/pkg/httputil"
	"github.com/platinummonkey/chainload/pkg/observability"
	"github.com/platinummonkey/chainload/pkg/plugins"
)

// Options configures the status server
type Options struct {
	Logger  *logrus.Logger
	Version string
	// Metrics instruments HTTP requests when set
	Metrics *observability.Metrics
	// Gatherer backs /metrics when set
	Gatherer prometheus.Gatherer
}

// Server exposes a chainloader over HTTP
type Server struct {
	chainloader *chainloader.Chainloader
	router      *mux.Router
	health      *observability.HealthChecker
	log         *logrus.Logger
}

// NewServer creates the status server of cl
func NewServer(cl *chainloader.Chainloader, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	s := &Server{
		chainloader: cl,
		router:      mux.NewRouter(),
		health:      observability.NewHealthChecker(opts.Version),
		log:         opts.Logger,
	}

	s.health.AddCheck("chainloader", true, s.checkRun)
	s.health.AddCheck("plugins", false, s.checkFaults)

	if opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}
	if opts.Gatherer != nil {
		observability.RegisterMetricsEndpoint(s.router, opts.Gatherer)
	}
	observability.RegisterHealthRoutes(s.router, s.health)

	s.router.HandleFunc("/run", s.getRun).Methods("GET")
	s.router.HandleFunc("/plugins", s.listPlugins).Methods("GET")
	s.router.HandleFunc("/plugins/{guid}", s.getPlugin).Methods("GET")
	s.router.HandleFunc("/diagnostics", s.listDiagnostics).Methods("GET")

	dependencies.NewDependencyHandlers(s.graph).RegisterRoutes(s.router)

	return s
}

// Handler wraps the router with tracing, recovery and request logging
func (s *Server) Handler() http.Handler {
	chain := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.RecoveryMiddleware(s.log),
		httputil.LoggingMiddleware(s.log),
	)
	return otelhttp.NewHandler(chain(s.router), "chainload-status")
}

// ServeHTTP serves the router without the outer middleware
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) graph() *dependencies.DependencyGraph {
	if result := s.chainloader.Result(); result != nil {
		return result.Graph
	}
	return nil
}

func (s *Server) result(w http.ResponseWriter) (*chainloader.Result, bool) {
	result := s.chainloader.Result()
	if result == nil {
		httputil.WriteServiceUnavailable(w, "no chainloader run has completed yet")
		return nil, false
	}
	return result, true
}

func (s *Server) checkRun(context.Context) error {
	if s.chainloader.Result() == nil {
		return fmt.Errorf("chainloader run has not completed")
	}
	return nil
}

func (s *Server) checkFaults(context.Context) error {
	result := s.chainloader.Result()
	if result == nil {
		return nil
	}
	if faults := len(result.Diagnostics.Errors()); faults > 0 {
		return fmt.Errorf("%d diagnostics reported problems", faults)
	}
	return nil
}

// RunSummary describes a completed run
type RunSummary struct {
	RunID       string         `json:"run_id"`
	ProcessName string         `json:"process_name"`
	Candidates  int            `json:"candidates"`
	Loaded      int            `json:"loaded"`
	Outcomes    map[string]int `json:"outcomes"`
	Diagnostics int            `json:"diagnostics"`
	Faults      int            `json:"faults"`
}

// PluginView is one ordered candidate and its outcome
type PluginView struct {
	GUID         string                  `json:"guid"`
	Name         string                  `json:"name"`
	Version      string                  `json:"version"`
	TypeName     string                  `json:"type_name"`
	Location     string                  `json:"location"`
	Outcome      string                  `json:"outcome"`
	Processes    []string                `json:"processes,omitempty"`
	Dependencies []plugins.DependencyRef `json:"dependencies,omitempty"`
}

func newPluginView(c *plugins.Candidate, outcome chainloader.Outcome) PluginView {
	return PluginView{
		GUID:         c.GUID,
		Name:         c.Name,
		Version:      c.Version.String(),
		TypeName:     c.TypeName,
		Location:     c.Location,
		Outcome:      outcome.String(),
		Processes:    c.ProcessNames(),
		Dependencies: c.Dependencies,
	}
}

// getRun handles GET /run
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	result, ok := s.result(w)
	if !ok {
		return
	}

	outcomes := make(map[string]int)
	for outcome, n := range result.OutcomeCounts() {
		outcomes[outcome.String()] = n
	}

	httputil.WriteJSON(w, http.StatusOK, RunSummary{
		RunID:       result.RunID,
		ProcessName: s.chainloader.ProcessName(),
		Candidates:  len(result.LoadOrder),
		Loaded:      len(result.Loaded),
		Outcomes:    outcomes,
		Diagnostics: result.Diagnostics.Len(),
		Faults:      len(result.Diagnostics.Errors()),
	})
}

// listPlugins handles GET /plugins
// Query parameters:
//   - outcome: only list candidates with this outcome (e.g. "loaded")
func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	result, ok := s.result(w)
	if !ok {
		return
	}

	filter := httputil.QueryString(r, "outcome", "")
	views := make([]PluginView, 0, len(result.LoadOrder))
	for _, c := range result.LoadOrder {
		outcome, _ := result.Outcome(c.GUID)
		if filter != "" && outcome.String() != filter {
			continue
		}
		views = append(views, newPluginView(c, outcome))
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"plugins": views,
		"count":   len(views),
	})
}

// getPlugin handles GET /plugins/{guid}
func (s *Server) getPlugin(w http.ResponseWriter, r *http.Request) {
	result, ok := s.result(w)
	if !ok {
		return
	}
	guid, ok := httputil.PluginGUIDOrError(w, r)
	if !ok {
		return
	}

	key := plugins.GUIDKey(guid)
	for _, c := range result.LoadOrder {
		if c.Key() == key {
			outcome, _ := result.Outcome(guid)
			httputil.WriteJSON(w, http.StatusOK, newPluginView(c, outcome))
			return
		}
	}
	httputil.WriteNotFoundError(w, "plugin not found: "+guid)
}

// listDiagnostics handles GET /diagnostics
// Query parameters:
//   - kind: only list diagnostics of this kind
//   - faults: only list diagnostics describing problems (default: false)
func (s *Server) listDiagnostics(w http.ResponseWriter, r *http.Request) {
	result, ok := s.result(w)
	if !ok {
		return
	}

	faultsOnly, err := httputil.QueryBool(r, "faults", false)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	kind := plugins.DiagnosticKind(httputil.QueryString(r, "kind", ""))

	var entries []plugins.Diagnostic
	switch {
	case faultsOnly:
		entries = result.Diagnostics.Errors()
	case kind != "":
		entries = result.Diagnostics.OfKind(kind)
	default:
		entries = result.Diagnostics.All()
	}
	if faultsOnly && kind != "" {
		filtered := entries[:0]
		for _, d := range entries {
			if d.Kind == kind {
				filtered = append(filtered, d)
			}
		}
		entries = filtered
	}
	if entries == nil {
		entries = []plugins.Diagnostic{}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"diagnostics": entries,
		"count":       len(entries),
	})
}
