package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Run metrics
	RunsTotal   prometheus.Counter
	RunDuration *prometheus.HistogramVec

	// Candidate metrics
	CandidatesDiscovered prometheus.Gauge
	CandidatesTotal      *prometheus.CounterVec
	DiagnosticsTotal     *prometheus.CounterVec
	PluginsLoaded        prometheus.Gauge

	// Module metrics
	ModuleLoadsTotal   *prometheus.CounterVec
	ModuleLoadDuration prometheus.Histogram
	MetadataCacheSize  prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chainload_runs_total",
				Help: "Total number of chainloader runs",
			},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chainload_stage_duration_seconds",
				Help:    "Duration of each chainloader pipeline stage in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),

		CandidatesDiscovered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chainload_candidates_discovered",
				Help: "Number of candidates extracted in the last run",
			},
		),
		CandidatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainload_candidates_total",
				Help: "Total number of ordered candidates by final outcome",
			},
			[]string{"outcome"},
		),
		DiagnosticsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainload_diagnostics_total",
				Help: "Total number of diagnostics by kind and severity",
			},
			[]string{"kind", "severity"},
		),
		PluginsLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chainload_plugins_loaded",
				Help: "Number of plugins loaded by the last run",
			},
		),

		ModuleLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainload_module_loads_total",
				Help: "Total number of underlying module loads",
			},
			[]string{"status"},
		),
		ModuleLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chainload_module_load_duration_seconds",
				Help:    "Module load duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
		),
		MetadataCacheSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chainload_metadata_cache_modules",
				Help: "Number of modules with cached metadata",
			},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainload_http_requests_total",
				Help: "Total number of status API requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chainload_http_request_duration_seconds",
				Help:    "Status API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	registry.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.CandidatesDiscovered,
		m.CandidatesTotal,
		m.DiagnosticsTotal,
		m.PluginsLoaded,
		m.ModuleLoadsTotal,
		m.ModuleLoadDuration,
		m.MetadataCacheSize,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// ObserveStage records how long a pipeline stage took
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics. The
// path label is the matched route template, so plugin GUIDs do not explode the
// label space.
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					path = tmpl
				}
			}

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(router *mux.Router, gatherer prometheus.Gatherer) {
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
