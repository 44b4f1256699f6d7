// Package observability provides logging, metrics, tracing and health checks
// for the chainloader and its status server.
//
// Loggers are logrus loggers built from configuration:
//
//	log, err := observability.NewLogger("info", observability.FormatJSON, os.Stderr)
//	ctx = observability.WithRunID(observability.WithLogger(ctx, log), runID)
//	observability.FromContext(ctx).Info("Chainloader startup complete")
//
// Prometheus collectors are registered on a caller supplied registry:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	defer metrics.ObserveStage("resolve", time.Now())
//
// OpenTelemetry is opt-in. When InitOTel is not called, StartSpan and
// OTelMetrics fall back to the global no-op providers.
package observability
