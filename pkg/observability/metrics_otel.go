package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry metric instruments for chainloader runs
type OTelMetrics struct {
	runsTotal     metric.Int64Counter
	runDuration   metric.Float64Histogram
	outcomesTotal metric.Int64Counter
	moduleLoads   metric.Int64Counter
	diagnostics   metric.Int64Counter
}

// NewOTelMetrics creates the instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter(TracerName)

	m := &OTelMetrics{}
	var err error

	m.runsTotal, err = meter.Int64Counter(
		"chainload.runs",
		metric.WithDescription("Total number of chainloader runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runs counter: %w", err)
	}

	m.runDuration, err = meter.Float64Histogram(
		"chainload.run.duration",
		metric.WithDescription("Chainloader run duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run duration histogram: %w", err)
	}

	m.outcomesTotal, err = meter.Int64Counter(
		"chainload.candidates",
		metric.WithDescription("Ordered candidates by final outcome"),
		metric.WithUnit("{candidate}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidates counter: %w", err)
	}

	m.moduleLoads, err = meter.Int64Counter(
		"chainload.module.loads",
		metric.WithDescription("Underlying module loads"),
		metric.WithUnit("{load}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create module loads counter: %w", err)
	}

	m.diagnostics, err = meter.Int64Counter(
		"chainload.diagnostics",
		metric.WithDescription("Diagnostics by kind"),
		metric.WithUnit("{diagnostic}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create diagnostics counter: %w", err)
	}

	return m, nil
}

// RecordRun records a finished run
func (m *OTelMetrics) RecordRun(ctx context.Context, duration time.Duration, outcomes map[string]int) {
	if m == nil {
		return
	}
	m.runsTotal.Add(ctx, 1)
	m.runDuration.Record(ctx, duration.Seconds())
	for outcome, n := range outcomes {
		m.outcomesTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// RecordModuleLoad records one underlying module load
func (m *OTelMetrics) RecordModuleLoad(ctx context.Context, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.moduleLoads.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordDiagnostic records one diagnostic
func (m *OTelMetrics) RecordDiagnostic(ctx context.Context, kind, severity string) {
	if m == nil {
		return
	}
	m.diagnostics.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("severity", severity),
	))
}
