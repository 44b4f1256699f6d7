// Package chainloader runs the plugin load pipeline: metadata extraction,
// conflict resolution, dependency ordering and loading.
//
// A Chainloader runs once per host process:
//
//	cl := chainloader.New(chainloader.Options{PluginDirs: []string{"./plugins"}})
//	modules, err := cl.Modules()
//	result, err := cl.Run(ctx, modules)
//
// Run never fails because of a plugin. Every rejected, skipped or broken
// candidate is reported in Result.Diagnostics and is absent from Result.Loaded.
package chainloader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/chainload/pkg/dependencies"
	"github.com/platinummonkey/chainload/pkg/extractor"
	"github.com/platinummonkey/chainload/pkg/loader"
	"github.com/platinummonkey/chainload/pkg/observability"
	"github.com/platinummonkey/chainload/pkg/plugins"
	"github.com/platinummonkey/chainload/pkg/resolution"
)

// ErrAlreadyRun is returned when Run is called more than once on a Chainloader
var ErrAlreadyRun = errors.New("chainloader has already run")

// Extractor produces the candidates declared by a set of modules.
// *extractor.Extractor is the implementation used outside tests.
type Extractor interface {
	Extract(modules []extractor.Module, diags *plugins.Diagnostics) []*plugins.Candidate
	CachedModules() int
}

// Options configures a Chainloader
type Options struct {
	// ProcessName is matched against process filters. Defaults to the base name
	// of the running executable.
	ProcessName string
	// HostVersion is the host API version. Zero disables mismatch warnings.
	HostVersion plugins.Version
	// PluginDirs are scanned by Modules
	PluginDirs []string

	Loader       loader.ModuleLoader
	Instantiator loader.Instantiator
	Extractor    Extractor
	Logger       *logrus.Logger
	Metrics      *observability.Metrics
	OTelMetrics  *observability.OTelMetrics

	// TransitiveCascade also invalidates candidates skipped because a hard
	// dependency failed, so their own dependents are skipped too
	TransitiveCascade bool
}

// Chainloader owns one plugin load run
type Chainloader struct {
	opts     Options
	resolver *resolution.Resolver
	log      *logrus.Logger

	mu     sync.RWMutex
	ran    bool
	result *Result
}

// New creates a chainloader, filling unset options with defaults
func New(opts Options) *Chainloader {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.ProcessName == "" {
		opts.ProcessName = DefaultProcessName()
	}
	if opts.Loader == nil {
		opts.Loader = loader.NewGoPluginLoader(opts.Logger)
	}
	if opts.Instantiator == nil {
		opts.Instantiator = loader.SymbolInstantiator{}
	}
	if opts.Extractor == nil {
		opts.Extractor = extractor.NewExtractor(extractor.Options{Logger: opts.Logger})
	}

	return &Chainloader{
		opts: opts,
		resolver: &resolution.Resolver{
			ProcessName: opts.ProcessName,
			HostVersion: opts.HostVersion,
		},
		log: opts.Logger,
	}
}

// DefaultProcessName is the base name of the running executable
func DefaultProcessName() string {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	return filepath.Base(exe)
}

// ProcessName is the process name candidates are filtered against
func (c *Chainloader) ProcessName() string {
	return c.opts.ProcessName
}

// Modules discovers the candidate modules under the configured plugin directories
func (c *Chainloader) Modules() ([]extractor.Module, error) {
	return extractor.Discover(c.opts.PluginDirs, c.log)
}

// Result returns the result of Run, or nil until Run has finished
func (c *Chainloader) Result() *Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

// Plan extracts, resolves and orders the candidates of modules without loading
// anything. It may be called any number of times.
func (c *Chainloader) Plan(ctx context.Context, modules []extractor.Module) *Result {
	result := newResult()
	ctx = c.runContext(ctx, result)

	func() {
		defer observability.RecoverPanicWithCallback(observability.FromContext(ctx), "chainloader plan", result.recordPanic)
		result.LoadOrder, result.Graph = c.plan(ctx, modules, result.Diagnostics)
	}()

	for _, candidate := range result.LoadOrder {
		result.Outcomes[candidate.Key()] = OutcomePending
	}
	return result
}

// Run extracts, resolves, orders and loads the candidates of modules. It returns
// ErrAlreadyRun when called a second time; otherwise it always returns a result.
func (c *Chainloader) Run(ctx context.Context, modules []extractor.Module) (*Result, error) {
	c.mu.Lock()
	if c.ran {
		c.mu.Unlock()
		return nil, ErrAlreadyRun
	}
	c.ran = true
	c.mu.Unlock()

	start := time.Now()
	result := newResult()

	ctx, span := observability.StartSpan(ctx, "chainload.run",
		attribute.String("run_id", result.RunID),
		attribute.String("process", c.opts.ProcessName),
	)
	defer span.End()

	ctx = c.runContext(ctx, result)
	log := observability.FromContext(ctx)

	func() {
		defer observability.RecoverPanicWithCallback(log, "chainloader run", result.recordPanic)

		order, graph := c.plan(ctx, modules, result.Diagnostics)
		result.LoadOrder = order
		result.Graph = graph

		c.load(ctx, result)
	}()

	log.WithField("loaded", len(result.Loaded)).Info("Chainloader startup complete")
	c.recordRun(ctx, result, time.Since(start))

	c.mu.Lock()
	c.result = result
	c.mu.Unlock()

	return result, nil
}

// runContext attaches the logger and run ID, and routes every diagnostic of the
// run to the log and metrics
func (c *Chainloader) runContext(ctx context.Context, result *Result) context.Context {
	ctx = observability.WithLogger(ctx, c.log)
	ctx = observability.WithRunID(ctx, result.RunID)
	result.Diagnostics = plugins.NewDiagnostics(c.diagnosticSink(ctx))
	return ctx
}

func (c *Chainloader) plan(ctx context.Context, modules []extractor.Module, diags *plugins.Diagnostics) ([]*plugins.Candidate, *dependencies.DependencyGraph) {
	_, span := observability.StartSpan(ctx, "chainload.extract", attribute.Int("modules", len(modules)))
	start := time.Now()
	candidates := c.opts.Extractor.Extract(modules, diags)
	c.opts.Metrics.ObserveStage("extract", start)
	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	span.End()

	if n := len(candidates); n == 1 {
		observability.FromContext(ctx).Info("1 plugin to load")
	} else {
		observability.FromContext(ctx).Infof("%d plugins to load", n)
	}

	if c.opts.Metrics != nil {
		c.opts.Metrics.CandidatesDiscovered.Set(float64(len(candidates)))
		c.opts.Metrics.MetadataCacheSize.Set(float64(c.opts.Extractor.CachedModules()))
	}

	_, span = observability.StartSpan(ctx, "chainload.resolve")
	start = time.Now()
	survivors := c.resolver.Resolve(candidates, diags)
	c.opts.Metrics.ObserveStage("resolve", start)
	span.SetAttributes(attribute.Int("survivors", len(survivors)))
	span.End()

	_, span = observability.StartSpan(ctx, "chainload.sort")
	start = time.Now()
	graph := dependencies.BuildGraph(survivors)
	order := dependencies.SortCandidates(survivors, diags)
	c.opts.Metrics.ObserveStage("sort", start)
	span.End()

	return order, graph
}

func (c *Chainloader) load(ctx context.Context, result *Result) {
	ctx, span := observability.StartSpan(ctx, "chainload.load", attribute.Int("candidates", len(result.LoadOrder)))
	defer span.End()
	defer c.opts.Metrics.ObserveStage("load", time.Now())

	o := newOrchestrator(c.opts, result, observability.FromContext(ctx))
	o.run(ctx)

	if c.opts.Metrics != nil {
		c.opts.Metrics.PluginsLoaded.Set(float64(len(result.Loaded)))
	}
}

func (c *Chainloader) diagnosticSink(ctx context.Context) func(plugins.Diagnostic) {
	log := observability.FromContext(ctx)
	return func(d plugins.Diagnostic) {
		entry := log.WithField("kind", string(d.Kind))
		if d.GUID != "" {
			entry = entry.WithField("guid", d.GUID)
		}

		switch d.Severity {
		case plugins.SeverityDebug:
			entry.Debug(d.Message)
		case plugins.SeverityInfo:
			entry.Info(d.Message)
		case plugins.SeverityWarning:
			entry.Warn(d.Message)
		default:
			entry.Error(d.Message)
		}

		if c.opts.Metrics != nil {
			c.opts.Metrics.DiagnosticsTotal.WithLabelValues(string(d.Kind), string(d.Severity)).Inc()
		}
		c.opts.OTelMetrics.RecordDiagnostic(ctx, string(d.Kind), string(d.Severity))
	}
}

func (c *Chainloader) recordRun(ctx context.Context, result *Result, duration time.Duration) {
	counts := result.OutcomeCounts()
	outcomes := make(map[string]int, len(counts))
	for outcome, n := range counts {
		outcomes[outcome.String()] = n
	}

	if c.opts.Metrics != nil {
		c.opts.Metrics.RunsTotal.Inc()
		for outcome, n := range outcomes {
			c.opts.Metrics.CandidatesTotal.WithLabelValues(outcome).Add(float64(n))
		}
	}
	c.opts.OTelMetrics.RecordRun(ctx, duration, outcomes)
}

// newResult starts an empty result with a fresh run ID
func newResult() *Result {
	return &Result{
		RunID:    uuid.New().String(),
		Loaded:   make(plugins.LoadedSet),
		Outcomes: make(map[string]Outcome),
	}
}
