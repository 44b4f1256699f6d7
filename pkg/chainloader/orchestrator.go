package chainloader

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/chainload/pkg/loader"
	"github.com/platinummonkey/chainload/pkg/observability"
	"github.com/platinummonkey/chainload/pkg/plugins"
)

// orchestrator walks the load order once. Dependencies are satisfied by
// declared presence: every visited candidate is recorded in processed before
// its own outcome is known.
type orchestrator struct {
	opts    Options
	result  *Result
	log     *logrus.Entry
	handles *loader.HandleCache

	processed map[string]plugins.Version
	invalid   map[string]bool
}

func newOrchestrator(opts Options, result *Result, log *logrus.Entry) *orchestrator {
	return &orchestrator{
		opts:      opts,
		result:    result,
		log:       log,
		handles:   loader.NewHandleCache(opts.Loader),
		processed: make(map[string]plugins.Version),
		invalid:   make(map[string]bool),
	}
}

func (o *orchestrator) run(ctx context.Context) {
	for _, candidate := range o.result.LoadOrder {
		o.result.Outcomes[candidate.Key()] = o.visit(ctx, candidate)
	}
}

func (o *orchestrator) visit(ctx context.Context, c *plugins.Candidate) Outcome {
	diags := o.result.Diagnostics
	key := c.Key()

	var missing []plugins.DependencyRef
	dependsOnInvalid := false
	for _, dep := range c.Dependencies {
		depKey := plugins.GUIDKey(dep.GUID)
		version, ok := o.processed[depKey]
		if !ok || version.Less(dep.MinimumVersion) {
			if dep.IsHard() {
				missing = append(missing, dep)
			}
			continue
		}
		if dep.IsHard() && o.invalid[depKey] {
			dependsOnInvalid = true
		}
	}

	o.processed[key] = c.Version

	if dependsOnInvalid {
		diags.Addf(plugins.KindDependsOnInvalidUnit, plugins.SeverityWarning, c.GUID,
			"Skipping [%s] because it has a dependency that was not loaded. See previous errors for details.", c)
		if o.opts.TransitiveCascade {
			o.invalid[key] = true
		}
		return OutcomeCascadeSkipped
	}

	if len(missing) > 0 {
		diags.Addf(plugins.KindMissingHardDependency, plugins.SeverityError, c.GUID,
			"Could not load [%s] because it has missing dependencies: %s", c, joinDependencies(missing))
		o.invalid[key] = true
		return OutcomeDependencyUnsatisfied
	}

	if err := o.load(ctx, c); err != nil {
		o.invalid[key] = true
		diags.Addf(plugins.KindLoadFailure, plugins.SeverityError, c.GUID, "Error loading [%s] : %v", c, err)
		if tle, ok := loader.AsTypeLoadError(err); ok {
			o.log.WithField("guid", c.GUID).Debug(tle.Diagnosis())
		}
		return OutcomeLoadFailed
	}

	return OutcomeLoaded
}

// load opens the candidate's module and instantiates its type. A panic in the
// loader, the factory or Bind is returned as an error.
func (o *orchestrator) load(ctx context.Context, c *plugins.Candidate) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = observability.MustRecover(r)
		}
	}()

	o.log.WithField("guid", c.GUID).Infof("Loading [%s]", c)

	handle, err := o.module(ctx, c.ModuleLocation)
	if err != nil {
		return err
	}

	instance, err := o.opts.Instantiator.Instantiate(handle, c.TypeName)
	if err != nil {
		return err
	}

	instance.Bind(c.Info())
	if err := c.SetInstance(instance); err != nil {
		return err
	}

	o.result.Loaded[c.GUID] = instance
	return nil
}

// module returns the handle of location, loading it at most once per run
func (o *orchestrator) module(ctx context.Context, location string) (loader.Handle, error) {
	before := o.handles.Loads()
	start := time.Now()

	handle, err := o.handles.Get(location)
	if o.handles.Loads() == before {
		return handle, err
	}

	if m := o.opts.Metrics; m != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		m.ModuleLoadsTotal.WithLabelValues(status).Inc()
		m.ModuleLoadDuration.Observe(time.Since(start).Seconds())
	}
	o.opts.OTelMetrics.RecordModuleLoad(ctx, err)

	return handle, err
}

func joinDependencies(deps []plugins.DependencyRef) string {
	parts := make([]string, 0, len(deps))
	for _, dep := range deps {
		parts = append(parts, dep.String())
	}
	return strings.Join(parts, ", ")
}
