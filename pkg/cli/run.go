package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/chainload/pkg/hostapi"
	"github.com/platinummonkey/chainload/pkg/observability"
	"github.com/platinummonkey/chainload/pkg/status"
)

type runOptions struct {
	json   bool
	strict bool
	serve  bool
}

func newRunCommand() *Command {
	cmd := newCommand("run", "Discover, order and load plugins")
	common := addCommonFlags(cmd.Flags)
	jsonOut := cmd.Flags.Bool("json", false, "Print the result as JSON")
	strict := cmd.Flags.Bool("strict", false, "Exit non-zero when any diagnostic reports a problem")
	serve := cmd.Flags.Bool("serve", false, "Serve the status API after loading until interrupted")
	addr := cmd.Flags.String("addr", "", "Status API listen address (default from config)")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		env, err := common.setup()
		if err != nil {
			return err
		}
		if *addr != "" {
			env.cfg.Server.Address = *addr
		}

		return runLoad(context.Background(), env, runOptions{
			json:   *jsonOut,
			strict: *strict,
			serve:  *serve,
		})
	}

	return cmd
}

// runLoad performs a full chainloader run, optionally keeping the status API up
// until a signal arrives
func runLoad(ctx context.Context, env *environment, opts runOptions) error {
	obs := env.cfg.Observability
	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        obs.OTelEnabled,
		Endpoint:       obs.OTelEndpoint,
		ServiceName:    obs.OTelServiceName,
		ServiceVersion: hostapi.Version,
		Insecure:       obs.OTelInsecure,
		Metrics:        obs.OTelEnabled,
	}, env.log)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	var otelMetrics *observability.OTelMetrics
	if providers != nil {
		if otelMetrics, err = observability.NewOTelMetrics(); err != nil {
			env.log.WithError(err).Warn("OpenTelemetry metrics are disabled")
			otelMetrics = nil
		}
	}

	var registry *prometheus.Registry
	var metrics *observability.Metrics
	if opts.serve && obs.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = observability.NewMetrics(registry)
	}

	cl, err := env.newChainloader(metrics, otelMetrics)
	if err != nil {
		return err
	}

	// The server goroutine fails the group, which ends the wait for a signal
	g, gctx := errgroup.WithContext(ctx)

	var server *http.Server
	if opts.serve {
		statusOpts := status.Options{
			Logger:  env.log,
			Version: hostapi.Version,
			Metrics: metrics,
		}
		if registry != nil {
			statusOpts.Gatherer = registry
		}

		server = &http.Server{
			Addr:         env.cfg.Server.Address,
			Handler:      status.NewServer(cl, statusOpts).Handler(),
			ReadTimeout:  env.cfg.Server.ReadTimeout,
			WriteTimeout: env.cfg.Server.WriteTimeout,
		}

		g.Go(func() error {
			env.log.Infof("Status API listening on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				env.log.WithError(err).Error("Status API failed")
				return fmt.Errorf("status API failed: %w", err)
			}
			return nil
		})
	}

	shutdown := observability.NewShutdownManager(env.log, server, env.cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, env.log)
	})

	modules, err := cl.Modules()
	if err != nil {
		_ = shutdown.Shutdown()
		return err
	}

	result, err := cl.Run(ctx, modules)
	if err != nil {
		_ = shutdown.Shutdown()
		return err
	}

	if opts.json {
		if err := writeJSON(stdout, newReport(cl.ProcessName(), result)); err != nil {
			_ = shutdown.Shutdown()
			return err
		}
	} else {
		printResult(stdout, cl.ProcessName(), result)
	}

	if opts.serve {
		shutdownErr := shutdown.WaitForShutdown(gctx)
		if err := g.Wait(); err != nil {
			return err
		}
		if shutdownErr != nil {
			return shutdownErr
		}
	} else if err := shutdown.Shutdown(); err != nil {
		return err
	}

	if opts.strict {
		if faults := len(result.Diagnostics.Errors()); faults > 0 {
			return fmt.Errorf("%d plugin problems reported", faults)
		}
	}
	return nil
}
