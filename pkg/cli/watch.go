package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/platinummonkey/chainload/pkg/chainloader"
	"github.com/platinummonkey/chainload/pkg/watch"
)

func newWatchCommand() *Command {
	cmd := newCommand("watch", "Re-plan whenever a plugin directory changes")
	common := addCommonFlags(cmd.Flags)
	delay := cmd.Flags.Duration("delay", watch.DefaultDelay, "Quiet period before re-planning after a change")
	jsonOut := cmd.Flags.Bool("json", false, "Print each plan as JSON")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		env, err := common.setup()
		if err != nil {
			return err
		}
		cl, err := env.newChainloader(nil, nil)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runWatch(ctx, env, cl, *delay, *jsonOut)
	}

	return cmd
}

// runWatch prints a plan now and again after every settled change
func runWatch(ctx context.Context, env *environment, cl *chainloader.Chainloader, delay time.Duration, jsonOut bool) error {
	replan := func(ctx context.Context) {
		modules, err := cl.Modules()
		if err != nil {
			env.log.WithError(err).Error("Failed to discover plugin modules")
			return
		}

		result := cl.Plan(ctx, modules)
		if jsonOut {
			if err := writeJSON(stdout, newReport(cl.ProcessName(), result)); err != nil {
				env.log.WithError(err).Error("Failed to write plan")
			}
			return
		}
		printResult(stdout, cl.ProcessName(), result)
	}

	replan(ctx)
	return watch.NewWatcher(env.cfg.Loader.PluginDirs, delay, env.log, replan).Run(ctx)
}
