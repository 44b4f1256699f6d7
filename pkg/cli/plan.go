package cli

import (
	"context"
	"fmt"

	"github.com/platinummonkey/chainload/pkg/extractor"
	"github.com/platinummonkey/chainload/pkg/hostapi"
	"github.com/platinummonkey/chainload/pkg/plugins"
)

func newPlanCommand() *Command {
	cmd := newCommand("plan", "Show the load order without loading anything")
	common := addCommonFlags(cmd.Flags)
	jsonOut := cmd.Flags.Bool("json", false, "Print the plan as JSON")

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

		modules, err := cl.Modules()
		if err != nil {
			return err
		}
		result := cl.Plan(context.Background(), modules)

		if *jsonOut {
			return writeJSON(stdout, newReport(cl.ProcessName(), result))
		}
		printResult(stdout, cl.ProcessName(), result)
		return nil
	}

	return cmd
}

func newInspectCommand() *Command {
	cmd := newCommand("inspect", "Print the metadata declared by plugin modules")
	common := addCommonFlags(cmd.Flags)
	jsonOut := cmd.Flags.Bool("json", false, "Print the metadata as JSON")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		env, err := common.setup()
		if err != nil {
			return err
		}

		// Module directories given as arguments replace discovery
		var modules []extractor.Module
		if cmd.Flags.NArg() > 0 {
			for _, dir := range cmd.Flags.Args() {
				modules = append(modules, extractor.Module{Location: dir})
			}
		} else if modules, err = extractor.Discover(env.cfg.Loader.PluginDirs, env.log); err != nil {
			return err
		}

		diags := plugins.NewDiagnostics(nil)
		candidates := env.newExtractor().Extract(modules, diags)

		if *jsonOut {
			return writeJSON(stdout, map[string]interface{}{
				"modules":     len(modules),
				"candidates":  candidates,
				"diagnostics": diags.All(),
			})
		}

		fmt.Fprintf(stdout, "%d modules, %d plugin units\n\n", len(modules), len(candidates))
		for _, c := range candidates {
			printCandidate(stdout, c)
		}
		printDiagnostics(stdout, diags.All())
		return nil
	}

	return cmd
}

func newGraphCommand() *Command {
	cmd := newCommand("graph", "Print the dependency graph of the resolved plugins")
	common := addCommonFlags(cmd.Flags)
	format := cmd.Flags.String("format", "dot", "Output format: dot or json")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		if *format != "dot" && *format != "json" {
			return fmt.Errorf("unknown graph format: %s", *format)
		}

		env, err := common.setup()
		if err != nil {
			return err
		}
		cl, err := env.newChainloader(nil, nil)
		if err != nil {
			return err
		}

		modules, err := cl.Modules()
		if err != nil {
			return err
		}
		result := cl.Plan(context.Background(), modules)
		if result.Graph == nil {
			return fmt.Errorf("no dependency graph was built")
		}

		if *format == "json" {
			return writeJSON(stdout, result.Graph.Cytoscape())
		}
		_, err = fmt.Fprint(stdout, result.Graph.DOT())
		return err
	}

	return cmd
}

func newVersionCommand() *Command {
	cmd := newCommand("version", "Print the host API version")
	cmd.Run = func(args []string) error {
		fmt.Fprintf(stdout, "chainload host API %s (%s)\n", hostapi.Version, hostapi.ModulePath)
		return nil
	}
	return cmd
}
