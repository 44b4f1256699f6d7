package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
)

// Output streams of every command. Logs go to stderr so stdout stays parseable.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	root := &Command{
		Name:        "chainload",
		Description: "Chainload - discover, order and load host plugins",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("chainload", flag.ContinueOnError),
	}

	// Add subcommands
	root.Subcommands["run"] = newRunCommand()
	root.Subcommands["plan"] = newPlanCommand()
	root.Subcommands["inspect"] = newInspectCommand()
	root.Subcommands["graph"] = newGraphCommand()
	root.Subcommands["watch"] = newWatchCommand()
	root.Subcommands["version"] = newVersionCommand()

	return root
}

// Execute runs the subcommand named by the first argument
func (c *Command) Execute(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	fmt.Fprintf(stdout, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(stdout, "Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(stdout, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

// newCommand creates a subcommand whose flags report errors instead of exiting
func newCommand(name, description string) *Command {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(stderr)
	return &Command{
		Name:        name,
		Description: description,
		Flags:       flags,
	}
}
