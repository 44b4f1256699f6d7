package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects the command output streams for the duration of the test
func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	oldStdout, oldStderr := stdout, stderr
	var out, errOut bytes.Buffer
	stdout, stderr = &out, &errOut
	t.Cleanup(func() {
		stdout, stderr = oldStdout, oldStderr
	})
	return &out, &errOut
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	// Test basic properties
	assert.Equal(t, "chainload", root.Name)
	assert.Equal(t, "Chainload - discover, order and load host plugins", root.Description)
	assert.NotNil(t, root.Subcommands)
	assert.NotNil(t, root.Flags)

	// Test that all expected subcommands are registered
	expectedCommands := []string{
		"run",
		"plan",
		"inspect",
		"graph",
		"watch",
		"version",
	}

	for _, cmdName := range expectedCommands {
		assert.Contains(t, root.Subcommands, cmdName, "Expected subcommand %s to be registered", cmdName)
		assert.NotNil(t, root.Subcommands[cmdName].Run, "Expected subcommand %s to be runnable", cmdName)
	}

	// Verify the exact number of subcommands
	assert.Equal(t, len(expectedCommands), len(root.Subcommands))
}

func TestCommandUsage(t *testing.T) {
	out, _ := captureOutput(t)
	root := NewRootCommand()

	err := root.usage()
	assert.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "Usage: chainload <command> [args]")
	assert.Contains(t, output, "Commands:")
	for name := range root.Subcommands {
		assert.Contains(t, output, name)
	}

	// Commands are listed alphabetically
	assert.Less(t, bytes.Index(out.Bytes(), []byte("graph")), bytes.Index(out.Bytes(), []byte("watch")))
}

func TestCommandExecute_NoArgs(t *testing.T) {
	out, _ := captureOutput(t)
	root := NewRootCommand()

	err := root.Execute(nil)

	// Should show usage when no args provided
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "Usage: chainload <command> [args]")
}

func TestCommandExecute_HelpFlag(t *testing.T) {
	for _, helpFlag := range []string{"-h", "--help", "help"} {
		t.Run(helpFlag, func(t *testing.T) {
			out, _ := captureOutput(t)
			root := NewRootCommand()

			err := root.Execute([]string{helpFlag})

			assert.NoError(t, err)
			assert.Contains(t, out.String(), "Usage: chainload <command> [args]")
		})
	}
}

func TestCommandExecute_ValidSubcommand(t *testing.T) {
	root := NewRootCommand()

	// Create a mock subcommand for testing
	var receivedArgs []string
	root.Subcommands["test"] = &Command{
		Name:        "test",
		Description: "Test command",
		Run: func(args []string) error {
			receivedArgs = args
			return nil
		},
	}

	err := root.Execute([]string{"test", "--flag", "value"})

	require.NoError(t, err)
	assert.Equal(t, []string{"--flag", "value"}, receivedArgs)
}

func TestCommandExecute_UnknownCommand(t *testing.T) {
	root := NewRootCommand()

	err := root.Execute([]string{"nonexistent"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: nonexistent")
}

func TestVersionCommand(t *testing.T) {
	out, _ := captureOutput(t)

	err := NewRootCommand().Execute([]string{"version"})

	require.NoError(t, err)
	assert.Contains(t, out.String(), "chainload host API 1.0.0")
}

func TestStringList(t *testing.T) {
	var dirs stringList
	require.NoError(t, dirs.Set("/a"))
	require.NoError(t, dirs.Set("/b"))

	assert.Equal(t, stringList{"/a", "/b"}, dirs)
	assert.Contains(t, dirs.String(), "/a")
}
