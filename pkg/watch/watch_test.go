package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevant(t *testing.T) {
	dir := t.TempDir()

	assert.True(t, Relevant(filepath.Join(dir, "greeter", "greeter.go")))
	assert.True(t, Relevant(filepath.Join(dir, "greeter", "go.mod")))
	assert.True(t, Relevant(filepath.Join(dir, "native", "plugin.yaml")))
	assert.True(t, Relevant(filepath.Join(dir, "native", "native.so")))
	assert.True(t, Relevant(dir), "existing directories are relevant")
	assert.True(t, Relevant(filepath.Join(dir, "removed")), "removed directories are relevant")
	assert.False(t, Relevant(filepath.Join(dir, "README.md")))
	assert.False(t, Relevant(filepath.Join(dir, "greeter", ".greeter.go.swp")))
}

func TestWatcher_CallsOnChange(t *testing.T) {
	root := t.TempDir()
	module := filepath.Join(root, "greeter")
	require.NoError(t, os.MkdirAll(module, 0755))

	log, _ := test.NewNullLogger()
	changes := make(chan struct{}, 10)
	w := NewWatcher([]string{root, filepath.Join(root, "absent")}, 20*time.Millisecond, log, func(context.Context) {
		changes <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Writes until the watcher is registered and reports a change
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	seen := false
	for !seen {
		select {
		case <-changes:
			seen = true
		case <-ticker.C:
			content := []byte("package main\n\n// revision " + time.Now().String() + "\n")
			require.NoError(t, os.WriteFile(filepath.Join(module, "greeter.go"), content, 0644))
		case <-deadline:
			t.Fatal("no change reported")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_NoDirectories(t *testing.T) {
	log, _ := test.NewNullLogger()
	w := NewWatcher([]string{filepath.Join(t.TempDir(), "absent")}, 0, log, func(context.Context) {})

	err := w.Run(context.Background())
	assert.EqualError(t, err, "none of the plugin directories exist")
}
