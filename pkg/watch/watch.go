// Package watch re-runs a callback whenever the contents of the plugin
// directories change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/chainload/pkg/plugins"
)

// DefaultDelay is how long the directories must be quiet before the callback runs
const DefaultDelay = 500 * time.Millisecond

// Watcher watches plugin directories recursively
type Watcher struct {
	dirs     []string
	delay    time.Duration
	log      *logrus.Logger
	onChange func(ctx context.Context)
}

// NewWatcher creates a watcher calling onChange after each burst of changes
func NewWatcher(dirs []string, delay time.Duration, log *logrus.Logger, onChange func(ctx context.Context)) *Watcher {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if log == nil {
		log = logrus.New()
	}
	return &Watcher{
		dirs:     dirs,
		delay:    delay,
		log:      log,
		onChange: onChange,
	}
}

// Run blocks until ctx is done or the underlying watcher fails
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	watched := 0
	for _, dir := range w.dirs {
		n, err := setupWatcher(watcher, dir)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		watched += n
	}
	if watched == 0 {
		return fmt.Errorf("none of the plugin directories exist")
	}
	w.log.Infof("Watching %d directories for plugin changes", watched)

	timer := time.NewTimer(w.delay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Also watch new directories
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if _, err := setupWatcher(watcher, event.Name); err != nil {
						w.log.WithError(err).Warnf("Could not watch new directory %s", event.Name)
					}
				}
			}

			if !Relevant(event.Name) {
				continue
			}
			w.log.Debugf("Plugin change: %s %s", event.Op, event.Name)
			timer.Reset(w.delay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("Watcher error")

		case <-timer.C:
			w.onChange(ctx)
		}
	}
}

// Relevant reports whether a change to path can alter the plugin set
func Relevant(path string) bool {
	base := filepath.Base(path)
	switch {
	case base == plugins.ManifestFileName, base == "go.mod":
		return true
	case filepath.Ext(base) == ".go", filepath.Ext(base) == ".so":
		return true
	}
	fi, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		// removed module directories
		return filepath.Ext(base) == ""
	}
	return err == nil && fi.IsDir()
}

// setupWatcher recursively adds all directories under root to the watcher.
// A missing root is skipped.
func setupWatcher(watcher *fsnotify.Watcher, root string) (int, error) {
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}

	count := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			count++
			return watcher.Add(path)
		}
		return nil
	})
	return count, err
}
