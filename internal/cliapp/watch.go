package cliapp

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sammcj/depindex/internal/manifest"
	"github.com/sammcj/depindex/internal/project"
	"github.com/sirupsen/logrus"
)

// debounce coalesces a burst of manifest writes (e.g. a package manager
// rewriting a lockfile in several passes) into one update.
const debounce = 500 * time.Millisecond

// watchAndUpdate watches every discovered manifest file for writes and
// reruns the update operation on each debounced change, until ctx is
// cancelled.
func watchAndUpdate(ctx context.Context, logger *logrus.Logger) error {
	a, err := openInitialised(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := addManifestDirs(watcher, a.Root, logger); err != nil {
		return err
	}

	runUpdate := func() {
		deps, err := project.Scan(a.Root, logger)
		if err != nil {
			if logger != nil {
				logger.WithError(err).Warn("watch: scan failed")
			}
			return
		}
		if err := indexAll(ctx, a, logger, deps); err != nil && logger != nil {
			logger.WithError(err).Warn("watch: update failed")
		}
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
				continue
			}
			if !isManifestFile(event.Name) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, runUpdate)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if logger != nil {
				logger.WithError(err).Warn("watch: watcher error")
			}
		}
	}
}

func isManifestFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range manifest.ManifestNames {
		if base == name {
			return true
		}
	}
	return false
}

func addManifestDirs(watcher *fsnotify.Watcher, root string, logger *logrus.Logger) error {
	roots, err := manifest.Discover(root, logger)
	if err != nil {
		return fmt.Errorf("watch: discover manifests: %w", err)
	}
	if err := watcher.Add(root); err != nil && logger != nil {
		logger.WithError(err).Warn("watch: failed to watch project root")
	}
	for _, r := range roots {
		if err := watcher.Add(r.Path); err != nil && logger != nil {
			logger.WithFields(logrus.Fields{"dir": r.Path, "error": err.Error()}).Warn("watch: failed to watch manifest directory")
		}
	}
	return nil
}
