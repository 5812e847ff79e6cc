package main

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// watchDebounce is the quiet period after the last change before the
// analysis runs again.
const watchDebounce = 250 * time.Millisecond

// watchDir calls run after files under dir change, until ctx is done.
//
// Directories created while watching are watched too. A burst of events
// triggers a single run, and runs never overlap.
func watchDir(ctx context.Context, dir string, logger zerolog.Logger, run func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addTree(watcher, dir); err != nil {
		return err
	}
	logger.Info().Str("dir", dir).Msg("watching for changes")

	var mu sync.Mutex
	debounced := debounce.New(watchDebounce)
	trigger := func() {
		debounced(func() {
			mu.Lock()
			defer mu.Unlock()
			if ctx.Err() == nil {
				run()
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addTree(watcher, event.Name); err != nil {
						logger.Warn().Err(err).Str("dir", event.Name).Msg("cannot watch directory")
					}
				}
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("change detected")
			trigger()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watch error")
		}
	}
}

// addTree watches root and every directory below it.
func addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
