// ABOUTME: Hot reload of the config file while the client is running
// ABOUTME: Coalesces bursts of filesystem events before re-reading the TOML file

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

const reloadQuiescence = 150 * time.Millisecond

// Watch reloads path into shared whenever the file changes, until ctx is done.
// The parent directory is watched so editors that replace the file atomically are seen.
// onReload, if non-nil, receives the outcome of every reload attempt.
func Watch(ctx context.Context, path string, shared *SharedConfig, onReload func(Config, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	reload := func() {
		cfg, err := LoadConfig(path)
		if err == nil {
			shared.Update(cfg)
		}

		if onReload != nil {
			onReload(cfg, err)
		}
	}

	debounced := debounce.New(reloadQuiescence)
	target := filepath.Clean(path)

	go func() {
		defer func() { _ = watcher.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if filepath.Clean(event.Name) != target {
					continue
				}

				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					debounced(reload)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}

				if onReload != nil {
					onReload(shared.Get(), fmt.Errorf("config watcher: %w", err))
				}
			}
		}
	}()

	return nil
}
