// ABOUTME: Drop folder watcher feeding new files into the upload list
// ABOUTME: Collects filesystem events and emits one batch once the folder goes quiet

package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// DefaultDropQuiet is how long the drop folder must stay quiet before a batch is emitted
const DefaultDropQuiet = 300 * time.Millisecond

// DropWatcher turns files landing in a directory into upload batches
type DropWatcher struct {
	dir     string
	watcher *fsnotify.Watcher
	flush   func(func())
	debugf  func(string, ...interface{})

	mu      sync.Mutex
	pending []string
	seen    map[string]bool // emitted or pending; cleared only when the file leaves the folder
}

// NewDropWatcher starts watching dir. The directory is created when missing.
func NewDropWatcher(dir string, quiet time.Duration, debugf func(string, ...interface{})) (*DropWatcher, error) {
	if debugf == nil {
		debugf = func(string, ...interface{}) {}
	}

	if quiet <= 0 {
		quiet = DefaultDropQuiet
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create drop folder: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch drop folder: %w", err)
	}

	return &DropWatcher{
		dir:     dir,
		watcher: watcher,
		flush:   debounce.New(quiet),
		debugf:  debugf,
		seen:    make(map[string]bool),
	}, nil
}

// Dir returns the watched directory
func (d *DropWatcher) Dir() string {
	return d.dir
}

// Run delivers batches of new file paths to emit until ctx is done or the watcher closes
func (d *DropWatcher) Run(ctx context.Context, emit func(paths []string)) {
	send := func() {
		if batch := d.take(); len(batch) > 0 {
			d.debugf("[DROP] %d file(s) dropped", len(batch))
			emit(batch)
		}
	}

	for {
		select {
		case <-ctx.Done():
			d.flush(func() {})
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				d.forget(event.Name)
				continue
			}

			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || hidden(event.Name) {
				continue
			}

			if d.add(event.Name) {
				d.flush(send)
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}

			d.debugf("[DROP] watcher error: %v", err)
		}
	}
}

// Close stops the underlying watcher
func (d *DropWatcher) Close() error {
	return d.watcher.Close()
}

// add queues path, reporting whether anything is pending
func (d *DropWatcher) add(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.seen[path] {
		d.seen[path] = true
		d.pending = append(d.pending, path)
	}

	return len(d.pending) > 0
}

// forget lets path be dropped again after it left the folder
func (d *DropWatcher) forget(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.seen, path)
}

// take drains the pending batch. Paths that were removed before the folder went quiet are skipped.
// Emitted paths stay seen, so later writes to the same file do not upload it twice.
func (d *DropWatcher) take() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	batch := make([]string, 0, len(d.pending))

	for _, path := range d.pending {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			batch = append(batch, path)
		} else {
			delete(d.seen, path)
		}
	}

	d.pending = nil

	return batch
}

func hidden(path string) bool {
	name := filepath.Base(path)

	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".part") || strings.HasSuffix(name, "~")
}
