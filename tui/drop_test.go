// ABOUTME: Tests for the drop folder watcher
// ABOUTME: Checks batching of new files and that hidden or partial files are skipped

package tui

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func startDropWatcher(t *testing.T, dir string) <-chan []string {
	t.Helper()

	d, err := NewDropWatcher(dir, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewDropWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		_ = d.Close()
	})

	batches := make(chan []string, 4)
	go d.Run(ctx, func(paths []string) { batches <- paths })

	return batches
}

func waitBatch(t *testing.T, batches <-chan []string) []string {
	t.Helper()

	select {
	case b := <-batches:
		return b
	case <-time.After(3 * time.Second):
		t.Fatal("Timed out waiting for drop batch")
		return nil
	}
}

func TestDropWatcherBatchesFiles(t *testing.T) {
	dir := t.TempDir()
	batches := startDropWatcher(t, dir)

	for _, name := range []string{"a.mp3", "b.wav", ".hidden.mp3", "c.mp3.part"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got := waitBatch(t, batches)
	slices.Sort(got)

	want := []string{filepath.Join(dir, "a.mp3"), filepath.Join(dir, "b.wav")}
	if !slices.Equal(got, want) {
		t.Errorf("Batch = %v, want %v", got, want)
	}

	// A later file arrives in its own batch
	if err := os.WriteFile(filepath.Join(dir, "d.mp3"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := waitBatch(t, batches); len(got) != 1 || filepath.Base(got[0]) != "d.mp3" {
		t.Errorf("Second batch = %v, want d.mp3", got)
	}
}

func TestDropWatcherSkipsVanishedFiles(t *testing.T) {
	dir := t.TempDir()
	batches := startDropWatcher(t, dir)

	gone := filepath.Join(dir, "gone.mp3")
	if err := os.WriteFile(gone, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}

	kept := filepath.Join(dir, "kept.mp3")
	if err := os.WriteFile(kept, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := waitBatch(t, batches); !slices.Equal(got, []string{kept}) {
		t.Errorf("Batch = %v, want only kept.mp3", got)
	}
}

func TestDropWatcherEmitsEachFileOnce(t *testing.T) {
	dir := t.TempDir()
	batches := startDropWatcher(t, dir)

	song := filepath.Join(dir, "song.mp3")
	if err := os.WriteFile(song, []byte("part one"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := waitBatch(t, batches); !slices.Equal(got, []string{song}) {
		t.Fatalf("First batch = %v, want song.mp3", got)
	}

	// Writing to a file already uploaded must not upload it again
	f, err := os.OpenFile(song, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}

	_, _ = f.WriteString(" part two")
	_ = f.Close()

	other := filepath.Join(dir, "other.mp3")
	if err := os.WriteFile(other, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := waitBatch(t, batches); !slices.Equal(got, []string{other}) {
		t.Errorf("Second batch = %v, want only other.mp3", got)
	}

	// Removing and dropping the file again counts as a new drop
	if err := os.Remove(song); err != nil {
		t.Fatal(err)
	}

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(song, []byte("again"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := waitBatch(t, batches); !slices.Equal(got, []string{song}) {
		t.Errorf("Third batch = %v, want song.mp3 again", got)
	}
}

func TestNewDropWatcherCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "drop")

	d, err := NewDropWatcher(dir, 0, nil)
	if err != nil {
		t.Fatalf("NewDropWatcher() error = %v", err)
	}
	defer d.Close()

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("Drop dir not created: %v", err)
	}

	if d.Dir() != dir {
		t.Errorf("Dir() = %q", d.Dir())
	}
}
