package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

func newTestWatcher(t *testing.T, dir string) (*Watcher, <-chan struct{}) {
	t.Helper()
	events := make(chan struct{}, 8)
	w, err := New(dir, func() { events <- struct{}{} }, noopLogger)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(w.Close)
	w.WithDebounce(100 * time.Millisecond)
	w.Start(context.Background())
	return w, events
}

func writeJSON(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(`{}`), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func expectChange(t *testing.T, events <-chan struct{}) {
	t.Helper()
	select {
	case <-events:
	case <-time.After(3 * time.Second):
		t.Fatalf("expected a change notification, got none")
	}
}

func expectQuiet(t *testing.T, events <-chan struct{}, window time.Duration) {
	t.Helper()
	select {
	case <-events:
		t.Fatalf("unexpected change notification")
	case <-time.After(window):
	}
}

func TestWatcherBatchesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	rulesDir := filepath.Join(dir, "rules")
	if err := os.MkdirAll(rulesDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, events := newTestWatcher(t, dir)

	writeJSON(t, rulesDir, "a.json")
	writeJSON(t, rulesDir, "b.json")
	writeJSON(t, rulesDir, "c.json")

	expectChange(t, events)
	expectQuiet(t, events, 500*time.Millisecond)
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	rulesDir := filepath.Join(dir, "rules")
	if err := os.MkdirAll(rulesDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	_, events := newTestWatcher(t, dir)

	if err := os.WriteFile(filepath.Join(rulesDir, "notes.txt"), []byte("scratch"), 0o644); err != nil {
		t.Fatalf("writing notes.txt: %v", err)
	}

	expectQuiet(t, events, 400*time.Millisecond)
}

func TestWatcherPicksUpNewSubdirectory(t *testing.T) {
	dir := t.TempDir()

	_, events := newTestWatcher(t, dir)

	grammarsDir := filepath.Join(dir, "grammars")
	if err := os.MkdirAll(grammarsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	expectChange(t, events)

	writeJSON(t, grammarsDir, "dawn.json")
	expectChange(t, events)
}

func TestWatcherCloseStopsDelivery(t *testing.T) {
	dir := t.TempDir()
	rulesDir := filepath.Join(dir, "rules")
	if err := os.MkdirAll(rulesDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	w, events := newTestWatcher(t, dir)
	w.Close()
	w.Close()

	writeJSON(t, rulesDir, "late.json")
	expectQuiet(t, events, 400*time.Millisecond)
}
