// Package watch reloads authored content when rule or grammar files
// change on disk. It batches rapid saves with a debounce window so an
// editor writing temp files does not trigger a reload per keystroke.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher observes the rules/ and grammars/ subdirectories of a data
// directory and invokes a callback once per settled burst of changes.
type Watcher struct {
	fsw       *fsnotify.Watcher
	dir       string
	onChange  func()
	debounce  time.Duration
	logger    *slog.Logger
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a watcher over dir. onChange runs on the watcher's
// goroutine after changes settle, so it must not block for long.
func New(dir string, onChange func(), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		dir:      dir,
		onChange: onChange,
		debounce: defaultDebounce,
		logger:   logger,
		done:     make(chan struct{}),
	}

	// Watch the root too: rules/ or grammars/ may not exist yet, and
	// the create event for them arrives on the parent.
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	for _, sub := range []string{"rules", "grammars"} {
		path := filepath.Join(dir, sub)
		if err := fsw.Add(path); err != nil {
			logger.Debug("Subdirectory not watched yet", "path", path, "error", err)
		}
	}
	return w, nil
}

// WithDebounce overrides the settle window. Call before Start.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// Start begins delivering change notifications until the context is
// cancelled or Close is called. Call it once.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("Failed to close file watcher", "error", err)
		}
	})
}

func (w *Watcher) run(ctx context.Context) {
	var timer *time.Timer
	var settled <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("Authored content changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				settled = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", "error", err)
		case <-settled:
			timer = nil
			settled = nil
			w.onChange()
		}
	}
}

// relevant reports whether an event should trigger a reload. JSON
// files count; so do new directories, which are also added to the
// watch list because fsnotify does not recurse.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if strings.HasSuffix(event.Name, ".json") {
		return true
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
			}
			return true
		}
	}
	return false
}
