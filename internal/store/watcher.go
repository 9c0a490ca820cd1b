package store

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces rapid snapshot rewrites into one reload.
const DefaultDebounce = 200 * time.Millisecond

// ReloadHandler receives snapshots reloaded after an external file change.
type ReloadHandler func(snap Snapshot)

// Watcher monitors a FileStore's snapshot file and reloads it when another
// process rewrites it, so a running engine can pick up externally modified
// memory or history.
type Watcher struct {
	store    *FileStore
	handler  ReloadHandler
	debounce time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the reload debounce interval.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher for the store's snapshot file.
func NewWatcher(store *FileStore, handler ReloadHandler, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		store:    store,
		handler:  handler,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching in a background goroutine until ctx is cancelled
// or Stop is called. The snapshot file's directory is watched rather than
// the file itself so atomic rename-replace saves are observed.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrWatcherRunning
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.store.Path())); err != nil {
		_ = fsw.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.run(ctx, fsw)
	return nil
}

// run is the watch loop: filter events for the snapshot path, debounce,
// reload, hand off to the handler.
func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.done)
	defer fsw.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop() // don't fire until we have events
	pending := false

	target := filepath.Clean(w.store.Path())

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			pending = true
			timer.Reset(w.debounce)

		case _, ok := <-fsw.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; persistence stays best-effort.

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			if snap, ok := w.store.Load(); ok {
				w.handler(snap)
			}
		}
	}
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()
	<-done
}
