package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnExternalSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	fs := NewFileStore(path)
	if err := fs.Save(Snapshot{MemoryValue: 1}); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan Snapshot, 1)
	w := NewWatcher(fs, func(snap Snapshot) {
		select {
		case reloaded <- snap:
		default:
		}
	}, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	// Simulate another process rewriting the snapshot.
	external := NewFileStore(path)
	if err := external.Save(Snapshot{MemoryValue: 99}); err != nil {
		t.Fatal(err)
	}

	select {
	case snap := <-reloaded:
		if snap.MemoryValue != 99 {
			t.Errorf("reloaded MemoryValue = %v, want 99", snap.MemoryValue)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the external change")
	}
}

func TestWatcherStartTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	fs := NewFileStore(path)
	if err := fs.Save(Snapshot{}); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(fs, func(Snapshot) {})

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := w.Start(ctx); err != ErrWatcherRunning {
		t.Errorf("second Start err = %v, want ErrWatcherRunning", err)
	}
}

func TestWatcherStopIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	w := NewWatcher(NewFileStore(path), func(Snapshot) {})

	// Stop before Start is a no-op.
	w.Stop()

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	w.Stop()
	w.Stop()
}
