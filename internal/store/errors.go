package store

import "errors"

var (
	// errSaveDisabled is returned by a MemStore with FailSaves set.
	errSaveDisabled = errors.New("saving disabled")

	// ErrWatcherRunning is returned when Start is called on a running watcher.
	ErrWatcherRunning = errors.New("snapshot watcher already running")
)
