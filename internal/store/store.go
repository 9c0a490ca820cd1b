// Package store provides the persistence boundary for the calculator's
// durable state: the memory register and the calculation log.
//
// The engine treats persistence as an injected capability. A failed save
// degrades silently to in-memory-only operation; a failed or missing load
// yields the zeroed default snapshot, never an error.
package store

import "time"

// LogEntry is one completed calculation, as persisted.
type LogEntry struct {
	ID         string
	Expression string
	Result     string
	Timestamp  time.Time
}

// Snapshot is the durable portion of engine state.
// It is a plain serializable structure so any storage backend can hold it.
type Snapshot struct {
	MemoryValue float64
	Log         []LogEntry
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{MemoryValue: s.MemoryValue}
	if s.Log != nil {
		out.Log = make([]LogEntry, len(s.Log))
		copy(out.Log, s.Log)
	}
	return out
}

// Gateway is the load/save capability the engine consumes.
//
// Load is called once during engine initialization; ok is false when no
// usable snapshot exists. Save is called write-through after every mutation
// of memory or the log; its error is advisory and callers must treat a
// failure as non-fatal.
type Gateway interface {
	Load() (snap Snapshot, ok bool)
	Save(snap Snapshot) error
}
