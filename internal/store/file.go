package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Snapshot document field paths.
const (
	fieldMemory = "memoryValue"
	fieldLog    = "calculationLog"
)

// FileStore persists snapshots as a JSON document on disk.
// Writes go through a temp file and rename so a crash mid-save never
// leaves a truncated snapshot.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a file-backed Gateway at the given path.
// The parent directory is created on the first save if needed.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the snapshot file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads and decodes the snapshot file.
// A missing, unreadable, or malformed file yields (zero, false): recovery
// always falls back to defaults rather than failing initialization.
func (f *FileStore) Load() (Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return Snapshot{}, false
	}
	if !gjson.ValidBytes(data) {
		return Snapshot{}, false
	}
	return decodeSnapshot(data), true
}

// Save encodes and writes the snapshot atomically.
func (f *FileStore) Save(snap Snapshot) error {
	doc, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write([]byte(doc)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// encodeSnapshot builds the JSON document for a snapshot.
func encodeSnapshot(snap Snapshot) (string, error) {
	doc, err := sjson.Set("{}", fieldMemory, snap.MemoryValue)
	if err != nil {
		return "", err
	}

	// Materialize the log array even when empty so the document shape
	// stays stable across backends.
	doc, err = sjson.SetRaw(doc, fieldLog, "[]")
	if err != nil {
		return "", err
	}
	for i, entry := range snap.Log {
		prefix := fieldLog + "." + strconv.Itoa(i)
		if doc, err = sjson.Set(doc, prefix+".id", entry.ID); err != nil {
			return "", err
		}
		if doc, err = sjson.Set(doc, prefix+".expression", entry.Expression); err != nil {
			return "", err
		}
		if doc, err = sjson.Set(doc, prefix+".result", entry.Result); err != nil {
			return "", err
		}
		if doc, err = sjson.Set(doc, prefix+".timestamp", entry.Timestamp.Format(time.RFC3339Nano)); err != nil {
			return "", err
		}
	}
	return doc, nil
}

// decodeSnapshot reads a snapshot out of a JSON document.
// Missing or mistyped fields decode to their zero values so a partially
// damaged snapshot still recovers what it can.
func decodeSnapshot(data []byte) Snapshot {
	snap := Snapshot{
		MemoryValue: gjson.GetBytes(data, fieldMemory).Float(),
	}

	gjson.GetBytes(data, fieldLog).ForEach(func(_, item gjson.Result) bool {
		entry := LogEntry{
			ID:         item.Get("id").String(),
			Expression: item.Get("expression").String(),
			Result:     item.Get("result").String(),
		}
		if ts, err := time.Parse(time.RFC3339Nano, item.Get("timestamp").String()); err == nil {
			entry.Timestamp = ts
		}
		snap.Log = append(snap.Log, entry)
		return true
	})

	return snap
}
