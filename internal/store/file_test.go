package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testSnapshot() Snapshot {
	return Snapshot{
		MemoryValue: 42.5,
		Log: []LogEntry{
			{ID: "a", Expression: "2 + 3", Result: "5", Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
			{ID: "b", Expression: "sqrt(9)", Result: "3", Timestamp: time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC)},
		},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	fs := NewFileStore(path)

	want := testSnapshot()
	if err := fs.Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, ok := fs.Load()
	if !ok {
		t.Fatal("Load returned ok=false after Save")
	}
	if got.MemoryValue != want.MemoryValue {
		t.Errorf("MemoryValue = %v, want %v", got.MemoryValue, want.MemoryValue)
	}
	if len(got.Log) != len(want.Log) {
		t.Fatalf("Log len = %d, want %d", len(got.Log), len(want.Log))
	}
	for i := range want.Log {
		if got.Log[i] != want.Log[i] {
			t.Errorf("Log[%d] = %+v, want %+v", i, got.Log[i], want.Log[i])
		}
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "absent.json"))

	if _, ok := fs.Load(); ok {
		t.Error("Load of missing file returned ok=true")
	}
}

func TestFileStoreLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := NewFileStore(path)
	if _, ok := fs.Load(); ok {
		t.Error("Load of malformed file returned ok=true")
	}
}

func TestFileStoreLoadPartialDocument(t *testing.T) {
	// Missing log and mistyped memory should degrade to zero values,
	// not errors.
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte(`{"memoryValue":"banana"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := NewFileStore(path)
	snap, ok := fs.Load()
	if !ok {
		t.Fatal("Load returned ok=false for valid JSON")
	}
	if snap.MemoryValue != 0 {
		t.Errorf("MemoryValue = %v, want 0", snap.MemoryValue)
	}
	if len(snap.Log) != 0 {
		t.Errorf("Log len = %d, want 0", len(snap.Log))
	}
}

func TestFileStoreSaveEmptyLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	fs := NewFileStore(path)

	if err := fs.Save(Snapshot{MemoryValue: 7}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	snap, ok := fs.Load()
	if !ok {
		t.Fatal("Load failed")
	}
	if snap.MemoryValue != 7 {
		t.Errorf("MemoryValue = %v, want 7", snap.MemoryValue)
	}
	if snap.Log != nil {
		t.Errorf("Log = %v, want nil", snap.Log)
	}
}

func TestFileStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "snapshot.json")
	fs := NewFileStore(path)

	if err := fs.Save(testSnapshot()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("snapshot file not created: %v", err)
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	fs := NewFileStore(path)

	if err := fs.Save(testSnapshot()); err != nil {
		t.Fatal(err)
	}
	if err := fs.Save(Snapshot{MemoryValue: 1}); err != nil {
		t.Fatal(err)
	}

	snap, ok := fs.Load()
	if !ok {
		t.Fatal("Load failed")
	}
	if snap.MemoryValue != 1 || len(snap.Log) != 0 {
		t.Errorf("overwrite not applied: %+v", snap)
	}
}

func TestSnapshotClone(t *testing.T) {
	orig := testSnapshot()
	clone := orig.Clone()

	clone.Log[0].Result = "changed"
	if orig.Log[0].Result == "changed" {
		t.Error("Clone shares log backing array with original")
	}
}

func TestMemStore(t *testing.T) {
	m := NewMemStore()

	if _, ok := m.Load(); ok {
		t.Error("empty MemStore Load returned ok=true")
	}

	if err := m.Save(testSnapshot()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	snap, ok := m.Load()
	if !ok {
		t.Fatal("Load failed after Save")
	}
	if snap.MemoryValue != 42.5 {
		t.Errorf("MemoryValue = %v, want 42.5", snap.MemoryValue)
	}
}

func TestMemStoreFailSaves(t *testing.T) {
	m := NewMemStore()
	m.FailSaves = true

	if err := m.Save(testSnapshot()); err == nil {
		t.Error("Save succeeded with FailSaves set")
	}
	if _, ok := m.Load(); ok {
		t.Error("failed Save still stored a snapshot")
	}
}
