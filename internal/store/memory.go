package store

import "sync"

// MemStore is an in-memory Gateway.
// Useful for tests and for running the engine without durable storage.
type MemStore struct {
	mu     sync.Mutex
	snap   Snapshot
	loaded bool

	// FailSaves forces Save to return an error, for exercising the
	// engine's silent-degradation path.
	FailSaves bool
	saveErr   error
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{saveErr: errSaveDisabled}
}

// NewMemStoreWith creates an in-memory store pre-seeded with a snapshot,
// as if a previous session had saved it.
func NewMemStoreWith(snap Snapshot) *MemStore {
	return &MemStore{snap: snap.Clone(), loaded: true, saveErr: errSaveDisabled}
}

// Load returns the stored snapshot, if any.
func (m *MemStore) Load() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return Snapshot{}, false
	}
	return m.snap.Clone(), true
}

// Save stores a copy of the snapshot.
func (m *MemStore) Save(snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves {
		return m.saveErr
	}
	m.snap = snap.Clone()
	m.loaded = true
	return nil
}

// Last returns the most recently saved snapshot.
func (m *MemStore) Last() (Snapshot, bool) {
	return m.Load()
}
