// Package history records reversible engine operations.
//
// Unlike a paired undo/redo stack, the history is a linear sequence with a
// cursor: executing a new command after undoing discards everything past the
// cursor. Undo restores the full state snapshot a command captured before it
// ran, so restoration never fails.
package history

import (
	"sync"
	"time"
)

// DefaultMaxEntries bounds the history depth.
const DefaultMaxEntries = 50

// Command pairs a state snapshot taken before a mutation with the action
// that re-executes it. Commands are owned by the History that runs them.
type Command[S any] struct {
	// Name is a human-readable description of the action.
	Name string

	// Before is the deep state snapshot captured before Apply runs.
	Before S

	// Apply performs the forward action.
	Apply func() error

	// Timestamp records when the command was created.
	Timestamp time.Time
}

// NewCommand creates a command from a pre-mutation snapshot and its
// forward action.
func NewCommand[S any](name string, before S, apply func() error) *Command[S] {
	return &Command[S]{
		Name:      name,
		Before:    before,
		Apply:     apply,
		Timestamp: time.Now(),
	}
}

// EntryInfo provides read-only info about a recorded command.
type EntryInfo struct {
	Name      string
	Timestamp time.Time
}

// History manages the bounded, linear command sequence.
// The restore callback re-installs a snapshot during undo.
type History[S any] struct {
	mu         sync.Mutex
	restore    func(S)
	commands   []*Command[S]
	cursor     int // index of the last executed command; -1 when empty
	maxEntries int
}

// New creates a history that restores snapshots through the given callback.
// maxEntries <= 0 selects DefaultMaxEntries.
func New[S any](restore func(S), maxEntries int) *History[S] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &History[S]{
		restore:    restore,
		cursor:     -1,
		maxEntries: maxEntries,
	}
}

// Execute runs the command's forward action and records it.
// Any entries beyond the cursor (undone commands) are discarded first; if
// the action fails, nothing is recorded. When the depth exceeds the cap,
// the oldest entry is evicted and the cursor decremented to stay valid.
func (h *History[S]) Execute(cmd *Command[S]) error {
	if err := cmd.Apply(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Truncate the undone tail; branching history is not supported.
	h.commands = h.commands[:h.cursor+1]
	h.commands = append(h.commands, cmd)
	h.cursor++

	if len(h.commands) > h.maxEntries {
		excess := len(h.commands) - h.maxEntries
		h.commands = h.commands[excess:]
		h.cursor -= excess
	}
	return nil
}

// Undo restores the snapshot captured by the command at the cursor and
// steps the cursor back. It returns false, mutating nothing, when there
// is nothing to undo.
func (h *History[S]) Undo() bool {
	h.mu.Lock()
	if h.cursor < 0 {
		h.mu.Unlock()
		return false
	}
	cmd := h.commands[h.cursor]
	h.cursor--
	h.mu.Unlock()

	// Restore outside the lock; the callback may re-enter history accessors.
	h.restore(cmd.Before)
	return true
}

// CanUndo returns true if at least one command can be undone.
func (h *History[S]) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor >= 0
}

// Len returns the number of recorded commands, including undone ones
// still ahead of the cursor.
func (h *History[S]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.commands)
}

// UndoCount returns the number of undo operations available.
func (h *History[S]) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor + 1
}

// Entries returns info about recorded commands, oldest first.
func (h *History[S]) Entries() []EntryInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]EntryInfo, len(h.commands))
	for i, cmd := range h.commands {
		result[i] = EntryInfo{Name: cmd.Name, Timestamp: cmd.Timestamp}
	}
	return result
}

// Clear removes all recorded commands.
func (h *History[S]) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = nil
	h.cursor = -1
}

// MaxEntries returns the history depth cap.
func (h *History[S]) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}
