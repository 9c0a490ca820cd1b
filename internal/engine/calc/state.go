package calc

import "github.com/dshills/calcstorm/internal/store"

// State is the authoritative snapshot of the calculation engine.
//
// Invariant: Operator is set if and only if PreviousValue is non-empty.
// AwaitingOperand is true whenever the next digit input should start a new
// operand rather than append to CurrentValue.
type State struct {
	// CurrentValue is the canonical textual value being edited or the most
	// recent result. Never empty; "0" is the neutral value.
	CurrentValue string

	// PreviousValue is the left operand awaiting an operator's right-hand
	// side. Empty when no operation is pending.
	PreviousValue string

	// Operator is the pending binary operator token, or empty.
	Operator string

	// AwaitingOperand is true immediately after an operator or a computed
	// result, before new digit entry starts a fresh operand.
	AwaitingOperand bool

	// HistoryLabel is the human-readable trace of the in-progress
	// expression, e.g. "5 +" or "5 + 3 =".
	HistoryLabel string

	// MemoryValue is the persisted memory register.
	MemoryValue float64

	// Log is the bounded calculation log, newest first.
	Log []store.LogEntry
}

// initialState returns the neutral engine state.
func initialState() State {
	return State{CurrentValue: "0"}
}

// Clone returns a deep copy of the state.
// History snapshots are clones so entries never alias live state.
func (s State) Clone() State {
	out := s
	if s.Log != nil {
		out.Log = make([]store.LogEntry, len(s.Log))
		copy(out.Log, s.Log)
	}
	return out
}
