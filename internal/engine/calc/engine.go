// Package calc implements the calculation state engine: the in-memory model
// of the current computation, operation dispatch, reversible commands, and
// change propagation to dependent subsystems.
//
// The engine owns its State exclusively. External layers read through
// accessors or subscribe to change topics; every mutating operation
// publishes synchronously after applying the mutation and persisting the
// durable fields (memory register and calculation log) write-through.
package calc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/calcstorm/internal/engine/history"
	"github.com/dshills/calcstorm/internal/engine/operation"
	"github.com/dshills/calcstorm/internal/event"
	"github.com/dshills/calcstorm/internal/event/topic"
	"github.com/dshills/calcstorm/internal/store"
)

// Defaults for the engine's bounded collections.
const (
	// DefaultMaxLogEntries caps the calculation log.
	DefaultMaxLogEntries = 100

	// maxOperandLen caps the character length of an operand being edited.
	maxOperandLen = 15
)

// Logger is the logging surface the engine uses.
// *app.Logger satisfies it; the default is a no-op.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// pendingEvent is a change notification queued during a mutation and
// published after the engine lock is released.
type pendingEvent struct {
	topic   topic.Topic
	payload any
}

// Engine is the calculation state machine.
//
// It composes the operation registry, the command history, the change bus,
// and the persistence gateway. All methods are safe for concurrent use,
// though the intended model is a single caller with synchronous dispatch.
type Engine struct {
	mu    sync.Mutex
	state State

	ops     *operation.Registry
	hist    *history.History[State]
	bus     *event.Bus
	gateway store.Gateway
	logger  Logger

	maxUndoEntries int
	maxLogEntries  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegistry sets the operation registry.
func WithRegistry(r *operation.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.ops = r
		}
	}
}

// WithBus sets the change bus.
func WithBus(b *event.Bus) Option {
	return func(e *Engine) {
		if b != nil {
			e.bus = b
		}
	}
}

// WithGateway sets the persistence gateway.
func WithGateway(g store.Gateway) Option {
	return func(e *Engine) {
		if g != nil {
			e.gateway = g
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMaxUndoEntries sets the undo history depth cap.
func WithMaxUndoEntries(n int) Option {
	return func(e *Engine) {
		e.maxUndoEntries = n
	}
}

// WithMaxLogEntries sets the calculation log cap.
func WithMaxLogEntries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxLogEntries = n
		}
	}
}

// New creates an engine, recovering durable state from the gateway.
// Load is called exactly once here; a missing or failed load yields the
// default zeroed state.
func New(opts ...Option) *Engine {
	e := &Engine{
		ops:           operation.NewRegistry(),
		bus:           event.NewBus(),
		gateway:       store.NewMemStore(),
		logger:        nopLogger{},
		maxLogEntries: DefaultMaxLogEntries,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.state = initialState()
	if snap, ok := e.gateway.Load(); ok {
		e.state.MemoryValue = snap.MemoryValue
		e.state.Log = cloneLog(snap.Log)
		if len(e.state.Log) > e.maxLogEntries {
			e.state.Log = e.state.Log[:e.maxLogEntries]
		}
		e.logger.Debug("recovered snapshot: memory=%v log=%d entries", snap.MemoryValue, len(snap.Log))
	}

	// The restore callback runs inside Undo while e.mu is held.
	e.hist = history.New(func(s State) {
		e.state = s.Clone()
	}, e.maxUndoEntries)

	return e
}

// run executes a mutation as a reversible command.
// Callers must hold e.mu; the snapshot is captured before apply runs, and
// a failing apply records nothing.
func (e *Engine) run(name string, apply func() error) error {
	return e.hist.Execute(history.NewCommand(name, e.state.Clone(), apply))
}

// publish delivers queued change events outside the engine lock so
// handlers may call back into accessors.
func (e *Engine) publish(events []pendingEvent) {
	ctx := context.Background()
	for _, ev := range events {
		if err := e.bus.Publish(ctx, ev.topic, ev.payload); err != nil {
			e.logger.Warn("publish %s: %v", ev.topic, err)
		}
	}
}

// save writes durable state through the gateway.
// Failures degrade silently to in-memory-only operation.
func (e *Engine) save(snap store.Snapshot) {
	if err := e.gateway.Save(snap); err != nil {
		e.logger.Warn("snapshot save failed, continuing in-memory: %v", err)
	}
}

// durableSnapshotLocked copies the persisted portion of state.
func (e *Engine) durableSnapshotLocked() store.Snapshot {
	return store.Snapshot{
		MemoryValue: e.state.MemoryValue,
		Log:         cloneLog(e.state.Log),
	}
}

// appendLogLocked prepends a completed calculation, evicting the oldest
// entry past the cap. The log is newest first.
func (e *Engine) appendLogLocked(expression, result string) {
	entry := store.LogEntry{
		ID:         uuid.NewString(),
		Expression: expression,
		Result:     result,
		Timestamp:  time.Now(),
	}
	e.state.Log = append([]store.LogEntry{entry}, e.state.Log...)
	if len(e.state.Log) > e.maxLogEntries {
		e.state.Log = e.state.Log[:e.maxLogEntries]
	}
}

// ----------------------------------------------------------------------
// Input operations
// ----------------------------------------------------------------------

// InputDigit appends a digit to the operand being edited, or starts a
// fresh operand after an operator or result. Input that would push the
// operand past the length cap is rejected with state unchanged.
func (e *Engine) InputDigit(d rune) error {
	if d < '0' || d > '9' {
		return fmt.Errorf("digit %q: %w", d, ErrInputRejected)
	}

	e.mu.Lock()
	s := e.state
	if !s.AwaitingOperand && s.CurrentValue != "0" && len(s.CurrentValue) >= maxOperandLen {
		e.mu.Unlock()
		return fmt.Errorf("operand longer than %d characters: %w", maxOperandLen, ErrInputRejected)
	}

	var value string
	err := e.run("digit "+string(d), func() error {
		st := &e.state
		switch {
		case st.AwaitingOperand:
			st.CurrentValue = string(d)
			st.AwaitingOperand = false
		case st.CurrentValue == "0":
			st.CurrentValue = string(d)
		default:
			st.CurrentValue += string(d)
		}
		value = st.CurrentValue
		return nil
	})
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.publish([]pendingEvent{{TopicValueChanged, value}})
	return nil
}

// InputDecimalPoint starts or continues a fractional operand.
// A second decimal point in the same operand is ignored.
func (e *Engine) InputDecimalPoint() error {
	e.mu.Lock()
	if !e.state.AwaitingOperand && strings.Contains(e.state.CurrentValue, ".") {
		e.mu.Unlock()
		return nil
	}

	var value string
	err := e.run("decimal point", func() error {
		st := &e.state
		if st.AwaitingOperand {
			st.CurrentValue = "0."
			st.AwaitingOperand = false
		} else {
			st.CurrentValue += "."
		}
		value = st.CurrentValue
		return nil
	})
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.publish([]pendingEvent{{TopicValueChanged, value}})
	return nil
}

// InputOperator queues a binary operator. If an operation is already
// pending and its right operand has been entered, the pending operation
// is evaluated first, chaining results left to right with no precedence.
func (e *Engine) InputOperator(op string) error {
	e.mu.Lock()
	if !e.ops.Has(operation.StrategyBasic, op) {
		e.mu.Unlock()
		return fmt.Errorf("operator %q: %w", op, operation.ErrUnknownOperation)
	}

	var events []pendingEvent
	err := e.run("operator "+op, func() error {
		st := &e.state
		if st.PreviousValue != "" && st.Operator != "" && !st.AwaitingOperand {
			a, err := parseValue(st.PreviousValue)
			if err != nil {
				return err
			}
			b, err := parseValue(st.CurrentValue)
			if err != nil {
				return err
			}
			result, err := e.ops.Apply(operation.StrategyBasic, st.Operator, a, b)
			if err != nil {
				return err
			}
			formatted, err := formatNumber(result)
			if err != nil {
				return err
			}
			st.CurrentValue = formatted
			st.PreviousValue = formatted
			events = append(events, pendingEvent{TopicValueChanged, formatted})
		} else {
			st.PreviousValue = st.CurrentValue
		}
		st.Operator = op
		st.AwaitingOperand = true
		st.HistoryLabel = st.PreviousValue + " " + op
		return nil
	})
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.publish(events)
	return nil
}

// Evaluate computes the pending binary operation, logs it, and replaces
// the current value with the formatted result. With nothing pending it is
// a no-op, which makes a second consecutive Evaluate call idempotent.
// A failing evaluation leaves state unchanged.
func (e *Engine) Evaluate() error {
	e.mu.Lock()
	if e.state.Operator == "" || e.state.PreviousValue == "" {
		e.mu.Unlock()
		return nil
	}

	var events []pendingEvent
	var snap store.Snapshot
	err := e.run("evaluate", func() error {
		st := &e.state
		a, err := parseValue(st.PreviousValue)
		if err != nil {
			return err
		}
		b, err := parseValue(st.CurrentValue)
		if err != nil {
			return err
		}
		result, err := e.ops.Apply(operation.StrategyBasic, st.Operator, a, b)
		if err != nil {
			return err
		}
		formatted, err := formatNumber(result)
		if err != nil {
			return err
		}

		expression := st.PreviousValue + " " + st.Operator + " " + st.CurrentValue
		st.CurrentValue = formatted
		st.PreviousValue = ""
		st.Operator = ""
		st.AwaitingOperand = true
		st.HistoryLabel = expression + " ="
		e.appendLogLocked(expression, formatted)

		events = append(events,
			pendingEvent{TopicValueChanged, formatted},
			pendingEvent{TopicHistoryUpdated, cloneLog(st.Log)},
		)
		return nil
	})
	if err == nil {
		snap = e.durableSnapshotLocked()
	}
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.save(snap)
	e.publish(events)
	return nil
}

// EvaluateScientific applies a unary scientific function to the current
// value, or substitutes a constant for "pi" and "e". The logged
// expression records the operand as it was before evaluation.
func (e *Engine) EvaluateScientific(fn string) error {
	e.mu.Lock()

	var events []pendingEvent
	var snap store.Snapshot
	err := e.run("scientific "+fn, func() error {
		st := &e.state

		var result float64
		var expression string
		if v, ok := operation.Constant(fn); ok {
			result = v
			expression = fn
		} else {
			operand, err := parseValue(st.CurrentValue)
			if err != nil {
				return err
			}
			r, err := e.ops.Apply(operation.StrategyScientific, fn, operand)
			if err != nil {
				return err
			}
			result = r
			expression = fn + "(" + st.CurrentValue + ")"
		}

		formatted, err := formatNumber(result)
		if err != nil {
			return err
		}

		st.CurrentValue = formatted
		st.AwaitingOperand = true
		st.HistoryLabel = expression + " ="
		e.appendLogLocked(expression, formatted)

		events = append(events,
			pendingEvent{TopicValueChanged, formatted},
			pendingEvent{TopicHistoryUpdated, cloneLog(st.Log)},
		)
		return nil
	})
	if err == nil {
		snap = e.durableSnapshotLocked()
	}
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.save(snap)
	e.publish(events)
	return nil
}

// Reset restores the neutral editing state.
// The memory register and calculation log are untouched.
func (e *Engine) Reset() error {
	e.mu.Lock()
	var events []pendingEvent
	err := e.run("reset", func() error {
		prior := e.state.Clone()
		st := &e.state
		st.CurrentValue = "0"
		st.PreviousValue = ""
		st.Operator = ""
		st.HistoryLabel = ""
		st.AwaitingOperand = false

		events = append(events,
			pendingEvent{TopicStateReset, prior},
			pendingEvent{TopicValueChanged, st.CurrentValue},
		)
		return nil
	})
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.publish(events)
	return nil
}

// DeleteLastDigit removes the last character of the current value,
// resetting to "0" when a single character remains.
func (e *Engine) DeleteLastDigit() error {
	e.mu.Lock()
	if e.state.CurrentValue == "0" {
		e.mu.Unlock()
		return nil
	}

	var value string
	err := e.run("delete digit", func() error {
		st := &e.state
		if len(st.CurrentValue) <= 1 {
			st.CurrentValue = "0"
		} else {
			st.CurrentValue = st.CurrentValue[:len(st.CurrentValue)-1]
			if st.CurrentValue == "-" {
				st.CurrentValue = "0"
			}
		}
		value = st.CurrentValue
		return nil
	})
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.publish([]pendingEvent{{TopicValueChanged, value}})
	return nil
}

// ----------------------------------------------------------------------
// Memory register
// ----------------------------------------------------------------------

// MemoryStore stores the current value in the memory register.
func (e *Engine) MemoryStore() error {
	return e.mutateMemory("memory store", func(current float64, _ float64) float64 {
		return current
	})
}

// MemoryAdd adds the current value to the memory register.
func (e *Engine) MemoryAdd() error {
	return e.mutateMemory("memory add", func(current, memory float64) float64 {
		return memory + current
	})
}

// MemorySubtract subtracts the current value from the memory register.
func (e *Engine) MemorySubtract() error {
	return e.mutateMemory("memory subtract", func(current, memory float64) float64 {
		return memory - current
	})
}

// MemoryClear resets the memory register to zero.
func (e *Engine) MemoryClear() error {
	return e.mutateMemory("memory clear", func(_, _ float64) float64 {
		return 0
	})
}

// mutateMemory applies a register mutation, persists it, and publishes
// the memory-changed topic.
func (e *Engine) mutateMemory(name string, next func(current, memory float64) float64) error {
	e.mu.Lock()

	var memory float64
	err := e.run(name, func() error {
		st := &e.state
		current, err := parseValue(st.CurrentValue)
		if err != nil {
			return err
		}
		st.MemoryValue = next(current, st.MemoryValue)
		memory = st.MemoryValue
		return nil
	})
	var snap store.Snapshot
	if err == nil {
		snap = e.durableSnapshotLocked()
	}
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.save(snap)
	e.publish([]pendingEvent{{TopicMemoryChanged, memory}})
	return nil
}

// MemoryRecall replaces the current value with the memory register.
func (e *Engine) MemoryRecall() error {
	e.mu.Lock()

	var value string
	err := e.run("memory recall", func() error {
		st := &e.state
		formatted, err := formatNumber(st.MemoryValue)
		if err != nil {
			return err
		}
		st.CurrentValue = formatted
		st.AwaitingOperand = false
		value = formatted
		return nil
	})
	e.mu.Unlock()

	if err != nil {
		return err
	}
	e.publish([]pendingEvent{{TopicValueChanged, value}})
	return nil
}

// ----------------------------------------------------------------------
// Undo
// ----------------------------------------------------------------------

// Undo restores the state captured before the most recent command.
// It returns false, mutating nothing, when there is nothing to undo.
// Restoration republishes the affected topics and re-saves durable state
// so persistence stays consistent with what the caller now sees.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	prior := e.state.Clone()
	if !e.hist.Undo() {
		e.mu.Unlock()
		return false
	}
	restored := e.state.Clone()
	snap := e.durableSnapshotLocked()
	e.mu.Unlock()

	e.save(snap)

	events := []pendingEvent{{TopicValueChanged, restored.CurrentValue}}
	if prior.MemoryValue != restored.MemoryValue {
		events = append(events, pendingEvent{TopicMemoryChanged, restored.MemoryValue})
	}
	if !logsEqual(prior.Log, restored.Log) {
		events = append(events, pendingEvent{TopicHistoryUpdated, cloneLog(restored.Log)})
	}
	e.publish(events)
	return true
}

// CanUndo returns true if at least one command can be undone.
func (e *Engine) CanUndo() bool {
	return e.hist.CanUndo()
}

// UndoEntries returns info about recorded commands, oldest first.
func (e *Engine) UndoEntries() []history.EntryInfo {
	return e.hist.Entries()
}

// ----------------------------------------------------------------------
// External snapshot adoption
// ----------------------------------------------------------------------

// AdoptSnapshot merges an externally loaded snapshot into the engine,
// publishing only the topics whose state actually changed. A snapshot
// matching current durable state is a no-op, so a watcher observing the
// engine's own write-through saves produces no redundant events. It does
// not re-save (the snapshot just came from storage) and is not undoable.
func (e *Engine) AdoptSnapshot(snap store.Snapshot) {
	e.mu.Lock()
	newLog := cloneLog(snap.Log)
	if len(newLog) > e.maxLogEntries {
		newLog = newLog[:e.maxLogEntries]
	}

	memoryChanged := e.state.MemoryValue != snap.MemoryValue
	logChanged := !logsEqual(e.state.Log, newLog)
	if !memoryChanged && !logChanged {
		e.mu.Unlock()
		return
	}

	e.state.MemoryValue = snap.MemoryValue
	e.state.Log = newLog
	memory := e.state.MemoryValue
	logCopy := cloneLog(e.state.Log)
	e.mu.Unlock()

	var events []pendingEvent
	if memoryChanged {
		events = append(events, pendingEvent{TopicMemoryChanged, memory})
	}
	if logChanged {
		events = append(events, pendingEvent{TopicHistoryUpdated, logCopy})
	}
	e.publish(events)
}

// ----------------------------------------------------------------------
// Accessors
// ----------------------------------------------------------------------

// CurrentValue returns the value being edited or the most recent result.
func (e *Engine) CurrentValue() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.CurrentValue
}

// PreviousValue returns the pending left operand, or empty.
func (e *Engine) PreviousValue() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.PreviousValue
}

// Operator returns the pending operator token, or empty.
func (e *Engine) Operator() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Operator
}

// AwaitingOperand returns true when the next digit starts a new operand.
func (e *Engine) AwaitingOperand() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.AwaitingOperand
}

// HistoryLabel returns the human-readable expression trace.
func (e *Engine) HistoryLabel() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.HistoryLabel
}

// MemoryValue returns the memory register.
func (e *Engine) MemoryValue() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.MemoryValue
}

// Log returns a copy of the calculation log, newest first.
func (e *Engine) Log() []store.LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneLog(e.state.Log)
}

// Snapshot returns a deep copy of the full engine state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}
