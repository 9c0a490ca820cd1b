// Package operation provides the strategy tables of pure numeric functions
// the calculation engine evaluates against.
//
// Two strategies are built in: "basic" holds the binary arithmetic
// operators, "scientific" holds unary functions and gives access to the
// constants pi and e. All operations are pure and safe for concurrent use.
package operation

import (
	"math"
	"sort"
	"sync"
)

// Strategy names a table of operations.
type Strategy string

const (
	// StrategyBasic holds the binary arithmetic operators.
	StrategyBasic Strategy = "basic"

	// StrategyScientific holds unary functions and constants.
	StrategyScientific Strategy = "scientific"
)

// Func evaluates an operation over its operands.
type Func func(operands ...float64) (float64, error)

// entry pairs an operation with its required operand count.
type entry struct {
	arity int
	fn    Func
}

// Registry maps strategy names to operation tables.
// The zero value is not usable; call NewRegistry.
type Registry struct {
	mu         sync.RWMutex
	strategies map[Strategy]map[string]entry
}

// NewRegistry creates a registry pre-populated with the basic and
// scientific strategy tables.
func NewRegistry() *Registry {
	r := &Registry{
		strategies: map[Strategy]map[string]entry{
			StrategyBasic:      {},
			StrategyScientific: {},
		},
	}
	registerBasic(r)
	registerScientific(r)
	return r
}

// Register adds an operation to a strategy table.
// Registering a duplicate name fails so user-defined operations cannot
// shadow the built-ins.
func (r *Registry) Register(s Strategy, name string, arity int, fn Func) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	table, ok := r.strategies[s]
	if !ok {
		return wrapErr(s, name, ErrUnknownStrategy)
	}
	if _, exists := table[name]; exists {
		return wrapErr(s, name, ErrDuplicateOperation)
	}
	table[name] = entry{arity: arity, fn: fn}
	return nil
}

// mustRegister registers a built-in operation during construction.
func (r *Registry) mustRegister(s Strategy, name string, arity int, fn Func) {
	if err := r.Register(s, name, arity, fn); err != nil {
		panic(err)
	}
}

// Apply evaluates a named operation from the given strategy table.
func (r *Registry) Apply(s Strategy, name string, operands ...float64) (float64, error) {
	r.mu.RLock()
	table, ok := r.strategies[s]
	if !ok {
		r.mu.RUnlock()
		return 0, wrapErr(s, name, ErrUnknownStrategy)
	}
	op, ok := table[name]
	r.mu.RUnlock()

	if !ok {
		return 0, wrapErr(s, name, ErrUnknownOperation)
	}
	if len(operands) != op.arity {
		return 0, wrapErr(s, name, ErrBadOperandCount)
	}

	result, err := op.fn(operands...)
	if err != nil {
		return 0, wrapErr(s, name, err)
	}
	return result, nil
}

// Has returns true if the strategy table contains the operation.
func (r *Registry) Has(s Strategy, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, ok := r.strategies[s]
	if !ok {
		return false
	}
	_, ok = table[name]
	return ok
}

// List returns the sorted operation names of a strategy table.
func (r *Registry) List(s Strategy) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, ok := r.strategies[s]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Constant returns a named mathematical constant.
func Constant(name string) (float64, bool) {
	switch name {
	case "pi":
		return math.Pi, true
	case "e":
		return math.E, true
	default:
		return 0, false
	}
}

// IsConstant returns true if the name refers to a constant rather than
// a unary function.
func IsConstant(name string) bool {
	_, ok := Constant(name)
	return ok
}
