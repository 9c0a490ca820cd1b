// Package lua loads user-defined calculator operations from Lua scripts.
//
// Scripts run in a sandboxed interpreter with only the base, table, string,
// and math libraries open. A script contributes operations by calling the
// global register function:
//
//	register("double", function(x) return x * 2 end)
//
// Each registered function becomes a unary scientific operation named with
// the "user." prefix, so the example above is invoked as "user.double".
package lua

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/calcstorm/internal/engine/operation"
)

// Prefix namespaces script-defined operations away from the built-ins.
const Prefix = "user."

// ErrLoaderClosed is returned when a closed loader is used.
var ErrLoaderClosed = errors.New("lua loader closed")

// ScriptError wraps a failure while running a script.
type ScriptError struct {
	Script string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("lua script %s: %v", e.Script, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// Loader owns a sandboxed Lua state and registers script-defined
// operations into an operation registry.
//
// The underlying LState is not goroutine-safe; the loader serializes all
// access through its mutex, including calls made later when the engine
// evaluates a registered operation.
type Loader struct {
	mu         sync.Mutex
	state      *lua.LState
	registry   *operation.Registry
	registered []string
	closed     bool
}

// NewLoader creates a loader registering into the given registry.
func NewLoader(registry *operation.Registry) *Loader {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Scripts must not load further code from disk or strings.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	ld := &Loader{state: L, registry: registry}
	L.SetGlobal("register", L.NewFunction(ld.luaRegister))
	return ld
}

// luaRegister implements the register(name, fn) global.
// Raising a Lua error here surfaces as a script load failure.
func (ld *Loader) luaRegister(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)

	if !validName(name) {
		L.ArgError(1, "operation name must start with a letter and contain only letters, digits, and underscores")
		return 0
	}

	opName := Prefix + name
	if err := ld.registry.Register(operation.StrategyScientific, opName, 1, ld.wrap(fn)); err != nil {
		L.RaiseError("register %s: %s", opName, err.Error())
		return 0
	}
	ld.registered = append(ld.registered, opName)
	return 0
}

// wrap adapts a Lua function to the registry's operation signature.
// Lua runtime failures and non-numeric results report as domain errors so
// the engine treats them like any other invalid evaluation.
func (ld *Loader) wrap(fn *lua.LFunction) operation.Func {
	return func(operands ...float64) (float64, error) {
		ld.mu.Lock()
		defer ld.mu.Unlock()

		if ld.closed {
			return 0, fmt.Errorf("user operation: %w", ErrLoaderClosed)
		}

		L := ld.state
		err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LNumber(operands[0]))
		if err != nil {
			return 0, fmt.Errorf("user operation failed: %v: %w", err, operation.ErrDomain)
		}

		ret := L.Get(-1)
		L.Pop(1)
		n, ok := ret.(lua.LNumber)
		if !ok {
			return 0, fmt.Errorf("user operation returned %s, want number: %w", ret.Type(), operation.ErrDomain)
		}
		return float64(n), nil
	}
}

// LoadScript runs a script from source. Operations it registers remain
// available after the call returns.
func (ld *Loader) LoadScript(name, source string) error {
	ld.mu.Lock()
	defer ld.mu.Unlock()

	if ld.closed {
		return ErrLoaderClosed
	}
	if err := ld.state.DoString(source); err != nil {
		return &ScriptError{Script: name, Err: err}
	}
	return nil
}

// LoadFile runs a script from disk.
func (ld *Loader) LoadFile(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return &ScriptError{Script: filepath.Base(path), Err: err}
	}
	return ld.LoadScript(filepath.Base(path), string(source))
}

// Registered returns the names of operations contributed by scripts, in
// registration order, including the "user." prefix.
func (ld *Loader) Registered() []string {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	out := make([]string, len(ld.registered))
	copy(out, ld.registered)
	return out
}

// Close shuts down the interpreter. Registered operations fail afterwards.
func (ld *Loader) Close() {
	ld.mu.Lock()
	defer ld.mu.Unlock()
	if ld.closed {
		return
	}
	ld.closed = true
	ld.state.Close()
}

// validName reports whether name is a bare identifier starting with
// a letter.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r == '_' || (r >= '0' && r <= '9'):
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
