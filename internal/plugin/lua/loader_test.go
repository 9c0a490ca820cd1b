package lua

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/calcstorm/internal/engine/operation"
)

func TestLoadScriptRegistersOperation(t *testing.T) {
	reg := operation.NewRegistry()
	ld := NewLoader(reg)
	defer ld.Close()

	err := ld.LoadScript("double.lua", `register("double", function(x) return x * 2 end)`)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}

	if !reg.Has(operation.StrategyScientific, "user.double") {
		t.Fatal("user.double not registered")
	}
	got, err := reg.Apply(operation.StrategyScientific, "user.double", 21)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != 42 {
		t.Errorf("user.double(21) = %v, want 42", got)
	}

	names := ld.Registered()
	if len(names) != 1 || names[0] != "user.double" {
		t.Errorf("Registered() = %v, want [user.double]", names)
	}
}

func TestLoadScriptMathLibrary(t *testing.T) {
	reg := operation.NewRegistry()
	ld := NewLoader(reg)
	defer ld.Close()

	err := ld.LoadScript("floor.lua", `register("floor", function(x) return math.floor(x) end)`)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}

	got, err := reg.Apply(operation.StrategyScientific, "user.floor", 3.7)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != 3 {
		t.Errorf("user.floor(3.7) = %v, want 3", got)
	}
}

func TestLoadScriptSyntaxError(t *testing.T) {
	reg := operation.NewRegistry()
	ld := NewLoader(reg)
	defer ld.Close()

	err := ld.LoadScript("bad.lua", `register("broken", function(x) return`)
	if err == nil {
		t.Fatal("LoadScript accepted a syntax error")
	}
	var serr *ScriptError
	if !errors.As(err, &serr) {
		t.Fatalf("error type = %T, want *ScriptError", err)
	}
	if serr.Script != "bad.lua" {
		t.Errorf("script name = %q, want %q", serr.Script, "bad.lua")
	}
}

func TestLoadScriptRejectsBadName(t *testing.T) {
	reg := operation.NewRegistry()
	ld := NewLoader(reg)
	defer ld.Close()

	for _, name := range []string{"", "2fast", "_hidden", "with space", "dot.ted"} {
		err := ld.LoadScript("bad.lua", `register("`+name+`", function(x) return x end)`)
		if err == nil {
			t.Errorf("register(%q) accepted", name)
		}
	}
}

func TestLoadScriptDuplicateRejected(t *testing.T) {
	reg := operation.NewRegistry()
	ld := NewLoader(reg)
	defer ld.Close()

	script := `register("twice", function(x) return x + x end)`
	if err := ld.LoadScript("a.lua", script); err != nil {
		t.Fatalf("first LoadScript: %v", err)
	}
	if err := ld.LoadScript("b.lua", script); err == nil {
		t.Error("duplicate registration accepted")
	}
}

func TestOperationRuntimeErrorIsDomainError(t *testing.T) {
	reg := operation.NewRegistry()
	ld := NewLoader(reg)
	defer ld.Close()

	err := ld.LoadScript("err.lua", `register("fail", function(x) error("nope") end)`)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}

	if _, err := reg.Apply(operation.StrategyScientific, "user.fail", 1); !errors.Is(err, operation.ErrDomain) {
		t.Errorf("error = %v, want ErrDomain", err)
	}
}

func TestOperationNonNumberResultIsDomainError(t *testing.T) {
	reg := operation.NewRegistry()
	ld := NewLoader(reg)
	defer ld.Close()

	err := ld.LoadScript("str.lua", `register("str", function(x) return "hello" end)`)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}

	if _, err := reg.Apply(operation.StrategyScientific, "user.str", 1); !errors.Is(err, operation.ErrDomain) {
		t.Errorf("error = %v, want ErrDomain", err)
	}
}

func TestSandboxBlocksIO(t *testing.T) {
	reg := operation.NewRegistry()
	ld := NewLoader(reg)
	defer ld.Close()

	if err := ld.LoadScript("io.lua", `io.open("/etc/passwd", "r")`); err == nil {
		t.Error("script reached the io library")
	}
	if err := ld.LoadScript("os.lua", `os.execute("true")`); err == nil {
		t.Error("script reached the os library")
	}
	if err := ld.LoadScript("load.lua", `load("return 1")()`); err == nil {
		t.Error("script reached load")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cube.lua")
	script := []byte(`register("cube", function(x) return x * x * x end)`)
	if err := os.WriteFile(path, script, 0o644); err != nil {
		t.Fatal(err)
	}

	reg := operation.NewRegistry()
	ld := NewLoader(reg)
	defer ld.Close()

	if err := ld.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	got, err := reg.Apply(operation.StrategyScientific, "user.cube", 3)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got != 27 {
		t.Errorf("user.cube(3) = %v, want 27", got)
	}
}

func TestLoadFileMissing(t *testing.T) {
	ld := NewLoader(operation.NewRegistry())
	defer ld.Close()

	if err := ld.LoadFile(filepath.Join(t.TempDir(), "absent.lua")); err == nil {
		t.Error("LoadFile on a missing path succeeded")
	}
}

func TestClosedLoader(t *testing.T) {
	reg := operation.NewRegistry()
	ld := NewLoader(reg)

	if err := ld.LoadScript("ok.lua", `register("id", function(x) return x end)`); err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	ld.Close()

	if err := ld.LoadScript("late.lua", `register("late", function(x) return x end)`); !errors.Is(err, ErrLoaderClosed) {
		t.Errorf("LoadScript after close error = %v, want ErrLoaderClosed", err)
	}
	if _, err := reg.Apply(operation.StrategyScientific, "user.id", 1); !errors.Is(err, ErrLoaderClosed) {
		t.Errorf("Apply after close error = %v, want ErrLoaderClosed", err)
	}

	// closing again is a no-op
	ld.Close()
}
