// Package main is the entry point for the calcstorm calculator.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/calcstorm/internal/app"
	"github.com/dshills/calcstorm/internal/engine/calc"
	"github.com/dshills/calcstorm/internal/engine/operation"
	"github.com/dshills/calcstorm/internal/event/topic"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	application, err := app.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start: %v\n", err)
		return 1
	}
	defer func() { _ = application.Shutdown() }()

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
		_ = application.Shutdown()
		os.Exit(0)
	}()

	if err := repl(application); err != nil {
		if errors.Is(err, app.ErrQuit) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// scriptList collects repeated -script flags.
type scriptList []string

func (s *scriptList) String() string { return strings.Join(*s, ",") }

func (s *scriptList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func parseFlags() app.Options {
	var opts app.Options
	var scripts scriptList
	var showVersion bool

	flag.StringVar(&opts.SnapshotPath, "snapshot", "", "Path to the durable snapshot file")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.WatchSnapshot, "watch", false, "Reload the snapshot when changed externally")
	flag.Var(&scripts, "script", "Lua script defining extra operations (repeatable)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Calcstorm - interactive calculator\n\n")
		fmt.Fprintf(os.Stderr, "Usage: calcstorm [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  calcstorm                          Volatile session\n")
		fmt.Fprintf(os.Stderr, "  calcstorm -snapshot calc.json      Persist memory and log\n")
		fmt.Fprintf(os.Stderr, "  calcstorm -script ops.lua          Load user operations\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("Calcstorm %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	opts.ScriptPaths = scripts
	return opts
}

// repl reads commands from stdin and feeds them to the engine.
// Display updates arrive through the change bus, same as any other
// subscriber would see them.
func repl(a *app.Application) error {
	e := a.Engine()
	bus := a.Bus()

	_, err := bus.SubscribeFunc(calc.TopicValueChanged, func(_ context.Context, _ topic.Topic, payload any) error {
		fmt.Printf("  %v\n", payload)
		return nil
	})
	if err != nil {
		return err
	}
	_, err = bus.SubscribeFunc(calc.TopicMemoryChanged, func(_ context.Context, _ topic.Topic, payload any) error {
		fmt.Printf("  memory: %v\n", payload)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("  %s\n", e.CurrentValue())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return app.ErrQuit
		}

		for _, tok := range strings.Fields(scanner.Text()) {
			if err := dispatch(e, tok); err != nil {
				if errors.Is(err, app.ErrQuit) {
					return err
				}
				fmt.Printf("  error: %v\n", err)
			}
		}
	}
}

// dispatch interprets a single input token.
func dispatch(e *calc.Engine, tok string) error {
	switch tok {
	case "quit", "exit", "q":
		return app.ErrQuit
	case "=":
		return e.Evaluate()
	case "clear", "c":
		return e.Reset()
	case "del":
		return e.DeleteLastDigit()
	case "undo", "u":
		if !e.Undo() {
			fmt.Println("  nothing to undo")
		}
		return nil
	case "ms":
		return e.MemoryStore()
	case "mr":
		return e.MemoryRecall()
	case "m+":
		return e.MemoryAdd()
	case "m-":
		return e.MemorySubtract()
	case "mc":
		return e.MemoryClear()
	case "history", "log":
		printLog(e)
		return nil
	case "commands":
		printCommands(e)
		return nil
	}

	if operation.IsBasicOperator(tok) {
		return e.InputOperator(tok)
	}
	if isNumberToken(tok) {
		return inputNumber(e, tok)
	}
	// anything left is a scientific operation or constant
	return e.EvaluateScientific(tok)
}

func printLog(e *calc.Engine) {
	log := e.Log()
	if len(log) == 0 {
		fmt.Println("  no calculations yet")
		return
	}
	for _, entry := range log {
		fmt.Printf("  %s = %s\n", entry.Expression, entry.Result)
	}
}

func printCommands(e *calc.Engine) {
	entries := e.UndoEntries()
	if len(entries) == 0 {
		fmt.Println("  nothing to undo")
		return
	}
	for _, entry := range entries {
		fmt.Printf("  %s  %s\n", entry.Timestamp.Format("15:04:05"), entry.Name)
	}
}

func isNumberToken(tok string) bool {
	for _, r := range tok {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return tok != ""
}

func inputNumber(e *calc.Engine, tok string) error {
	for _, r := range tok {
		if r == '.' {
			if err := e.InputDecimalPoint(); err != nil {
				return err
			}
			continue
		}
		if err := e.InputDigit(r); err != nil {
			return err
		}
	}
	return nil
}
