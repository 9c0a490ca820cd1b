// Package app wires together the calculator components and manages their
// lifecycle: the operation registry, the calculation engine, the change
// bus, durable snapshot storage, script-defined operations, and the
// optional snapshot watcher.
package app

import (
	"context"
	"sync/atomic"

	"github.com/dshills/calcstorm/internal/engine/calc"
	"github.com/dshills/calcstorm/internal/engine/operation"
	"github.com/dshills/calcstorm/internal/event"
	"github.com/dshills/calcstorm/internal/plugin/lua"
	"github.com/dshills/calcstorm/internal/store"
)

// Options configures the application.
type Options struct {
	// SnapshotPath is where durable state is stored. Empty selects an
	// in-memory store, so nothing survives the session.
	SnapshotPath string

	// ScriptPaths are Lua scripts defining extra operations, loaded in
	// order at startup. A script that fails to load is skipped.
	ScriptPaths []string

	// WatchSnapshot reloads the snapshot file when another process
	// rewrites it. Ignored when SnapshotPath is empty.
	WatchSnapshot bool

	// LogLevel sets the logging verbosity.
	LogLevel string

	// Logger overrides the default stderr logger.
	Logger *Logger
}

// Application owns the component graph.
type Application struct {
	logger   *Logger
	bus      *event.Bus
	registry *operation.Registry
	engine   *calc.Engine
	gateway  store.Gateway
	scripts  *lua.Loader
	watcher  *store.Watcher

	running atomic.Bool
}

// New creates an application and wires its components.
// The engine recovers durable state from the snapshot path here.
func New(opts Options) (*Application, error) {
	logger := opts.Logger
	if logger == nil {
		cfg := DefaultLoggerConfig()
		cfg.Level = ParseLogLevel(opts.LogLevel)
		logger = NewLogger(cfg)
	}

	a := &Application{logger: logger}

	a.bus = event.NewBus(event.WithPanicObserver(func(perr *event.PanicError) {
		logger.WithComponent("bus").Error("handler panic on %s: %v", perr.Topic, perr.Value)
	}))

	a.registry = operation.NewRegistry()

	a.scripts = lua.NewLoader(a.registry)
	for _, path := range opts.ScriptPaths {
		if err := a.scripts.LoadFile(path); err != nil {
			logger.WithComponent("lua").Warn("skipping script: %v", err)
		}
	}
	if names := a.scripts.Registered(); len(names) > 0 {
		logger.WithComponent("lua").Info("loaded %d user operations: %v", len(names), names)
	}

	var fileStore *store.FileStore
	if opts.SnapshotPath != "" {
		fileStore = store.NewFileStore(opts.SnapshotPath)
		a.gateway = fileStore
	} else {
		a.gateway = store.NewMemStore()
	}

	a.engine = calc.New(
		calc.WithRegistry(a.registry),
		calc.WithBus(a.bus),
		calc.WithGateway(a.gateway),
		calc.WithLogger(logger.WithComponent("engine")),
	)

	if opts.WatchSnapshot && fileStore != nil {
		a.watcher = store.NewWatcher(fileStore, func(snap store.Snapshot) {
			logger.WithComponent("watcher").Debug("snapshot changed on disk, reloading")
			a.engine.AdoptSnapshot(snap)
		})
	}

	return a, nil
}

// Engine returns the calculation engine.
func (a *Application) Engine() *calc.Engine { return a.engine }

// Bus returns the change bus.
func (a *Application) Bus() *event.Bus { return a.bus }

// Registry returns the operation registry.
func (a *Application) Registry() *operation.Registry { return a.registry }

// Logger returns the application logger.
func (a *Application) Logger() *Logger { return a.logger }

// Start begins background services. It is an error to start twice.
func (a *Application) Start(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			a.running.Store(false)
			return err
		}
	}
	a.logger.Info("started")
	return nil
}

// Shutdown stops background services and releases the script runtime.
func (a *Application) Shutdown() error {
	if !a.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.scripts.Close()

	stats := a.bus.Stats()
	a.logger.Debug("bus: published=%d delivered=%d errors=%d panics=%d",
		stats.Published, stats.Delivered, stats.HandlerErrors, stats.HandlerPanics)
	a.logger.Info("stopped")
	return nil
}
