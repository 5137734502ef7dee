// harness.go: the lifecycle orchestrator
//
// The harness composes the dependency graph, the plugin instances and the
// logging registry, and drives init -> start -> run -> stop -> deinit across
// all plugins. It is the exclusive owner of process-wide harness state: the
// orchestrator runs single-threaded through init, stop and deinit to
// preserve the ordering guarantees; the run phase is the only intentionally
// concurrent region, with one goroutine per long-running plugin.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Options configures a Harness.
type Options struct {
	// Config supplies per-plugin configuration sections. Optional; without
	// it every plugin initializes unconfigured.
	Config Configuration

	// Logging is the logging surface supplied by the surrounding
	// application: default level, per-domain overrides, handlers.
	Logging LoggingConfig

	// Loader resolves module names to plugins. Required when Modules is
	// non-empty.
	Loader ModuleLoader

	// Modules names the plugin modules to load through Loader, in order.
	Modules []string
}

// Harness orchestrates the plugin lifecycle.
//
// A Harness is single-shot: construct, register plugins, Run. Run blocks for
// the lifetime of the service and returns the terminal result: nil when all
// phases completed or shutdown was clean, otherwise the first fatal cause
// encountered. RequestShutdown may be called from any goroutine, including
// plugin goroutines and OS-signal translators.
type Harness struct {
	registry  *Registry
	graph     *DependencyGraph
	instances map[string]*PluginInstance
	config    Configuration
	logging   LoggingConfig

	shutdown     chan struct{}
	shutdownOnce sync.Once

	running atomic.Bool
	done    atomic.Bool

	fatalMu  sync.Mutex
	fatalErr error

	finalizeMu   sync.Mutex
	finalizeErrs []error
}

// New creates a harness, applies the logging defaults and handler
// specifications, and loads any modules named in the options.
func New(opts Options) (*Harness, error) {
	registry := NewRegistry()
	if err := applyLoggingDefaults(registry, opts.Logging); err != nil {
		return nil, err
	}
	if err := registry.RegisterDomain(RootDomain, LevelNotSet); err != nil {
		return nil, err
	}

	h := &Harness{
		registry:  registry,
		graph:     NewDependencyGraph(),
		instances: make(map[string]*PluginInstance),
		config:    opts.Config,
		logging:   opts.Logging,
		shutdown:  make(chan struct{}),
	}

	// A fatal record that no handler managed to write means the daemon
	// can no longer tell the operator anything; treat it as self-fatal.
	registry.OnSelfFatal(func(err error) {
		h.recordFatal(err)
		h.RequestShutdown()
	})

	if len(opts.Modules) > 0 && opts.Loader == nil {
		return nil, NewNoLoaderError(opts.Modules)
	}
	for _, name := range opts.Modules {
		plugin, err := opts.Loader.Load(name)
		if err != nil {
			return nil, err
		}
		if err := h.RegisterPlugin(plugin); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Logging returns the harness's logging registry, for callers that attach
// or detach handlers at runtime.
func (h *Harness) Logging() *Registry {
	return h.registry
}

// RegisterPlugin adds a plugin to the harness before Run. The plugin's name
// becomes its log domain; its declared requirements and conflicts join the
// dependency graph; its configuration sections are bound from the
// configuration collaborator.
func (h *Harness) RegisterPlugin(plugin Plugin) error {
	if h.running.Load() || h.done.Load() {
		return NewAlreadyRunningError()
	}

	info := plugin.Info()
	if err := checkABIVersion(info); err != nil {
		return err
	}
	if err := h.graph.Add(info); err != nil {
		return err
	}
	if err := h.registry.RegisterDomain(info.Name, LevelNotSet); err != nil {
		return err
	}

	var sections []*ConfigSection
	if h.config != nil {
		sections = h.config.SectionsFor(info.Name)
	}

	instance := newPluginInstance(plugin, sections)
	instance.context = &PluginContext{
		domain:          info.Name,
		sections:        instance.sections,
		registry:        h.registry,
		shutdown:        h.shutdown,
		requestShutdown: h.RequestShutdown,
	}
	h.instances[info.Name] = instance
	return nil
}

// RequestShutdown asks every running plugin to wind down. It is the external
// shutdown API (an OS-signal translator typically calls it), it is
// idempotent, and it never forces termination: shutdown stays cooperative.
func (h *Harness) RequestShutdown() {
	h.shutdownOnce.Do(func() { close(h.shutdown) })
}

// Status reports the current lifecycle state of every registered plugin.
func (h *Harness) Status() map[string]PluginState {
	status := make(map[string]PluginState, len(h.instances))
	for name, instance := range h.instances {
		status[name] = instance.State()
	}
	return status
}

// FinalizationErrors returns the stop and deinit failures collected during
// shutdown. They are non-fatal and never part of Run's terminal result.
func (h *Harness) FinalizationErrors() []error {
	h.finalizeMu.Lock()
	defer h.finalizeMu.Unlock()
	errs := make([]error, len(h.finalizeErrs))
	copy(errs, h.finalizeErrs)
	return errs
}

// Run drives the whole lifecycle and blocks until the service ends.
//
// Phases, in order: resolve the dependency order (graph errors abort before
// any plugin runs); init each plugin synchronously in that order, rolling
// back on failure; launch every Runner on its own goroutine; wait until
// shutdown is requested, a running plugin reports a fatal error, or all
// start routines have returned; then close down in reverse init order. The
// logging registry is torn down last.
func (h *Harness) Run() error {
	if h.done.Load() || !h.running.CompareAndSwap(false, true) {
		return NewAlreadyRunningError()
	}
	defer func() {
		h.running.Store(false)
		h.done.Store(true)
		if err := h.registry.Close(); err != nil {
			h.recordFinalization(err)
		}
	}()

	order, err := h.graph.ResolveOrder()
	if err != nil {
		h.log(LevelError, "cannot start: %v", err)
		return err
	}
	if err := applyDomainOverrides(h.registry, h.logging.Domains); err != nil {
		return err
	}
	h.log(LevelInfo, "resolved plugin order: %v", order)

	if err := h.initPhase(order); err != nil {
		return err
	}

	started := h.startPhase(order)
	h.waitPhase(started)
	h.joinPhase(started)
	h.stopPhase(order)
	h.deinitPhase(order)

	if err := h.fatalError(); err != nil {
		h.log(LevelError, "harness finished with failure: %v", err)
		return err
	}
	h.log(LevelInfo, "harness finished cleanly")
	return nil
}

// initPhase calls every plugin's Init synchronously, one at a time, in
// resolved order. On failure the already-initialized plugins are deinit'd in
// reverse of the order they were initialized (best-effort; their failures
// are logged, not re-thrown) and the phase reports InitFailed.
func (h *Harness) initPhase(order []string) error {
	var initialized []string
	for _, name := range order {
		instance := h.instances[name]
		h.log(LevelInfo, "initializing plugin '%s' (%s)", name, instance.info.Version)

		if err := safeEntry(name, "init", func() error {
			return instance.plugin.Init(instance.context)
		}); err != nil {
			instance.fail(err)
			h.log(LevelError, "plugin '%s' init failed: %v", name, err)
			h.rollbackInit(initialized)
			return NewInitFailedError(name, err)
		}

		if err := instance.transition(StateInitialized); err != nil {
			return err
		}
		initialized = append(initialized, name)
	}
	return nil
}

// rollbackInit deinitializes already-initialized plugins in reverse of the
// order they were initialized.
func (h *Harness) rollbackInit(initialized []string) {
	for i := len(initialized) - 1; i >= 0; i-- {
		name := initialized[i]
		instance := h.instances[name]

		if err := safeEntry(name, "deinit", func() error {
			return instance.plugin.Deinit(instance.context)
		}); err != nil {
			instance.fail(err)
			h.log(LevelError, "plugin '%s' deinit failed during rollback: %v", name, err)
			continue
		}
		if err := instance.transition(StateDeinitialized); err != nil {
			h.log(LevelError, "plugin '%s': %v", name, err)
		}
	}
}

// startPhase launches every Runner plugin on a dedicated goroutine, in
// resolved order but without waiting for one start to complete before
// launching the next; starts are independent. Plugins without a start
// routine move directly to Running with a no-op. Returns the names of the
// plugins whose goroutines were launched.
func (h *Harness) startPhase(order []string) []string {
	var started []string
	for _, name := range order {
		instance := h.instances[name]
		if err := instance.transition(StateRunning); err != nil {
			h.log(LevelError, "plugin '%s': %v", name, err)
			continue
		}

		if !instance.isRunner() {
			continue
		}

		instance.done = make(chan struct{})
		started = append(started, name)
		h.log(LevelInfo, "starting plugin '%s'", name)

		go func(instance *PluginInstance) {
			defer close(instance.done)

			err := safeEntry(instance.info.Name, "start", func() error {
				return instance.plugin.(Runner).Start(instance.context)
			})
			if err != nil {
				wrapped := NewRunFailedError(instance.info.Name, err)
				instance.fail(wrapped)
				h.log(LevelError, "plugin '%s' run failed: %v", instance.info.Name, err)
				h.recordFatal(wrapped)
				h.RequestShutdown()
			}
		}(instance)
	}
	return started
}

// waitPhase blocks until shutdown has been requested (externally or by a
// failing plugin) or every start routine has returned. All starts returning
// on their own is a legitimate terminal condition: some plugins are
// run-to-completion workers rather than long-lived loops.
func (h *Harness) waitPhase(started []string) {
	allDone := make(chan struct{})
	go func() {
		defer close(allDone)
		for _, name := range started {
			<-h.instances[name].done
		}
	}()

	select {
	case <-h.shutdown:
	case <-allDone:
	}
}

// joinPhase signals shutdown and joins every launched goroutine. Join order
// does not affect correctness; starts are independent. A plugin ignoring
// the shutdown signal stalls here indefinitely, which is the documented
// tradeoff of cooperative cancellation.
func (h *Harness) joinPhase(started []string) {
	h.RequestShutdown()
	for _, name := range started {
		<-h.instances[name].done
	}
}

// stopPhase calls Stop on each plugin in reverse init order, after every
// start goroutine has been joined. Stop failures are logged and aggregated,
// never fatal.
func (h *Harness) stopPhase(order []string) {
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		instance := h.instances[name]
		h.log(LevelInfo, "stopping plugin '%s'", name)

		if err := safeEntry(name, "stop", func() error {
			return instance.plugin.Stop(instance.context)
		}); err != nil {
			wrapped := NewStopFailedError(name, err)
			instance.fail(wrapped)
			h.recordFinalization(wrapped)
			h.log(LevelError, "plugin '%s' stop failed: %v", name, err)
			continue
		}

		// An instance whose start routine failed is already absorbed in
		// StateError; its Stop still ran above.
		if instance.State() != StateError {
			if err := instance.transition(StateStopped); err != nil {
				h.log(LevelError, "plugin '%s': %v", name, err)
			}
		}
	}
}

// deinitPhase calls Deinit on each plugin in reverse init order, regardless
// of whether Stop succeeded; finalization is best-effort and total.
func (h *Harness) deinitPhase(order []string) {
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		instance := h.instances[name]

		if err := safeEntry(name, "deinit", func() error {
			return instance.plugin.Deinit(instance.context)
		}); err != nil {
			wrapped := NewDeinitFailedError(name, err)
			instance.fail(wrapped)
			h.recordFinalization(wrapped)
			h.log(LevelError, "plugin '%s' deinit failed: %v", name, err)
			continue
		}

		if instance.State() != StateError {
			if err := instance.transition(StateDeinitialized); err != nil {
				h.log(LevelError, "plugin '%s': %v", name, err)
			}
		}
	}
}

// recordFatal keeps the first fatal cause encountered; later ones are
// already consequences of the first.
func (h *Harness) recordFatal(err error) {
	h.fatalMu.Lock()
	defer h.fatalMu.Unlock()
	if h.fatalErr == nil {
		h.fatalErr = err
	}
}

func (h *Harness) fatalError() error {
	h.fatalMu.Lock()
	defer h.fatalMu.Unlock()
	return h.fatalErr
}

func (h *Harness) recordFinalization(err error) {
	h.finalizeMu.Lock()
	defer h.finalizeMu.Unlock()
	h.finalizeErrs = append(h.finalizeErrs, err)
}

// log emits a record under the harness's root domain.
func (h *Harness) log(level LogLevel, format string, args ...any) {
	_ = h.registry.Log(RootDomain, level, format, args...)
}

// safeEntry invokes a plugin entry point, converting a panic into an error
// so one broken plugin cannot take the whole daemon down unannounced.
func safeEntry(plugin, entry string, call func() error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("plugin %s panicked in %s: %v", plugin, entry, recovered)
		}
	}()
	return call()
}
