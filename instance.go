// instance.go: runtime wrapper around a loaded plugin
//
// A PluginInstance tracks one loaded plugin's lifecycle state, the
// configuration sections bound to it, and the bookkeeping for its start
// goroutine. Transitions are driven exclusively by the harness; a plugin
// never changes its own state.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"sync"
	"time"

	"github.com/agilira/go-timecache"
)

// PluginState is the lifecycle state of a plugin instance.
//
// Each state is reachable only from its predecessor:
//
//	Loaded -> Initialized -> Running -> Stopped -> Deinitialized
//
// plus the absorbing StateError, reachable from any state.
type PluginState int

const (
	StateLoaded PluginState = iota
	StateInitialized
	StateRunning
	StateStopped
	StateDeinitialized
	StateError
)

// String returns a human-readable representation of the state.
func (s PluginState) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateDeinitialized:
		return "deinitialized"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// PluginInstance is the runtime wrapper around one loaded plugin.
//
// The instance's bound configuration and the plugin's internal data are
// exclusively owned by the plugin while Running; the harness touches them
// only before the start goroutine is launched and after it has been joined.
type PluginInstance struct {
	plugin   Plugin
	info     PluginInfo
	sections []*ConfigSection
	context  *PluginContext

	mu           sync.Mutex
	state        PluginState
	lastError    error
	transitioned time.Time

	// done is closed when the start goroutine returns. Valid only while
	// the instance is (or has been) Running.
	done chan struct{}
}

func newPluginInstance(plugin Plugin, sections []*ConfigSection) *PluginInstance {
	return &PluginInstance{
		plugin:       plugin,
		info:         plugin.Info(),
		sections:     sections,
		state:        StateLoaded,
		transitioned: timecache.CachedTime(),
	}
}

// Name returns the plugin's unique name.
func (pi *PluginInstance) Name() string { return pi.info.Name }

// Info returns the plugin's static descriptor metadata.
func (pi *PluginInstance) Info() PluginInfo { return pi.info }

// State reports the instance's current lifecycle state.
func (pi *PluginInstance) State() PluginState {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.state
}

// LastError reports the error that moved the instance to StateError, if any.
func (pi *PluginInstance) LastError() error {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	return pi.lastError
}

// transition moves the instance to the next lifecycle state. Legal moves
// are the successor of the current state, the rollback shortcut
// Initialized -> Deinitialized (init-phase failure of a later plugin), and
// StateError from any other state. StateError is absorbing: once entered,
// every further transition is rejected. Anything else is a harness bug
// surfaced as a StateTransition error.
func (pi *PluginInstance) transition(to PluginState) error {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	rollback := pi.state == StateInitialized && to == StateDeinitialized
	if pi.state == StateError || (to != StateError && to != pi.state+1 && !rollback) {
		return NewStateTransitionError(pi.info.Name, pi.state, to)
	}
	pi.state = to
	pi.transitioned = timecache.CachedTime()
	return nil
}

// fail moves the instance to the absorbing StateError, recording the cause.
func (pi *PluginInstance) fail(err error) {
	pi.mu.Lock()
	defer pi.mu.Unlock()
	pi.state = StateError
	pi.lastError = err
	pi.transitioned = timecache.CachedTime()
}

// isRunner reports whether the plugin exposes a long-running start routine.
func (pi *PluginInstance) isRunner() bool {
	_, ok := pi.plugin.(Runner)
	return ok
}
