// argus_level_watcher.go: hot log-level reload via Argus file watching
//
// Watches the daemon's configuration file and applies logging level changes
// (default level and per-domain overrides) to a live registry without a
// restart. Only the logging surface is hot: plugin sections are bound at
// init and stay with their instances.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
)

// LevelWatcherOptions tunes the level watcher.
type LevelWatcherOptions struct {
	// PollInterval is how often Argus polls the file for changes.
	PollInterval time.Duration
}

// DefaultLevelWatcherOptions returns the standard tuning: a relaxed poll
// interval, since log-level changes are operator actions, not a data path.
func DefaultLevelWatcherOptions() LevelWatcherOptions {
	return LevelWatcherOptions{PollInterval: 2 * time.Second}
}

// LevelWatcher applies logging-configuration changes from a watched file to
// a live Registry.
type LevelWatcher struct {
	registry   *Registry
	configPath string
	options    LevelWatcherOptions
	watcher    *argus.Watcher

	mu      sync.Mutex
	enabled atomic.Bool
}

// NewLevelWatcher creates a watcher for the given configuration file.
func NewLevelWatcher(registry *Registry, configPath string, options LevelWatcherOptions) *LevelWatcher {
	lw := &LevelWatcher{
		registry:   registry,
		configPath: configPath,
		options:    options,
	}

	lw.watcher = argus.New(argus.Config{
		PollInterval:         options.PollInterval,
		MaxWatchedFiles:      1,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, filepath string) {
			_ = registry.Log(RootDomain, LevelWarning,
				"config file watching error on %s: %v", filepath, err)
		},
	})
	return lw
}

// Start begins watching. Starting an already-running watcher is an error.
func (lw *LevelWatcher) Start() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if !lw.enabled.CompareAndSwap(false, true) {
		return NewAlreadyRunningError()
	}

	if err := lw.watcher.Watch(lw.configPath, lw.handleChange); err != nil {
		lw.enabled.Store(false)
		return NewConfigFileError(lw.configPath, err)
	}
	if err := lw.watcher.Start(); err != nil {
		lw.enabled.Store(false)
		return NewConfigFileError(lw.configPath, err)
	}

	_ = lw.registry.Log(RootDomain, LevelInfo,
		"watching %s for log level changes", lw.configPath)
	return nil
}

// Stop halts watching. Safe to call on a watcher that never started.
func (lw *LevelWatcher) Stop() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if !lw.enabled.CompareAndSwap(true, false) {
		return nil
	}
	if err := lw.watcher.Stop(); err != nil {
		return NewConfigFileError(lw.configPath, err)
	}
	return nil
}

// handleChange reloads the logging surface after a file change.
func (lw *LevelWatcher) handleChange(event argus.ChangeEvent) {
	if event.IsDelete {
		_ = lw.registry.Log(RootDomain, LevelWarning,
			"configuration file %s was deleted, keeping current log levels", event.Path)
		return
	}

	cfg, err := LoadConfigFile(event.Path)
	if err != nil {
		_ = lw.registry.Log(RootDomain, LevelError,
			"cannot reload logging configuration from %s: %v", event.Path, err)
		return
	}

	logging := cfg.Logging()
	if logging.Level != "" {
		level, err := ParseLogLevel(logging.Level)
		if err != nil {
			_ = lw.registry.Log(RootDomain, LevelError, "reload rejected: %v", err)
			return
		}
		_ = lw.registry.SetLevel("", level)
	}
	if err := applyDomainOverrides(lw.registry, logging.Domains); err != nil {
		_ = lw.registry.Log(RootDomain, LevelError, "reload rejected: %v", err)
		return
	}

	_ = lw.registry.Log(RootDomain, LevelInfo,
		"log levels reloaded from %s", event.Path)
}
