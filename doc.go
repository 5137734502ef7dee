// Package harness provides the plugin harness underlying a database-proxy
// daemon: it loads independently-built plugins, resolves their declared
// dependencies, and drives each one through a strict lifecycle
// (init -> start -> stop -> deinit) while exposing a shared, thread-safe
// logging facility addressed by named domains.
//
// Key Features:
//   - Typed plugin interface with four lifecycle entry points
//   - Dependency-ordered startup (topological, deterministic tie-break)
//   - Reverse-order stop and deinit with best-effort, total finalization
//   - One goroutine per long-running plugin, cooperative shutdown
//   - Domain-based logging with per-domain levels and pluggable handlers
//   - Hot log-level reload via configuration file watching
//
// Basic Usage:
//
//	// Build the harness from a configuration collaborator
//	cfg, err := harness.LoadConfigFile("harness.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	h, err := harness.New(harness.Options{Config: cfg})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Register plugins (compiled in, or via a ModuleLoader)
//	if err := h.RegisterPlugin(myPlugin); err != nil {
//		log.Fatal(err)
//	}
//
//	// Run drives init -> start -> run -> stop -> deinit and returns the
//	// terminal result. RequestShutdown may be called from any goroutine.
//	if err := h.Run(); err != nil {
//		log.Fatal(err)
//	}
//
// Ordering:
// Plugins are initialized one at a time in resolved dependency order; every
// dependency is initialized before its dependents and all plugins are
// initialized before any plugin's start routine begins. Stop and deinit run
// in the exact reverse of the init order.
//
// Shutdown:
// Shutdown is cooperative. Long-running plugins observe the shutdown signal
// through their PluginContext and are expected to return promptly; the
// harness joins every start goroutine before invoking any stop entry point.
//
// Copyright (c) 2025 AGILira - A. Giordano
// SPDX-License-Identifier: MPL-2.0
package harness
