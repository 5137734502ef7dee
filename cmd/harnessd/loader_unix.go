// loader_unix.go: module loader wiring on platforms with dynamic loading
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build linux || darwin

package main

import harness "github.com/agilira/go-harness"

// newLoader prefers shared objects from --module-dir and falls back to the
// plugins compiled into the daemon.
func newLoader() harness.ModuleLoader {
	if moduleDir == "" {
		return builtins
	}
	return harness.NewChainLoader(harness.NewSharedObjectLoader(moduleDir), builtins)
}
