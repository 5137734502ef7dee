// loader_other.go: module loader wiring without dynamic loading
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build !linux && !darwin

package main

import harness "github.com/agilira/go-harness"

// newLoader serves built-in plugins only; this platform has no shared-object
// loading.
func newLoader() harness.ModuleLoader {
	return builtins
}
