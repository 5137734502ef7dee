// shared_object_loader.go: dynamic loading of plugin shared objects
//
// True dynamic loading for independently-built modules, isolated behind the
// ModuleLoader abstraction so the orchestrator never sees symbol lookup. A
// module built with `go build -buildmode=plugin` exports a HarnessPlugin
// variable implementing the Plugin interface.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

//go:build linux || darwin

package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
)

// PluginSymbol is the exported variable a shared-object module must provide.
const PluginSymbol = "HarnessPlugin"

// SharedObjectLoader loads plugins from shared objects in a module
// directory: module name "routing" resolves to <dir>/routing.so.
type SharedObjectLoader struct {
	dir string
}

// NewSharedObjectLoader creates a loader rooted at the given directory.
func NewSharedObjectLoader(dir string) *SharedObjectLoader {
	return &SharedObjectLoader{dir: dir}
}

// Load implements ModuleLoader.Load. A module whose shared object does not
// exist reports "not found" so a ChainLoader can fall through to built-ins.
func (l *SharedObjectLoader) Load(name string) (Plugin, error) {
	path := filepath.Join(l.dir, name+".so")
	if _, err := os.Stat(path); err != nil {
		return nil, NewModuleNotFoundError(name)
	}

	module, err := plugin.Open(path)
	if err != nil {
		return nil, NewModuleLoadError(path, err)
	}

	symbol, err := module.Lookup(PluginSymbol)
	if err != nil {
		return nil, NewModuleLoadError(path, err)
	}

	loaded, ok := symbol.(*Plugin)
	if !ok {
		return nil, NewModuleLoadError(path,
			fmt.Errorf("symbol %s is %T, not a harness Plugin", PluginSymbol, symbol))
	}
	return *loaded, nil
}
