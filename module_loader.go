// module_loader.go: loader abstraction returning typed plugins
//
// The orchestrator never touches loading mechanics; it consumes a
// ModuleLoader that resolves a module name to a typed Plugin. The in-process
// BuiltinRegistry covers the common deployment (plugins compiled into the
// daemon); SharedObjectLoader covers true dynamic loading on platforms that
// support it.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

import "sync"

// ModuleLoader resolves a module name to a typed Plugin.
type ModuleLoader interface {
	Load(name string) (Plugin, error)
}

// PluginFactory creates a fresh plugin instance.
type PluginFactory func() Plugin

// BuiltinRegistry is a ModuleLoader over plugins compiled into the daemon.
// Factories are typically registered from init functions of the plugin
// packages the daemon links in.
type BuiltinRegistry struct {
	mu        sync.Mutex
	factories map[string]PluginFactory
}

// NewBuiltinRegistry creates an empty builtin registry.
func NewBuiltinRegistry() *BuiltinRegistry {
	return &BuiltinRegistry{factories: make(map[string]PluginFactory)}
}

// Register adds a factory under a module name. Registering the same name
// twice fails with a DuplicateName error.
func (br *BuiltinRegistry) Register(name string, factory PluginFactory) error {
	br.mu.Lock()
	defer br.mu.Unlock()

	if name == "" {
		return NewInvalidPluginNameError(name)
	}
	if _, exists := br.factories[name]; exists {
		return NewDuplicatePluginError(name)
	}
	br.factories[name] = factory
	return nil
}

// Load implements ModuleLoader.Load.
func (br *BuiltinRegistry) Load(name string) (Plugin, error) {
	br.mu.Lock()
	factory, exists := br.factories[name]
	br.mu.Unlock()

	if !exists {
		return nil, NewModuleNotFoundError(name)
	}
	return factory(), nil
}

// ChainLoader tries several loaders in order; a loader answering "module
// not found" passes the name on to the next one. Any other failure stops
// the chain.
type ChainLoader struct {
	loaders []ModuleLoader
}

// NewChainLoader composes loaders, first match wins.
func NewChainLoader(loaders ...ModuleLoader) *ChainLoader {
	return &ChainLoader{loaders: loaders}
}

// Load implements ModuleLoader.Load.
func (cl *ChainLoader) Load(name string) (Plugin, error) {
	for _, loader := range cl.loaders {
		plugin, err := loader.Load(name)
		if err == nil {
			return plugin, nil
		}
		if ErrorCode(err) != ErrCodeModuleNotFound {
			return nil, err
		}
	}
	return nil, NewModuleNotFoundError(name)
}
