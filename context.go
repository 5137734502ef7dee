// context.go: the per-plugin handle passed to lifecycle entry points
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

// PluginContext is the opaque harness-provided context handed to every
// lifecycle entry point. It exposes exactly three things to a plugin: its
// bound configuration sections, logging under its own domain, and the
// harness shutdown signal.
//
// The context is created before Init and remains valid through Deinit; a
// plugin must not retain it past its own Deinit.
type PluginContext struct {
	domain   string
	sections []*ConfigSection
	registry *Registry

	shutdown        chan struct{}
	requestShutdown func()
}

// Sections returns the configuration sections bound to this plugin, in
// declaration order. The slice and its sections are exclusively owned by
// the plugin.
func (c *PluginContext) Sections() []*ConfigSection {
	return c.sections
}

// Section returns the bound section with the given key, or nil.
func (c *PluginContext) Section(key string) *ConfigSection {
	for _, section := range c.sections {
		if section.Key == key {
			return section
		}
	}
	return nil
}

// Done returns a channel closed when harness shutdown has been requested.
// A Runner's Start implementation is contractually required to observe it
// (or poll ShuttingDown) and return promptly.
func (c *PluginContext) Done() <-chan struct{} {
	return c.shutdown
}

// ShuttingDown reports whether harness shutdown has been requested. Polling
// alternative to Done for plugins with their own wait loops.
func (c *PluginContext) ShuttingDown() bool {
	select {
	case <-c.shutdown:
		return true
	default:
		return false
	}
}

// Shutdown requests a harness-wide clean shutdown on the plugin's behalf.
func (c *PluginContext) Shutdown() {
	c.requestShutdown()
}

// Log emits a record under the plugin's own domain.
func (c *PluginContext) Log(level LogLevel, format string, args ...any) {
	// The domain was registered by the harness; a dispatch error here
	// means a handler problem, already counted by the registry.
	_ = c.registry.Log(c.domain, level, format, args...)
}

// Fatal logs a fatal failure under the plugin's domain.
func (c *PluginContext) Fatal(format string, args ...any) {
	c.Log(LevelFatal, format, args...)
}

// Error logs an error under the plugin's domain.
func (c *PluginContext) Error(format string, args ...any) {
	c.Log(LevelError, format, args...)
}

// Warning logs a warning under the plugin's domain.
func (c *PluginContext) Warning(format string, args ...any) {
	c.Log(LevelWarning, format, args...)
}

// Info logs an informational message under the plugin's domain.
func (c *PluginContext) Info(format string, args ...any) {
	c.Log(LevelInfo, format, args...)
}

// Debug logs a debug message under the plugin's domain.
func (c *PluginContext) Debug(format string, args ...any) {
	c.Log(LevelDebug, format, args...)
}
