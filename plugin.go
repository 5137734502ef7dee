// plugin.go: plugin descriptor and lifecycle contract
//
// A plugin is any value implementing Plugin. The harness drives the
// lifecycle entry points in dependency order; a plugin that also has a
// long-running routine additionally implements Runner and gets its own
// goroutine for the run phase.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

// HarnessABIVersion is the interface version the harness was built
// against, encoded as major<<8 | minor. A plugin is accepted when its
// declared major matches; the minor half carries no compatibility
// promise and is ignored.
const HarnessABIVersion uint32 = 0x0200

// PluginInfo describes a plugin to the harness. It is immutable once
// the plugin is registered.
type PluginInfo struct {
	// Name identifies the plugin and doubles as its logging domain
	// and configuration section name. Must be non-empty and unique.
	Name string

	// Version is informational, e.g. "1.2.3".
	Version string

	// Requires lists plugins that must be initialized before this
	// one and deinitialized after it.
	Requires []string

	// Conflicts lists plugins that must not be loaded together with
	// this one.
	Conflicts []string

	// ABIVersion is the HarnessABIVersion the plugin was built
	// against.
	ABIVersion uint32
}

// Plugin is the lifecycle contract every plugin implements.
//
// The harness calls Init once during startup, Stop once during
// shutdown, and Deinit once during teardown, each at most once and
// each from a single goroutine. None of the calls carry a deadline; a
// plugin that blocks indefinitely stalls its phase for the whole
// harness, so plugins are expected to return promptly.
type Plugin interface {
	// Info returns the plugin's descriptor.
	Info() PluginInfo

	// Init prepares the plugin for the run phase. A non-nil error
	// aborts startup and rolls back already-initialized plugins.
	Init(ctx *PluginContext) error

	// Stop is called during shutdown, after the plugin's start
	// routine (if any) has returned. It must be safe to call even
	// when the start routine failed.
	Stop(ctx *PluginContext) error

	// Deinit releases the plugin's resources. It is called for
	// every plugin that was initialized, in reverse dependency
	// order, regardless of earlier failures.
	Deinit(ctx *PluginContext) error
}

// Runner is implemented by plugins with a long-running routine. Start
// runs on its own goroutine and should return promptly once
// ctx.Done() is closed. A non-nil return triggers a harness-wide
// shutdown with the error as the fatal cause.
type Runner interface {
	Plugin
	Start(ctx *PluginContext) error
}

// checkABIVersion accepts a plugin whose declared major interface
// version matches the harness. Minor differences are tolerated.
func checkABIVersion(info PluginInfo) error {
	if info.ABIVersion>>8 != HarnessABIVersion>>8 {
		return NewABIVersionError(info.Name, info.ABIVersion, HarnessABIVersion)
	}
	return nil
}
