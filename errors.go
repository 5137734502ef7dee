// errors.go: structured error definitions for the harness
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"strings"

	"github.com/agilira/go-errors"
)

// Error codes for the harness
const (
	// Startup-graph errors (1000-1099): fatal, reported before any plugin runs
	ErrCodeDuplicatePlugin    = "HARNESS_1001"
	ErrCodeMissingDependency  = "HARNESS_1002"
	ErrCodeCyclicDependency   = "HARNESS_1003"
	ErrCodeConflictingPlugins = "HARNESS_1004"
	ErrCodeABIVersion         = "HARNESS_1005"
	ErrCodeInvalidPluginName  = "HARNESS_1006"

	// Lifecycle errors (1200-1299)
	ErrCodeInitFailed      = "HARNESS_1201"
	ErrCodeRunFailed       = "HARNESS_1202"
	ErrCodeStopFailed      = "HARNESS_1203"
	ErrCodeDeinitFailed    = "HARNESS_1204"
	ErrCodeAlreadyRunning  = "HARNESS_1205"
	ErrCodeStateTransition = "HARNESS_1206"

	// Logging errors (1300-1399)
	ErrCodeDuplicateDomain = "LOGGING_1301"
	ErrCodeUnknownDomain   = "LOGGING_1302"
	ErrCodeInvalidLogLevel = "LOGGING_1303"
	ErrCodeHandlerOpen     = "LOGGING_1304"
	ErrCodeHandlerWrite    = "LOGGING_1305"
	ErrCodeHandlerClose    = "LOGGING_1306"
	ErrCodeFatalUnrecorded = "LOGGING_1307"

	// Configuration errors (1400-1499)
	ErrCodeConfigParse = "CONFIG_1401"
	ErrCodeConfigFile  = "CONFIG_1402"

	// Loader errors (1500-1599)
	ErrCodeModuleLoad     = "LOADER_1501"
	ErrCodeModuleNotFound = "LOADER_1502"
	ErrCodeNoLoader       = "LOADER_1503"
)

// Startup-graph error constructors

func NewDuplicatePluginError(name string) *errors.Error {
	return errors.New(ErrCodeDuplicatePlugin, "Duplicate plugin name").
		WithUserMessage("A plugin with this name is already registered").
		WithContext("plugin", name).
		WithSeverity("error")
}

func NewMissingDependencyError(plugin, missing string) *errors.Error {
	return errors.New(ErrCodeMissingDependency, "Missing dependency").
		WithUserMessage("Plugin requires another plugin that is not loaded").
		WithContext("plugin", plugin).
		WithContext("requires", missing).
		WithSeverity("error")
}

func NewCyclicDependencyError(cycle []string) *errors.Error {
	return errors.New(ErrCodeCyclicDependency, "Cyclic dependency").
		WithUserMessage("Plugin requirements form a cycle").
		WithContext("cycle", strings.Join(cycle, " -> ")).
		WithSeverity("error")
}

func NewConflictingPluginsError(a, b string) *errors.Error {
	return errors.New(ErrCodeConflictingPlugins, "Conflicting plugins").
		WithUserMessage("Two plugins scheduled to load declare each other as conflicting").
		WithContext("plugin", a).
		WithContext("conflicts_with", b).
		WithSeverity("error")
}

func NewABIVersionError(name string, plugin, harness uint32) *errors.Error {
	return errors.New(ErrCodeABIVersion, "Incompatible plugin ABI version").
		WithUserMessage("Plugin was built against an incompatible harness ABI").
		WithContext("plugin", name).
		WithContext("plugin_abi", plugin).
		WithContext("harness_abi", harness).
		WithSeverity("error")
}

func NewInvalidPluginNameError(name string) *errors.Error {
	return errors.New(ErrCodeInvalidPluginName, "Invalid plugin name").
		WithUserMessage("Plugin name is required and cannot be empty").
		WithContext("provided_name", name).
		WithSeverity("error")
}

// Lifecycle error constructors

func NewInitFailedError(plugin string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeInitFailed, "Plugin initialization failed").
		WithUserMessage("Startup aborted; already-initialized plugins were rolled back").
		WithContext("plugin", plugin).
		WithSeverity("critical")
}

func NewRunFailedError(plugin string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeRunFailed, "Plugin run failed").
		WithUserMessage("A running plugin reported an unrecoverable error").
		WithContext("plugin", plugin).
		WithSeverity("critical")
}

func NewStopFailedError(plugin string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeStopFailed, "Plugin stop failed").
		WithContext("plugin", plugin).
		WithSeverity("warning")
}

func NewDeinitFailedError(plugin string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeDeinitFailed, "Plugin deinitialization failed").
		WithContext("plugin", plugin).
		WithSeverity("warning")
}

func NewAlreadyRunningError() *errors.Error {
	return errors.New(ErrCodeAlreadyRunning, "Harness already running").
		WithSeverity("error")
}

func NewStateTransitionError(plugin string, from, to PluginState) *errors.Error {
	return errors.New(ErrCodeStateTransition, "Illegal plugin state transition").
		WithContext("plugin", plugin).
		WithContext("from", from.String()).
		WithContext("to", to.String()).
		WithSeverity("error")
}

// Logging error constructors

func NewDuplicateDomainError(name string) *errors.Error {
	return errors.New(ErrCodeDuplicateDomain, "Duplicate log domain").
		WithUserMessage("The log domain is already registered").
		WithContext("domain", name).
		WithSeverity("error")
}

func NewUnknownDomainError(name string) *errors.Error {
	return errors.New(ErrCodeUnknownDomain, "Unknown log domain").
		WithUserMessage("Logging to a domain that was never registered is a programming error").
		WithContext("domain", name).
		WithSeverity("error")
}

func NewInvalidLogLevelError(name string) *errors.Error {
	return errors.New(ErrCodeInvalidLogLevel, "Invalid log level").
		WithContext("provided_level", name).
		WithSeverity("error")
}

func NewHandlerOpenError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeHandlerOpen, "Cannot open log file").
		WithContext("path", path).
		WithSeverity("error")
}

func NewHandlerWriteError(cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeHandlerWrite, "Log handler write failed").
		WithSeverity("warning")
}

func NewHandlerCloseError(cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeHandlerClose, "Log handler close failed").
		WithSeverity("warning")
}

func NewFatalUnrecordedError(domain string) *errors.Error {
	return errors.New(ErrCodeFatalUnrecorded, "Fatal record lost by every handler").
		WithUserMessage("No registered handler was able to record a fatal message").
		WithContext("domain", domain).
		WithSeverity("critical")
}

// Configuration error constructors

func NewConfigParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigParse, "Cannot parse configuration").
		WithContext("path", path).
		WithSeverity("error")
}

func NewConfigFileError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigFile, "Cannot read configuration file").
		WithContext("path", path).
		WithSeverity("error")
}

// Loader error constructors

func NewModuleLoadError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeModuleLoad, "Cannot load plugin module").
		WithContext("module", path).
		WithSeverity("error")
}

func NewModuleNotFoundError(name string) *errors.Error {
	return errors.New(ErrCodeModuleNotFound, "Plugin module not found").
		WithContext("module", name).
		WithSeverity("error")
}

func NewNoLoaderError(modules []string) *errors.Error {
	return errors.New(ErrCodeNoLoader, "Modules requested but no module loader configured").
		WithUserMessage("Configure a module loader or remove the module list").
		WithContext("modules", modules).
		WithSeverity("error")
}

// ErrorCode extracts the harness error code from err, or the empty string if
// err does not carry one.
func ErrorCode(err error) string {
	if structured, ok := err.(*errors.Error); ok {
		return string(structured.Code)
	}
	return ""
}
