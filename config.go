// config.go: configuration collaborator surface
//
// The harness does not interpret configuration values. A collaborator
// supplies, per plugin name, an ordered set of key/value sections; the
// harness only routes the matching sections into the matching plugin's init
// context. This file defines that surface plus the logging configuration
// the surrounding application hands over before the harness starts.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"io"
	"os"
	"sort"
)

// ConfigSection is one key/value section bound to a plugin. A plugin may be
// bound to several sections distinguished by Key (for example one routing
// section per listening port). Once handed to a plugin's init context the
// section is exclusively owned by that plugin instance.
type ConfigSection struct {
	// Name is the plugin name the section is addressed to.
	Name string

	// Key distinguishes multiple sections for the same plugin. Optional.
	Key string

	options map[string]string
}

// NewConfigSection creates a section with a copy of the given options.
func NewConfigSection(name, key string, options map[string]string) *ConfigSection {
	copied := make(map[string]string, len(options))
	for k, v := range options {
		copied[k] = v
	}
	return &ConfigSection{Name: name, Key: key, options: copied}
}

// Get returns the value for an option and whether it is present.
func (s *ConfigSection) Get(option string) (string, bool) {
	value, ok := s.options[option]
	return value, ok
}

// GetDefault returns the value for an option, or fallback when absent.
func (s *ConfigSection) GetDefault(option, fallback string) string {
	if value, ok := s.options[option]; ok {
		return value
	}
	return fallback
}

// Options returns the section's option names, sorted.
func (s *ConfigSection) Options() []string {
	names := make([]string, 0, len(s.options))
	for name := range s.options {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Configuration supplies configuration sections to the harness. The on-disk
// format it was read from is none of the harness's business.
type Configuration interface {
	// SectionsFor returns the sections bound to a plugin name, in the
	// order they were declared. An empty slice means the plugin runs
	// unconfigured; that is the plugin's call to accept or reject.
	SectionsFor(plugin string) []*ConfigSection
}

// HandlerConfig describes one log handler the surrounding application wants
// attached before the harness starts.
type HandlerConfig struct {
	// Type selects the handler variant: "stream" or "file".
	Type string `yaml:"type"`

	// Stream names the output for stream handlers: "stdout" or "stderr".
	Stream string `yaml:"stream,omitempty"`

	// Path is the log file for file handlers.
	Path string `yaml:"path,omitempty"`

	// Level is the handler's own minimum level name; empty means notset.
	Level string `yaml:"level,omitempty"`
}

// LoggingConfig is the logging surface supplied by the surrounding
// application: a default level, optional per-domain overrides, and zero or
// more handler specifications.
type LoggingConfig struct {
	Level    string            `yaml:"level,omitempty"`
	Domains  map[string]string `yaml:"domains,omitempty"`
	Handlers []HandlerConfig   `yaml:"handlers,omitempty"`
}

// buildHandler constructs the handler a HandlerConfig describes.
func buildHandler(cfg HandlerConfig) (Handler, error) {
	level, err := ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "file":
		return NewFileHandler(cfg.Path, level)
	case "stream", "":
		var stream io.Writer = os.Stderr
		if cfg.Stream == "stdout" {
			stream = os.Stdout
		}
		return NewStreamHandler(stream, level), nil
	default:
		return nil, NewConfigParseError(cfg.Type, NewInvalidLogLevelError(cfg.Type))
	}
}

// applyLoggingDefaults pushes the default level and the configured handlers
// into a registry. It runs at harness construction, before any domain is
// registered, so plugins registered later inherit the configured default.
func applyLoggingDefaults(registry *Registry, cfg LoggingConfig) error {
	if cfg.Level != "" {
		level, err := ParseLogLevel(cfg.Level)
		if err != nil {
			return err
		}
		if err := registry.SetLevel("", level); err != nil {
			return err
		}
	}

	for _, handlerCfg := range cfg.Handlers {
		handler, err := buildHandler(handlerCfg)
		if err != nil {
			return err
		}
		registry.RegisterHandler(handler)
	}
	return nil
}

// applyDomainOverrides applies per-domain level overrides. It runs once all
// plugin domains exist. An override naming a domain that is not loaded in
// this run is an operator hint, not a failure.
func applyDomainOverrides(registry *Registry, overrides map[string]string) error {
	for domain, name := range overrides {
		level, err := ParseLogLevel(name)
		if err != nil {
			return err
		}
		if err := registry.SetLevel(domain, level); err != nil {
			if ErrorCode(err) != ErrCodeUnknownDomain {
				return err
			}
		}
	}
	return nil
}
