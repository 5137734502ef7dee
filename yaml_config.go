// yaml_config.go: file-backed Configuration collaborator
//
// The daemon's default configuration collaborator: a YAML document mapping
// plugin names to ordered key/value sections, plus the logging surface. The
// harness core never touches this file; it consumes the Configuration
// interface only.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FileConfig is a Configuration read from a YAML file.
//
// Document layout:
//
//	logging:
//	  level: info
//	  domains:
//	    routing: debug
//	  handlers:
//	    - type: file
//	      path: /var/log/harnessd.log
//	plugins:
//	  - name: routing
//	    key: classic
//	    options:
//	      bind_address: "0.0.0.0:6446"
//	  - name: routing
//	    key: x
//	    options:
//	      bind_address: "0.0.0.0:6447"
type FileConfig struct {
	logging  LoggingConfig
	names    []string // distinct plugin names, declaration order
	sections map[string][]*ConfigSection
}

type fileConfigDoc struct {
	Logging LoggingConfig      `yaml:"logging"`
	Plugins []fileConfigPlugin `yaml:"plugins"`
}

type fileConfigPlugin struct {
	Name    string            `yaml:"name"`
	Key     string            `yaml:"key,omitempty"`
	Options map[string]string `yaml:"options,omitempty"`
}

// LoadConfigFile reads and parses a YAML configuration file.
func LoadConfigFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigFileError(path, err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, NewConfigParseError(path, err)
	}
	return cfg, nil
}

// ParseConfig parses a YAML configuration document.
func ParseConfig(data []byte) (*FileConfig, error) {
	var doc fileConfigDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	cfg := &FileConfig{
		logging:  doc.Logging,
		sections: make(map[string][]*ConfigSection),
	}
	for _, plugin := range doc.Plugins {
		if plugin.Name == "" {
			return nil, NewInvalidPluginNameError(plugin.Name)
		}
		section := NewConfigSection(plugin.Name, plugin.Key, plugin.Options)
		if _, seen := cfg.sections[plugin.Name]; !seen {
			cfg.names = append(cfg.names, plugin.Name)
		}
		cfg.sections[plugin.Name] = append(cfg.sections[plugin.Name], section)
	}
	return cfg, nil
}

// PluginNames returns the distinct plugin names declared in the file, in
// declaration order. The daemon feeds these to the module loader.
func (c *FileConfig) PluginNames() []string {
	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// SectionsFor implements Configuration.SectionsFor.
func (c *FileConfig) SectionsFor(plugin string) []*ConfigSection {
	return c.sections[plugin]
}

// Logging returns the logging surface declared in the file.
func (c *FileConfig) Logging() LoggingConfig {
	return c.logging
}
