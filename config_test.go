// config_test.go: configuration collaborator tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
logging:
  level: info
  domains:
    routing: debug
  handlers:
    - type: stream
      stream: stderr
      level: warning
plugins:
  - name: metadata
    options:
      refresh_interval: "300"
  - name: routing
    key: classic
    options:
      bind_address: "0.0.0.0:6446"
      destinations: "metadata-cache://main/default"
  - name: routing
    key: x
    options:
      bind_address: "0.0.0.0:6447"
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	t.Run("plugin_names_in_declaration_order", func(t *testing.T) {
		assert.Equal(t, []string{"metadata", "routing"}, cfg.PluginNames())
	})

	t.Run("sections_routed_by_plugin_name", func(t *testing.T) {
		sections := cfg.SectionsFor("routing")
		require.Len(t, sections, 2)
		assert.Equal(t, "classic", sections[0].Key)
		assert.Equal(t, "x", sections[1].Key)

		addr, ok := sections[0].Get("bind_address")
		require.True(t, ok)
		assert.Equal(t, "0.0.0.0:6446", addr)

		_, ok = sections[0].Get("absent")
		assert.False(t, ok)
		assert.Equal(t, "fallback", sections[0].GetDefault("absent", "fallback"))
		assert.Equal(t, []string{"bind_address", "destinations"}, sections[0].Options())
	})

	t.Run("unknown_plugin_has_no_sections", func(t *testing.T) {
		assert.Empty(t, cfg.SectionsFor("ghost"))
	})

	t.Run("logging_surface", func(t *testing.T) {
		logging := cfg.Logging()
		assert.Equal(t, "info", logging.Level)
		assert.Equal(t, "debug", logging.Domains["routing"])
		require.Len(t, logging.Handlers, 1)
		assert.Equal(t, "stream", logging.Handlers[0].Type)
	})
}

func TestParseConfig_Invalid(t *testing.T) {
	t.Run("malformed_yaml", func(t *testing.T) {
		_, err := ParseConfig([]byte("plugins: [unclosed"))
		require.Error(t, err)
	})

	t.Run("nameless_plugin", func(t *testing.T) {
		_, err := ParseConfig([]byte("plugins:\n  - key: orphan\n"))
		require.Error(t, err)
		assert.Equal(t, ErrCodeInvalidPluginName, ErrorCode(err))
	})
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harness.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"metadata", "routing"}, cfg.PluginNames())

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeConfigFile, ErrorCode(err))
}

func TestApplyLoggingDefaults(t *testing.T) {
	registry := NewRegistry()
	logPath := filepath.Join(t.TempDir(), "harness.log")

	err := applyLoggingDefaults(registry, LoggingConfig{
		Level: "debug",
		Handlers: []HandlerConfig{
			{Type: "file", Path: logPath, Level: "info"},
		},
	})
	require.NoError(t, err)

	// Domains registered afterwards inherit the configured default.
	require.NoError(t, registry.RegisterDomain("routing", LevelNotSet))
	level, err := registry.DomainLevel("routing")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, level)

	require.NoError(t, registry.Log("routing", LevelInfo, "reaches the file"))
	require.NoError(t, registry.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "reaches the file")
}

func TestApplyLoggingDefaults_Invalid(t *testing.T) {
	t.Run("bad_level", func(t *testing.T) {
		err := applyLoggingDefaults(NewRegistry(), LoggingConfig{Level: "verbose"})
		require.Error(t, err)
		assert.Equal(t, ErrCodeInvalidLogLevel, ErrorCode(err))
	})

	t.Run("bad_handler_type", func(t *testing.T) {
		err := applyLoggingDefaults(NewRegistry(), LoggingConfig{
			Handlers: []HandlerConfig{{Type: "syslog"}},
		})
		require.Error(t, err)
	})
}

func TestApplyDomainOverrides(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.RegisterDomain("routing", LevelWarning))

	err := applyDomainOverrides(registry, map[string]string{
		"routing": "debug",
		"ghost":   "info", // unknown domains are operator hints, not failures
	})
	require.NoError(t, err)

	level, err := registry.DomainLevel("routing")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, level)
}
