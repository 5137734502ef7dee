// root.go: harnessd command definition and wiring
//
// harnessd is the thin daemon shell around the harness library: it reads the
// configuration file, loads the plugins the file names, translates OS
// signals into a shutdown request, and hands control to Harness.Run. All
// lifecycle and logging semantics live in the library.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	harness "github.com/agilira/go-harness"
)

// builtins holds the plugins compiled into this daemon. Plugin packages
// register their factories here from their init functions.
var builtins = harness.NewBuiltinRegistry()

var (
	configPath  string
	moduleDir   string
	logLevel    string
	watchLevels bool
)

var rootCmd = &cobra.Command{
	Use:   "harnessd",
	Short: "Plugin harness daemon for the database proxy",
	Long: `harnessd loads the plugins named in its configuration file, resolves
their declared dependencies, and drives them through their lifecycle until
a shutdown signal arrives or a plugin fails fatally.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "harness.yaml",
		"path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&moduleDir, "module-dir", "",
		"directory with plugin shared objects (default: built-in plugins only)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override the configured default log level")
	rootCmd.PersistentFlags().BoolVar(&watchLevels, "watch-log-levels", true,
		"reload log levels when the configuration file changes")
}

// Execute runs the daemon command and returns the process exit code.
func Execute(version string) int {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func run() error {
	cfg, err := harness.LoadConfigFile(configPath)
	if err != nil {
		return err
	}

	logging := cfg.Logging()
	if logLevel != "" {
		logging.Level = logLevel
	}
	if len(logging.Handlers) == 0 {
		logging.Handlers = []harness.HandlerConfig{{Type: "stream", Stream: "stderr"}}
	}

	h, err := harness.New(harness.Options{
		Config:  cfg,
		Logging: logging,
		Loader:  newLoader(),
		Modules: cfg.PluginNames(),
	})
	if err != nil {
		return err
	}

	// Signal boundary: the harness never parses OS signals itself.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		<-signals
		h.RequestShutdown()
	}()

	if watchLevels {
		watcher := harness.NewLevelWatcher(h.Logging(), configPath,
			harness.DefaultLevelWatcherOptions())
		if err := watcher.Start(); err != nil {
			return err
		}
		defer func() { _ = watcher.Stop() }()
	}

	return h.Run()
}
