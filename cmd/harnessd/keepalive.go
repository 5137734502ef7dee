// keepalive.go: built-in heartbeat plugin
//
// A minimal long-running plugin: logs a heartbeat at a configurable interval
// until shutdown is requested. Useful for verifying a deployment's logging
// and lifecycle wiring before any real proxy plugin is enabled.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"time"

	harness "github.com/agilira/go-harness"
)

func init() {
	if err := builtins.Register("keepalive", func() harness.Plugin {
		return &keepalivePlugin{interval: 8 * time.Second}
	}); err != nil {
		panic(err)
	}
}

type keepalivePlugin struct {
	interval time.Duration
}

func (p *keepalivePlugin) Info() harness.PluginInfo {
	return harness.PluginInfo{
		Name:       "keepalive",
		Version:    "1.0.0",
		ABIVersion: harness.HarnessABIVersion,
	}
}

func (p *keepalivePlugin) Init(ctx *harness.PluginContext) error {
	if section := ctx.Section(""); section != nil {
		raw := section.GetDefault("interval", "8s")
		interval, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		p.interval = interval
	}
	ctx.Info("keepalive initialized, interval %s", p.interval)
	return nil
}

func (p *keepalivePlugin) Start(ctx *harness.PluginContext) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx.Info("keepalive alive")
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *keepalivePlugin) Stop(ctx *harness.PluginContext) error {
	ctx.Info("keepalive stopping")
	return nil
}

func (p *keepalivePlugin) Deinit(ctx *harness.PluginContext) error {
	return nil
}
