// testing_helpers_test.go: shared fakes for harness tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"fmt"
	"sync"
)

// journal records lifecycle events in call order, safe for use from
// concurrently running plugin goroutines.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	entries := make([]string, len(j.entries))
	copy(entries, j.entries)
	return entries
}

// count returns how many recorded entries equal the given one.
func (j *journal) count(entry string) int {
	n := 0
	for _, recorded := range j.snapshot() {
		if recorded == entry {
			n++
		}
	}
	return n
}

// index returns the position of the first matching entry, or -1.
func (j *journal) index(entry string) int {
	for i, recorded := range j.snapshot() {
		if recorded == entry {
			return i
		}
	}
	return -1
}

// fakePlugin is a lifecycle-only plugin (no start routine).
type fakePlugin struct {
	info      PluginInfo
	journal   *journal
	initErr   error
	stopErr   error
	deinitErr error
	initHook  func(ctx *PluginContext)
}

func newFakePlugin(name string, j *journal, requires ...string) *fakePlugin {
	return &fakePlugin{
		info: PluginInfo{
			Name:       name,
			Version:    "1.0.0",
			Requires:   requires,
			ABIVersion: HarnessABIVersion,
		},
		journal: j,
	}
}

func (p *fakePlugin) Info() PluginInfo { return p.info }

func (p *fakePlugin) Init(ctx *PluginContext) error {
	p.journal.add("%s:init", p.info.Name)
	if p.initHook != nil {
		p.initHook(ctx)
	}
	return p.initErr
}

func (p *fakePlugin) Stop(ctx *PluginContext) error {
	p.journal.add("%s:stop", p.info.Name)
	return p.stopErr
}

func (p *fakePlugin) Deinit(ctx *PluginContext) error {
	p.journal.add("%s:deinit", p.info.Name)
	return p.deinitErr
}

// fakeRunner adds a long-running start routine to fakePlugin. If run is nil
// the routine waits for shutdown and returns cleanly.
type fakeRunner struct {
	fakePlugin
	started chan struct{} // closed once the start routine is live
	run     func(ctx *PluginContext) error
}

func newFakeRunner(name string, j *journal, requires ...string) *fakeRunner {
	return &fakeRunner{
		fakePlugin: *newFakePlugin(name, j, requires...),
		started:    make(chan struct{}),
	}
}

func (p *fakeRunner) Start(ctx *PluginContext) error {
	p.journal.add("%s:start", p.info.Name)
	close(p.started)
	var err error
	if p.run != nil {
		err = p.run(ctx)
	} else {
		<-ctx.Done()
	}
	p.journal.add("%s:start-returned", p.info.Name)
	return err
}

// countingHandler counts Handle invocations and optionally fails them.
type countingHandler struct {
	handlerLevel
	mu      sync.Mutex
	records []Record
	failErr error
}

func newCountingHandler(level LogLevel) *countingHandler {
	h := &countingHandler{}
	h.level = level
	return h
}

func (h *countingHandler) Handle(record Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failErr != nil {
		return h.failErr
	}
	h.records = append(h.records, record)
	return nil
}

func (h *countingHandler) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func (h *countingHandler) lastRecord() (Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.records) == 0 {
		return Record{}, false
	}
	return h.records[len(h.records)-1], true
}
