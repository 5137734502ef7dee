// harness_test.go: lifecycle orchestration tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHarness(t *testing.T, plugins ...Plugin) *Harness {
	t.Helper()
	h, err := New(Options{})
	require.NoError(t, err)
	for _, plugin := range plugins {
		require.NoError(t, h.RegisterPlugin(plugin))
	}
	return h
}

func TestHarness_LifecycleOrdering(t *testing.T) {
	// C requires B requires A: init [A B C], stop/deinit [C B A].
	j := &journal{}
	h := newTestHarness(t,
		newFakePlugin("A", j),
		newFakePlugin("B", j, "A"),
		newFakePlugin("C", j, "B"),
	)

	require.NoError(t, h.Run())

	assert.Equal(t, []string{
		"A:init", "B:init", "C:init",
		"C:stop", "B:stop", "A:stop",
		"C:deinit", "B:deinit", "A:deinit",
	}, j.snapshot())

	status := h.Status()
	for name, state := range status {
		assert.Equal(t, StateDeinitialized, state, "plugin %s", name)
	}
}

func TestHarness_InitFailureRollsBackInReverse(t *testing.T) {
	j := &journal{}
	a := newFakePlugin("A", j)
	b := newFakePlugin("B", j, "A")
	b.initErr = errors.New("no metadata cache")
	c := newFakePlugin("C", j, "B")
	h := newTestHarness(t, a, b, c)

	err := h.Run()
	require.Error(t, err)
	assert.Equal(t, ErrCodeInitFailed, ErrorCode(err))

	// A was deinit'd exactly once; B and C saw no deinit at all, and C
	// was never initialized.
	assert.Equal(t, []string{"A:init", "B:init", "A:deinit"}, j.snapshot())
	assert.Equal(t, 1, j.count("A:deinit"))
	assert.Equal(t, 0, j.count("C:init"))
	assert.Equal(t, 0, j.count("B:deinit"))

	assert.Equal(t, StateError, h.Status()["B"])
	assert.Equal(t, StateLoaded, h.Status()["C"])
}

func TestHarness_GraphErrorsAbortBeforeAnyPluginRuns(t *testing.T) {
	j := &journal{}
	h := newTestHarness(t, newFakePlugin("A", j, "ghost"))

	err := h.Run()
	require.Error(t, err)
	assert.Equal(t, ErrCodeMissingDependency, ErrorCode(err))
	assert.Empty(t, j.snapshot())
}

func TestHarness_ShutdownWithTwoRunningPlugins(t *testing.T) {
	j := &journal{}
	a := newFakeRunner("A", j)
	b := newFakeRunner("B", j, "A")
	h := newTestHarness(t, a, b)

	result := make(chan error, 1)
	go func() { result <- h.Run() }()

	<-a.started
	<-b.started
	h.RequestShutdown()

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("harness did not shut down")
	}

	entries := j.snapshot()

	// Both observed the signal and returned; both were stopped exactly
	// once, in reverse init order, after both goroutines were joined.
	assert.Equal(t, 1, j.count("A:stop"))
	assert.Equal(t, 1, j.count("B:stop"))
	assert.Less(t, j.index("A:start-returned"), j.index("B:stop"))
	assert.Less(t, j.index("B:start-returned"), j.index("B:stop"))
	assert.Less(t, j.index("B:stop"), j.index("A:stop"))
	assert.Less(t, j.index("B:deinit"), j.index("A:deinit"), "deinit reverse order, got %v", entries)
}

func TestHarness_RunToCompletionWorkersFinishCleanly(t *testing.T) {
	// All start routines returning on their own is a legitimate terminal
	// condition, not an error.
	j := &journal{}
	worker := newFakeRunner("batch", j)
	worker.run = func(ctx *PluginContext) error {
		ctx.Info("work done")
		return nil
	}
	h := newTestHarness(t, worker)

	require.NoError(t, h.Run())
	assert.Equal(t, 1, j.count("batch:stop"))
	assert.Equal(t, StateDeinitialized, h.Status()["batch"])
}

func TestHarness_RunFailureTriggersHarnessWideShutdown(t *testing.T) {
	j := &journal{}
	failing := newFakeRunner("failing", j)
	failing.run = func(ctx *PluginContext) error {
		return errors.New("lost backend connection")
	}
	steady := newFakeRunner("steady", j)
	h := newTestHarness(t, steady, failing)

	err := h.Run()
	require.Error(t, err)
	assert.Equal(t, ErrCodeRunFailed, ErrorCode(err))

	// The healthy plugin observed the shutdown and was finalized fully.
	assert.Equal(t, 1, j.count("steady:start-returned"))
	assert.Equal(t, 1, j.count("steady:stop"))
	assert.Equal(t, 1, j.count("steady:deinit"))

	assert.Equal(t, StateError, h.Status()["failing"])
	assert.Equal(t, StateDeinitialized, h.Status()["steady"])
}

func TestHarness_StopAndDeinitFailuresDoNotAbortFinalization(t *testing.T) {
	j := &journal{}
	a := newFakePlugin("A", j)
	a.deinitErr = errors.New("leak")
	b := newFakePlugin("B", j, "A")
	b.stopErr = errors.New("wedged")
	c := newFakePlugin("C", j, "B")
	h := newTestHarness(t, a, b, c)

	// Finalization is best-effort and total; the terminal result stays
	// clean because stop/deinit failures are non-fatal.
	require.NoError(t, h.Run())

	assert.Equal(t, 1, j.count("A:stop"))
	assert.Equal(t, 1, j.count("B:stop"))
	assert.Equal(t, 1, j.count("C:stop"))
	assert.Equal(t, 1, j.count("A:deinit"))
	assert.Equal(t, 1, j.count("B:deinit"))
	assert.Equal(t, 1, j.count("C:deinit"))

	finalization := h.FinalizationErrors()
	require.Len(t, finalization, 2)
	codes := []string{ErrorCode(finalization[0]), ErrorCode(finalization[1])}
	assert.Contains(t, codes, ErrCodeStopFailed)
	assert.Contains(t, codes, ErrCodeDeinitFailed)
}

func TestHarness_RegisterPlugin(t *testing.T) {
	t.Run("duplicate_name", func(t *testing.T) {
		j := &journal{}
		h := newTestHarness(t, newFakePlugin("routing", j))

		err := h.RegisterPlugin(newFakePlugin("routing", j))
		require.Error(t, err)
		assert.Equal(t, ErrCodeDuplicatePlugin, ErrorCode(err))
	})

	t.Run("abi_mismatch", func(t *testing.T) {
		h := newTestHarness(t)
		incompatible := newFakePlugin("old", &journal{})
		incompatible.info.ABIVersion = 0x0100

		err := h.RegisterPlugin(incompatible)
		require.Error(t, err)
		assert.Equal(t, ErrCodeABIVersion, ErrorCode(err))
	})

	t.Run("abi_minor_revision_accepted", func(t *testing.T) {
		h := newTestHarness(t)
		newer := newFakePlugin("newer", &journal{})
		newer.info.ABIVersion = HarnessABIVersion + 1

		assert.NoError(t, h.RegisterPlugin(newer))
	})

	t.Run("rejected_after_run", func(t *testing.T) {
		j := &journal{}
		h := newTestHarness(t, newFakePlugin("A", j))
		require.NoError(t, h.Run())

		err := h.RegisterPlugin(newFakePlugin("B", j))
		require.Error(t, err)
		assert.Equal(t, ErrCodeAlreadyRunning, ErrorCode(err))
	})
}

func TestHarness_RunIsSingleShot(t *testing.T) {
	h := newTestHarness(t, newFakePlugin("A", &journal{}))
	require.NoError(t, h.Run())

	err := h.Run()
	require.Error(t, err)
	assert.Equal(t, ErrCodeAlreadyRunning, ErrorCode(err))
}

func TestHarness_PluginContext(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
plugins:
  - name: routing
    key: classic
    options:
      bind_address: "0.0.0.0:6446"
  - name: routing
    key: x
    options:
      bind_address: "0.0.0.0:6447"
`))
	require.NoError(t, err)

	j := &journal{}
	plugin := newFakePlugin("routing", j)
	var sections []*ConfigSection
	plugin.initHook = func(ctx *PluginContext) {
		sections = ctx.Sections()
		if s := ctx.Section("x"); s != nil {
			addr, _ := s.Get("bind_address")
			j.add("x=%s", addr)
		}
	}

	h, err := New(Options{Config: cfg})
	require.NoError(t, err)
	require.NoError(t, h.RegisterPlugin(plugin))
	require.NoError(t, h.Run())

	require.Len(t, sections, 2)
	assert.Equal(t, "classic", sections[0].Key)
	assert.Equal(t, 1, j.count("x=0.0.0.0:6447"))
}

func TestHarness_PluginCanRequestShutdown(t *testing.T) {
	j := &journal{}
	requester := newFakeRunner("requester", j)
	requester.run = func(ctx *PluginContext) error {
		ctx.Shutdown()
		<-ctx.Done()
		return nil
	}
	bystander := newFakeRunner("bystander", j)
	h := newTestHarness(t, requester, bystander)

	done := make(chan error, 1)
	go func() { done <- h.Run() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("plugin-requested shutdown did not propagate")
	}
	assert.Equal(t, 1, j.count("bystander:start-returned"))
}

func TestHarness_PanickingPluginBecomesRunFailure(t *testing.T) {
	j := &journal{}
	unstable := newFakeRunner("unstable", j)
	unstable.run = func(ctx *PluginContext) error {
		panic("nil map write")
	}
	h := newTestHarness(t, unstable)

	err := h.Run()
	require.Error(t, err)
	assert.Equal(t, ErrCodeRunFailed, ErrorCode(err))
}

func TestHarness_ModulesLoadedThroughLoader(t *testing.T) {
	j := &journal{}
	loader := NewBuiltinRegistry()
	require.NoError(t, loader.Register("routing", func() Plugin {
		return newFakePlugin("routing", j)
	}))

	h, err := New(Options{Loader: loader, Modules: []string{"routing"}})
	require.NoError(t, err)
	require.NoError(t, h.Run())
	assert.Equal(t, 1, j.count("routing:init"))

	_, err = New(Options{Loader: loader, Modules: []string{"ghost"}})
	require.Error(t, err)
	assert.Equal(t, ErrCodeModuleNotFound, ErrorCode(err))
}

func TestHarness_ModulesWithoutLoaderRejected(t *testing.T) {
	_, err := New(Options{Modules: []string{"routing"}})
	require.Error(t, err)
	assert.Equal(t, ErrCodeNoLoader, ErrorCode(err))
}

func TestHarness_LoggingGoesThroughRootDomain(t *testing.T) {
	handler := newCountingHandler(LevelNotSet)
	h, err := New(Options{Logging: LoggingConfig{Level: "info"}})
	require.NoError(t, err)
	h.Logging().RegisterHandler(handler)
	require.NoError(t, h.RegisterPlugin(newFakePlugin("quiet", &journal{})))

	require.NoError(t, h.Run())
	assert.Positive(t, handler.calls(), "harness phases log under the root domain")
	record, ok := handler.lastRecord()
	require.True(t, ok)
	assert.Equal(t, RootDomain, record.Domain)
}
