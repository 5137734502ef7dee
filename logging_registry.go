// logging_registry.go: process-scoped log domain table and dispatch
//
// The registry maps domain names (typically one per plugin, plus the root
// "harness" domain) to minimum levels and carries the global handler list
// attached to every domain. It is explicit process-scoped state: the harness
// constructs one at startup, hands it to plugins through their context, and
// tears it down at shutdown. Dispatch is called from arbitrarily many plugin
// goroutines concurrently; the internal lock is held only for the domain
// lookup and the handler snapshot, never across handler I/O.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/agilira/go-timecache"
)

// RootDomain is the domain the harness itself logs under.
const RootDomain = "harness"

// Registry is the process-scoped logging state. The zero value is not
// usable; create one with NewRegistry.
type Registry struct {
	mu           sync.Mutex
	pid          int
	defaultLevel LogLevel
	domains      map[string]LogLevel
	handlers     []Handler
	closed       bool

	dispatchFailures atomic.Uint64
	unknownDomains   atomic.Uint64

	// onSelfFatal fires when a fatal record could not be recorded by any
	// handler. Set once before dispatch begins (the harness points it at
	// its own shutdown path).
	onSelfFatal func(err error)
}

// NewRegistry creates an empty registry whose future domains default to
// DefaultLogLevel.
func NewRegistry() *Registry {
	return &Registry{
		pid:          os.Getpid(),
		defaultLevel: DefaultLogLevel,
		domains:      make(map[string]LogLevel),
	}
}

// OnSelfFatal installs the callback invoked when a fatal record is lost by
// every handler. Install it before plugins start logging; it is not
// synchronized against concurrent dispatch.
func (r *Registry) OnSelfFatal(fn func(err error)) {
	r.onSelfFatal = fn
}

// RegisterDomain adds a log domain. A domain must be registered before any
// log call naming it. Passing LevelNotSet as the initial level means "use
// the registry default at this moment". Registering the same name twice
// fails with a DuplicateDomain error.
func (r *Registry) RegisterDomain(name string, level LogLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.domains[name]; exists {
		return NewDuplicateDomainError(name)
	}
	if level == LevelNotSet {
		level = r.defaultLevel
	}
	r.domains[name] = level
	return nil
}

// SetLevel adjusts level filtering. An empty domain sets the default applied
// to newly-registered domains that do not specify one; a named domain must
// already be registered.
func (r *Registry) SetLevel(domain string, level LogLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if domain == "" {
		r.defaultLevel = level
		return nil
	}
	if _, exists := r.domains[domain]; !exists {
		return NewUnknownDomainError(domain)
	}
	r.domains[domain] = level
	return nil
}

// DomainLevel reports the configured minimum level for a domain.
func (r *Registry) DomainLevel(domain string) (LogLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	level, exists := r.domains[domain]
	if !exists {
		return LevelNotSet, NewUnknownDomainError(domain)
	}
	return level, nil
}

// Domains returns the registered domain names, sorted.
func (r *Registry) Domains() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.domains))
	for name := range r.domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterHandler attaches a handler to every domain at once.
func (r *Registry) RegisterHandler(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handler)
}

// UnregisterHandler detaches a previously attached handler. Detaching a
// handler that is not registered is a no-op.
func (r *Registry) UnregisterHandler(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, registered := range r.handlers {
		if registered == handler {
			r.handlers = append(r.handlers[:i], r.handlers[i+1:]...)
			return
		}
	}
}

// DispatchFailures reports how many handler invocations have failed since
// the registry was created. Handler failures never propagate to log callers
// (see Log); this counter is the visible trace they leave.
func (r *Registry) DispatchFailures() uint64 {
	return r.dispatchFailures.Load()
}

// Log builds a record for the domain and dispatches it.
//
// The domain must have been registered; logging to an unknown domain is a
// programming error, reported through the returned error and counted, never
// silently ignored. Records below the domain's minimum level are dropped
// before any handler sees them. Each attached handler then applies its own
// level filter.
//
// A failing (or panicking) handler never crashes the caller: the failure is
// counted and dispatch continues with the next handler. The one exception is
// a fatal record that no handler managed to record; that trips the
// registry's self-fatal callback and is reported to the caller, because a
// daemon that cannot record its own fatal condition must not die silently.
func (r *Registry) Log(domain string, level LogLevel, format string, args ...any) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	domainLevel, exists := r.domains[domain]
	handlers := make([]Handler, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.Unlock()

	if !exists {
		r.unknownDomains.Add(1)
		return NewUnknownDomainError(domain)
	}
	if level > domainLevel {
		return nil
	}

	record := Record{
		Level:     level,
		ProcessID: r.pid,
		Created:   timecache.CachedTime(),
		Domain:    domain,
		Message:   fmt.Sprintf(format, args...),
	}

	attempted, recorded := 0, 0
	for _, handler := range handlers {
		if level > handler.Level() {
			continue
		}
		attempted++
		if err := safeHandle(handler, record); err != nil {
			r.dispatchFailures.Add(1)
			continue
		}
		recorded++
	}

	if level == LevelFatal && attempted > 0 && recorded == 0 {
		err := NewFatalUnrecordedError(domain)
		if r.onSelfFatal != nil {
			r.onSelfFatal(err)
		}
		return err
	}
	return nil
}

// safeHandle invokes a handler, converting a panic into an error so a broken
// handler cannot take the logging caller down with it.
func safeHandle(handler Handler, record Record) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = NewHandlerWriteError(fmt.Errorf("handler panic: %v", recovered))
		}
	}()
	return handler.Handle(record)
}

// Close tears the registry down: every handler that owns resources (anything
// implementing io.Closer, such as FileHandler) is closed, the handler list
// is cleared, and further Log calls become no-ops. Close errors are
// aggregated into the returned error.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	handlers := r.handlers
	r.handlers = nil
	r.mu.Unlock()

	var firstErr error
	for _, handler := range handlers {
		closer, ok := handler.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
