// logging.go: log levels, records and pluggable handlers
//
// This file defines the unit of log data produced by the harness and its
// plugins, together with the polymorphic handler abstraction that renders
// and writes records. Handlers carry their own minimum level and are shared
// between the logging registry and whoever created them.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package harness

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel orders log messages from most important (lowest value) to least
// important (highest value). A record is admitted when its level does not
// exceed the configured minimum.
type LogLevel int

const (
	// LevelFatal marks a failure the daemon usually exits after logging.
	LevelFatal LogLevel = iota

	// LevelError indicates something is not working and needs action; the
	// daemon keeps operating but the reporting plugin may terminate.
	LevelError

	// LevelWarning indicates a potential problem that does not interfere
	// with continuous operation.
	LevelWarning

	// LevelInfo carries information useful for checking normal behavior.
	LevelInfo

	// LevelDebug carries internal details for debugging.
	LevelDebug

	// LevelNotSet admits everything; always higher than all real levels.
	LevelNotSet
)

// DefaultLogLevel is used by domains and handlers that do not specify one.
const DefaultLogLevel = LevelWarning

// String returns the lowercase level name.
func (l LogLevel) String() string {
	switch l {
	case LevelFatal:
		return "fatal"
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	default:
		return "notset"
	}
}

// ParseLogLevel converts a level name (case-insensitive) to a LogLevel.
func ParseLogLevel(name string) (LogLevel, error) {
	switch strings.ToLower(name) {
	case "fatal":
		return LevelFatal, nil
	case "error":
		return LevelError, nil
	case "warning":
		return LevelWarning, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "notset", "":
		return LevelNotSet, nil
	default:
		return LevelNotSet, NewInvalidLogLevelError(name)
	}
}

// Record is the immutable unit of log data. It is created at the log call
// site and consumed synchronously by handlers; it is not retained beyond
// dispatch.
type Record struct {
	Level     LogLevel
	ProcessID int
	Created   time.Time
	Domain    string
	Message   string
}

// Handler is a pluggable log sink. Handle renders and writes a record; if a
// handler cannot record it, it returns an error and the registry downgrades
// the failure as described on Registry.Log.
//
// Records below a handler's own minimum level are silently dropped; that
// filtering is performed by the registry before Handle is invoked, using
// Level.
type Handler interface {
	Handle(record Record) error

	// SetLevel adjusts the handler's own minimum level.
	SetLevel(level LogLevel)

	// Level reports the handler's own minimum level.
	Level() LogLevel
}

// formatRecord renders a record as a single log line without the trailing
// newline. The layout is stable because operators and tests grep it:
//
//	2025-01-02 15:04:05 routing WARNING [1234] message text
func formatRecord(record Record) string {
	return fmt.Sprintf("%s %s %s [%d] %s",
		record.Created.Format("2006-01-02 15:04:05"),
		record.Domain,
		strings.ToUpper(record.Level.String()),
		record.ProcessID,
		record.Message)
}

// handlerLevel is the embeddable level guard shared by handler variants.
type handlerLevel struct {
	mu    sync.Mutex
	level LogLevel
}

// SetLevel implements Handler.SetLevel.
func (h *handlerLevel) SetLevel(level LogLevel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = level
}

// Level implements Handler.Level.
func (h *handlerLevel) Level() LogLevel {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level
}

// StreamHandler writes formatted records to an output stream. The stream may
// be shared with other writers; a per-handler mutex serializes writes so
// concurrent records are never interleaved, and the whole line is written in
// a single call so records cannot tear.
type StreamHandler struct {
	handlerLevel

	streamMu sync.Mutex
	stream   io.Writer
}

// NewStreamHandler creates a handler writing to the given stream with the
// given minimum level. Use LevelNotSet to admit every record the domain
// admits.
func NewStreamHandler(stream io.Writer, level LogLevel) *StreamHandler {
	h := &StreamHandler{stream: stream}
	h.level = level
	return h
}

// Handle implements Handler.Handle.
func (h *StreamHandler) Handle(record Record) error {
	line := formatRecord(record) + "\n"

	h.streamMu.Lock()
	defer h.streamMu.Unlock()

	if _, err := io.WriteString(h.stream, line); err != nil {
		return NewHandlerWriteError(err)
	}
	return nil
}

// FileHandler writes records to a log file it owns exclusively. It
// specializes StreamHandler: the file is opened for append on creation and
// held until Close.
type FileHandler struct {
	StreamHandler
	file *os.File
}

// NewFileHandler opens (creating if needed) the log file at path and returns
// a handler that appends records to it.
func NewFileHandler(path string, level LogLevel) (*FileHandler, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, NewHandlerOpenError(path, err)
	}

	h := &FileHandler{file: file}
	h.stream = file
	h.level = level
	return h, nil
}

// Close flushes and releases the underlying file. The registry calls it for
// registered handlers during teardown; it is safe to call twice.
func (h *FileHandler) Close() error {
	h.streamMu.Lock()
	defer h.streamMu.Unlock()

	if h.file == nil {
		return nil
	}
	err := h.file.Close()
	h.file = nil
	if err != nil {
		return NewHandlerCloseError(err)
	}
	return nil
}

// NullHandler discards every record. Useful for tests and for quiet
// operation while still exercising the dispatch path.
type NullHandler struct {
	handlerLevel
}

// NewNullHandler creates a discarding handler admitting every level.
func NewNullHandler() *NullHandler {
	h := &NullHandler{}
	h.level = LevelNotSet
	return h
}

// Handle implements Handler.Handle (no-op).
func (h *NullHandler) Handle(record Record) error { return nil }
