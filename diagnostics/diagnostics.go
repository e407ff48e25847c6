// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package diagnostics implements the explicit diagnostics sink threaded
// through the stream and archive layers, in place of a process-wide
// console handle.
package diagnostics

import (
	"io"
	"log/slog"
	"os"
)

// Sink receives warnings and non-fatal error reports emitted while
// reading or writing a stream. It wraps log/slog the way
// ethereum-go-ethereum's log package does, rather than adopting a
// third-party logging framework.
type Sink struct {
	log *slog.Logger
}

// NewSink creates a Sink that writes structured text records to w.
func NewSink(w io.Writer) *Sink {
	return &Sink{log: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{}))}
}

// Default returns the package-level default sink (stderr).
func Default() *Sink {
	return defaultSink
}

var defaultSink = NewSink(os.Stderr)

// Warn reports a recoverable condition at a given stream offset.
func (s *Sink) Warn(msg string, offset int64, args ...any) {
	if s == nil {
		return
	}
	a := append([]any{"offset", offset}, args...)
	s.log.Warn(msg, a...)
}

// Trap reports a breakpoint hit.
func (s *Sink) Trap(op string, begin, end int64) {
	if s == nil {
		return
	}
	s.log.Warn("breakpoint hit", "op", op, "begin", begin, "end", end)
}

// Region reports a diagnostic inside a named scoped region, along
// with the current region stack so the message reads the way
// Reader.warnAt's stack trace does.
func (s *Sink) Region(msg string, offset int64, stack []string) {
	if s == nil {
		return
	}
	s.log.Warn(msg, "offset", offset, "regions", stack)
}
