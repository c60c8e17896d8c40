package hh

import (
	"log"
	"os"
)

// Logger wraps the standard library logger the same way cmd/main.go uses
// log.Printf/log.Fatalf directly: no abstraction beyond what's needed to
// gate tracing output behind the gc.trace/insn.trace config flags and to
// prefix warnings distinctly from informational output.
type Logger struct {
	std       *log.Logger
	gcTrace   bool
	insnTrace bool
}

// NewLogger builds a Logger writing to stderr, with its trace gates read
// once from cfg at construction time.
func NewLogger(cfg *Config) *Logger {
	return &Logger{
		std:       log.New(os.Stderr, "", log.LstdFlags),
		gcTrace:   cfg.GetBool("gc.trace"),
		insnTrace: cfg.GetBool("insn.trace"),
	}
}

// Infof logs an informational message unconditionally.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.std.Printf("INFO "+format, args...)
}

// Warnf logs a warning unconditionally.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.std.Printf("WARN "+format, args...)
}

// Tracef logs an instruction-trace line, but only when insn.trace is on;
// callers guard this themselves too, since formatting the arguments has
// a cost the dispatch loop's hot path would rather skip entirely.
func (l *Logger) Tracef(format string, args ...interface{}) {
	if !l.insnTrace {
		return
	}
	l.std.Printf("TRACE "+format, args...)
}

// GCTracef logs a collector event, gated by gc.trace.
func (l *Logger) GCTracef(format string, args ...interface{}) {
	if !l.gcTrace {
		return
	}
	l.std.Printf("GC "+format, args...)
}
