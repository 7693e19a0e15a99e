// Package report carries diagnostics out of the store without binding it to a
// process-wide logger. Usage errors are warnings (the operation is a no-op and
// the caller also gets a typed error); internal invariant violations are fatal.
package report

import (
	"fmt"
	"log/slog"
)

// Reporter receives diagnostics from the store.
//
// Warnf reports a precondition violation: the offending operation did not
// mutate anything and the caller received an error describing it.
//
// Fatalf reports a broken internal invariant (unexpected state enum value,
// conflicting saved topology). Implementations must not return normally.
type Reporter interface {
	Warnf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// LogReporter forwards warnings to a slog.Logger and panics on Fatalf.
type LogReporter struct {
	log *slog.Logger
}

// NewLogReporter returns a LogReporter backed by l, or slog.Default() when l
// is nil.
func NewLogReporter(l *slog.Logger) *LogReporter {
	if l == nil {
		l = slog.Default()
	}
	return &LogReporter{log: l}
}

func (r *LogReporter) Warnf(format string, args ...any) {
	r.log.Warn(fmt.Sprintf(format, args...))
}

func (r *LogReporter) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.log.Error(msg)
	panic("store: " + msg)
}

// Recorder collects diagnostics for tests. Fatalf still panics so that abort
// semantics hold under test.
type Recorder struct {
	Warnings []string
	Fatals   []string
}

func (r *Recorder) Warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Recorder) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.Fatals = append(r.Fatals, msg)
	panic("store: " + msg)
}
