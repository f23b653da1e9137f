// Package session carries the state of one link invocation: options, the
// target platform, collected diagnostics, pass timings and the injected
// subprocess runner.
package session

import (
	"errors"
	"fmt"
	"io"
	"os"

	"rlink/internal/diag"
	"rlink/internal/observ"
	"rlink/internal/target"
	"rlink/internal/toolexec"
)

// ErrAborted is returned once errors were reported and the current output
// cannot continue. The details are in the session's diagnostics.
var ErrAborted = errors.New("aborting due to previous errors")

// ErrBug marks internal invariant violations.
var ErrBug = errors.New("internal compiler error")

// Session is one link invocation. It is not safe for concurrent use.
type Session struct {
	Opts   Options
	Target target.Platform

	runner   toolexec.Runner
	bag      *diag.Bag
	reporter diag.Reporter
	dedup    *diag.DedupReporter
	timer    *observ.Timer
	stdout   io.Writer
	scope    int
}

// Option configures a Session.
type Option func(*Session)

// WithRunner injects the subprocess runner.
func WithRunner(r toolexec.Runner) Option {
	return func(s *Session) { s.runner = r }
}

// WithStdout redirects --print-link-args output.
func WithStdout(w io.Writer) Option {
	return func(s *Session) { s.stdout = w }
}

// WithReporter forwards every diagnostic to r in addition to the bag.
func WithReporter(r diag.Reporter) Option {
	return func(s *Session) {
		s.reporter = diag.MultiReporter{s.reporter, r}
	}
}

// New creates a session. Without WithRunner commands run on the host.
func New(opts Options, plat target.Platform, options ...Option) *Session {
	bag := diag.NewBag(0)
	dedup := diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	s := &Session{
		Opts:     opts,
		Target:   plat,
		runner:   toolexec.ExecRunner{},
		bag:      bag,
		reporter: dedup,
		dedup:    dedup,
		timer:    observ.NewTimer(),
		stdout:   os.Stdout,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Runner returns the injected subprocess runner.
func (s *Session) Runner() toolexec.Runner {
	return s.runner
}

// Diagnostics returns everything reported so far.
func (s *Session) Diagnostics() *diag.Bag {
	return s.bag
}

func (s *Session) Reporter() diag.Reporter {
	return s.reporter
}

func (s *Session) Timer() *observ.Timer {
	return s.timer
}

func (s *Session) Stdout() io.Writer {
	return s.stdout
}

// TargetLibPath is the sysroot directory with the runtime libraries.
func (s *Session) TargetLibPath() string {
	return target.TargetLibDir(s.Opts.Sysroot, s.Target.OS)
}

// Report starts a diagnostic bound to the session reporter.
func (s *Session) Report(sev diag.Severity, code diag.Code, msg string) *diag.ReportBuilder {
	return diag.NewReportBuilder(s.reporter, sev, code, msg)
}

// Err reports a non-fatal error; the current output keeps going until the
// next AbortIfErrors.
func (s *Session) Err(code diag.Code, format string, args ...any) {
	s.Report(diag.SevError, code, fmt.Sprintf(format, args...)).Emit()
}

func (s *Session) Warn(code diag.Code, format string, args ...any) {
	s.Report(diag.SevWarning, code, fmt.Sprintf(format, args...)).Emit()
}

func (s *Session) Note(code diag.Code, format string, args ...any) {
	s.Report(diag.SevInfo, code, fmt.Sprintf(format, args...)).Emit()
}

// Fatalf reports an error and returns ErrAborted for the caller to
// propagate.
func (s *Session) Fatalf(code diag.Code, format string, args ...any) error {
	s.Err(code, format, args...)
	return ErrAborted
}

// Bug reports an internal invariant violation.
func (s *Session) Bug(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	s.Report(diag.SevError, diag.BugInvariant, "internal error: "+msg).Emit()
	return fmt.Errorf("%w: %s", ErrBug, msg)
}

// BeginOutput starts a new error scope. Errors reported while producing
// an earlier artifact do not abort the next one, and the same error hit
// again by this artifact is reported again.
func (s *Session) BeginOutput() {
	s.scope = s.bag.ErrorCount()
	s.dedup.Reset()
}

// ErrorCount is the number of errors in the current scope.
func (s *Session) ErrorCount() int {
	return s.bag.ErrorCount() - s.scope
}

// AbortIfErrors returns ErrAborted when the current scope has errors.
func (s *Session) AbortIfErrors() error {
	if s.ErrorCount() > 0 {
		return ErrAborted
	}
	return nil
}

// Time runs fn, recording its duration when pass timing is enabled.
func (s *Session) Time(what string, fn func() error) error {
	if !s.Opts.TimePasses {
		return fn()
	}
	return s.timer.Measure(what, fn)
}
