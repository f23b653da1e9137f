package buildpipeline

import (
	"time"

	"rlink/internal/session"
)

// Stage describes a phase of producing one output.
type Stage string

const (
	// StageCheck verifies that the object and output paths are writable.
	StageCheck Stage = "check"
	// StageArchive assembles an rlib or staticlib.
	StageArchive Stage = "archive"
	// StageLink runs the system linker.
	StageLink Stage = "link"
	// StageCleanup removes intermediate files.
	StageCleanup Stage = "cleanup"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the output is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the output is currently being produced.
	StatusWorking Status = "working"
	// StatusDone indicates the output is done.
	StatusDone Status = "done"
	// StatusError indicates the output failed.
	StatusError Status = "error"
)

// Event reports progress for one output (or for the whole request when
// Output is empty).
type Event struct {
	Output  string
	Kind    session.OutputKind
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds stage durations summed over all outputs.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Add accumulates a duration for the given stage.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] += dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
