// Package observ collects wall-clock timings of link passes.
package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Pass records the duration of one timed step.
type Pass struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks the execution time of link passes. Safe for concurrent use.
type Timer struct {
	mu     sync.Mutex
	passes []Pass
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{passes: make([]Pass, 0, 8)} }

// Begin starts a new pass and returns its index.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.passes = append(t.passes, Pass{Name: name, Start: time.Now()})
	return len(t.passes) - 1
}

// End finishes a pass by its index.
func (t *Timer) End(idx int, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.passes) {
		return
	}
	p := &t.passes[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Measure times fn under name. A returned error is recorded as the note.
func (t *Timer) Measure(name string, fn func() error) error {
	idx := t.Begin(name)
	err := fn()
	note := ""
	if err != nil {
		note = "failed"
	}
	t.End(idx, note)
	return err
}

// Len returns the number of recorded passes.
func (t *Timer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.passes)
}

// Summary returns a human-readable string summarizing all tracked passes.
func (t *Timer) Summary() string {
	report := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range report.Passes {
		fmt.Fprintf(&b, "  %-28s %9.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			b.WriteString("  // " + p.Note)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  %-28s %9.2f ms\n", "total", report.TotalMS)
	return b.String()
}

// PassReport представляет сжатую информацию о проходе для сериализации.
type PassReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report описывает агрегированные данные таймера.
type Report struct {
	TotalMS float64      `json:"total_ms"`
	Passes  []PassReport `json:"passes"`
}

// Report формирует срез проходов и общую длительность в миллисекундах.
func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.passes) == 0 {
		return Report{}
	}
	report := Report{
		Passes: make([]PassReport, len(t.passes)),
	}
	var total time.Duration
	for i, p := range t.passes {
		total += p.Dur
		report.Passes[i] = PassReport{
			Name:       p.Name,
			DurationMS: durationToMillis(p.Dur),
			Note:       p.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
