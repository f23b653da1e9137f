package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Tracer receives events. Emit must be safe for concurrent use: upstream
// metadata is read in parallel.
type Tracer interface {
	Emit(ev *Event)
	Level() Level
	// Close flushes buffered events and releases the output.
	Close() error
}

// Nop records nothing.
var Nop Tracer = nop{}

type nop struct{}

func (nop) Emit(*Event)  {}
func (nop) Level() Level { return LevelOff }
func (nop) Close() error { return nil }

// Enabled reports whether t records anything at all.
func Enabled(t Tracer) bool {
	return t != nil && t.Level() > LevelOff
}

// Config describes where the trace of one rlink run goes.
type Config struct {
	Level  Level
	Format Format
	// Writer takes precedence over Path.
	Writer io.Writer
	// Path is a file, or "-" / "" for stderr. With FormatAuto a .ndjson or
	// .jsonl extension selects NDJSON.
	Path string
}

// Open builds the tracer for cfg. LevelOff yields Nop.
func Open(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	format := cfg.Format
	if format == FormatAuto {
		format = FormatText
		switch filepath.Ext(cfg.Path) {
		case ".ndjson", ".jsonl":
			format = FormatNDJSON
		}
	}

	switch {
	case cfg.Writer != nil:
		return NewStreamTracer(cfg.Writer, cfg.Level, format), nil
	case cfg.Path == "" || cfg.Path == "-":
		return NewStreamTracer(os.Stderr, cfg.Level, format), nil
	}
	f, err := os.Create(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return newFileTracer(f, cfg.Level, format), nil
}
