package trace

import (
	"bufio"
	"io"
	"sync"
)

// StreamTracer formats every event as it arrives. Events for a writer the
// tracer does not own are written through; trace files are buffered and
// closed by Close.
type StreamTracer struct {
	mu     sync.Mutex
	level  Level
	format Format
	w      io.Writer
	buf    *bufio.Writer
	file   io.Closer
}

// NewStreamTracer writes events straight to w. Close leaves w open.
func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	return &StreamTracer{w: w, level: level, format: format}
}

func newFileTracer(f io.WriteCloser, level Level, format Format) *StreamTracer {
	buf := bufio.NewWriter(f)
	return &StreamTracer{w: buf, buf: buf, file: f, level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if ev == nil || !t.level.Covers(ev.Scope) {
		return
	}
	if ev.Seq == 0 {
		ev.Seq = NextSeq()
	}
	data := FormatEvent(ev, t.format)

	t.mu.Lock()
	defer t.mu.Unlock()
	// trace никогда не ломает линковку
	_, _ = t.w.Write(data) //nolint:errcheck
}

func (t *StreamTracer) Level() Level { return t.level }

func (t *StreamTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.buf.Flush()
	if cerr := t.file.Close(); err == nil {
		err = cerr
	}
	t.file = nil
	return err
}
