package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelPhase, FormatText)
	ctx := WithTracer(context.Background(), tr)

	root, ctx := Start(ctx, ScopeDriver, "link")
	out, ctx := Start(ctx, ScopeOutput, "output:rlib")
	step, _ := Start(ctx, ScopeStep, "ranlib")
	step.End("")
	out.End("")
	root.End("ok")

	got := buf.String()
	if !strings.Contains(got, "→ link") || !strings.Contains(got, "← link (ok)") {
		t.Fatalf("driver span missing:\n%s", got)
	}
	if !strings.Contains(got, "output:rlib") {
		t.Fatalf("output span missing:\n%s", got)
	}
	if strings.Contains(got, "ranlib") {
		t.Fatalf("step span emitted at phase level:\n%s", got)
	}
}

func TestStartPropagatesParent(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	ctx := WithTracer(context.Background(), tr)

	parent, ctx := Start(ctx, ScopeDriver, "link")
	child, _ := Start(ctx, ScopeStep, "cc")
	child.End("")
	parent.End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d events, want 4", len(lines))
	}
	var ev struct {
		Name     string `json:"name"`
		ParentID uint64 `json:"parent_id"`
	}
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Name != "cc" || ev.ParentID != parent.ID() {
		t.Fatalf("child event = %+v, want parent %d", ev, parent.ID())
	}
}

func TestNopWhenDisabled(t *testing.T) {
	tr, err := Open(Config{Level: LevelOff})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if Enabled(tr) {
		t.Fatalf("tracer enabled at LevelOff")
	}
	span, ctx := Start(WithTracer(context.Background(), tr), ScopeDriver, "x")
	if span.ID() != 0 || CurrentSpan(ctx) != 0 {
		t.Fatalf("nop span got an id")
	}
	if span.End("") != 0 {
		t.Fatalf("nop span reported a duration")
	}
}

func TestParseLevelAndFormat(t *testing.T) {
	if l, err := ParseLevel("DETAIL"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("ParseLevel accepted junk")
	}
	if f, err := ParseFormat("json"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat = %v, %v", f, err)
	}
}

func TestLevelCovers(t *testing.T) {
	tests := []struct {
		level Level
		want  []Scope
	}{
		{LevelOff, nil},
		{LevelPhase, []Scope{ScopeDriver, ScopeOutput}},
		{LevelDetail, []Scope{ScopeDriver, ScopeOutput, ScopeStep}},
		{LevelDebug, []Scope{ScopeDriver, ScopeOutput, ScopeStep, ScopeMember}},
	}
	for _, tt := range tests {
		var got []Scope
		for _, s := range []Scope{ScopeDriver, ScopeOutput, ScopeStep, ScopeMember} {
			if tt.level.Covers(s) {
				got = append(got, s)
			}
		}
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Fatalf("%s covers %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestFileTracerFlushesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link.ndjson")
	tr, err := Open(Config{Level: LevelPhase, Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	span, _ := Start(WithTracer(context.Background(), tr), ScopeDriver, "link")
	span.End("")
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !json.Valid([]byte(lines[0])) {
		t.Fatalf("trace file = %q, want two ndjson events", data)
	}
}
