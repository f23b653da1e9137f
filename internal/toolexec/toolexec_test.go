package toolexec

import (
	"context"
	"runtime"
	"strings"
	"testing"
)

func TestCommandString(t *testing.T) {
	c := Command{Name: "cc", Args: []string{"-o", "out dir/a.out", "x.o"}}
	got := c.String()
	if !strings.HasPrefix(got, "cc -o ") || !strings.Contains(got, "'out dir/a.out'") {
		t.Fatalf("String = %q", got)
	}
}

func TestQuoteArgs(t *testing.T) {
	if got := QuoteArgs([]string{"-L/lib", "-o", "out"}); got != "'-L/lib' '-o' 'out'" {
		t.Fatalf("QuoteArgs = %q", got)
	}
	if QuoteArgs(nil) != "" {
		t.Fatalf("QuoteArgs(nil) not empty")
	}
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	r := ExecRunner{MaxOutput: 8}
	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo 0123456789abcdef; exit 3"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != 3 || res.Success() {
		t.Fatalf("ExitCode = %d", res.ExitCode)
	}
	if !res.Truncated || len(res.Output) != 8 {
		t.Fatalf("output = %q truncated=%v", res.Output, res.Truncated)
	}
	if res.Status() != "exit status 3" {
		t.Fatalf("Status = %q", res.Status())
	}

	if _, err := r.Run(context.Background(), Command{Name: "/nonexistent/rlink-tool"}); err == nil {
		t.Fatalf("expected start error")
	}
}

func TestOutputNotes(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want []string
	}{
		{"empty", Result{ExitCode: 1, Output: []byte("  \n")}, nil},
		{"complete", Result{Output: []byte("ld: error\n")}, []string{"ld: error"}},
		{"truncated", Result{Output: []byte("tail of log\n"), Truncated: true},
			[]string{"output truncated to the last 12 bytes", "tail of log"}},
	}
	for _, tt := range tests {
		got := tt.res.OutputNotes()
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Fatalf("%s: OutputNotes = %q, want %q", tt.name, got, tt.want)
		}
	}
}
