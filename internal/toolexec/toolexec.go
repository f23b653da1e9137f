// Package toolexec runs external toolchain programs (the linker driver,
// ranlib, dsymutil) and captures their combined output.
package toolexec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/apparentlymart/go-shquot/shquot"
	"github.com/armon/circbuf"
)

// DefaultMaxOutput bounds how much combined output is kept per command.
const DefaultMaxOutput = 256 << 10

// Command is a program invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// Argv returns name followed by the arguments.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String renders the command as a POSIX shell line.
func (c Command) String() string {
	return shquot.POSIXShell(c.Argv())
}

// Result is the outcome of a command that was started.
type Result struct {
	ExitCode  int
	Output    []byte
	Truncated bool
}

// Success reports a zero exit status.
func (r Result) Success() bool { return r.ExitCode == 0 }

// Status renders the exit status the way the shell reports it.
func (r Result) Status() string {
	return fmt.Sprintf("exit status %d", r.ExitCode)
}

// OutputNotes returns the captured output as diagnostic notes. A marker
// note precedes output cut down to the capture limit.
func (r Result) OutputNotes() []string {
	output := strings.TrimSpace(string(r.Output))
	if output == "" {
		return nil
	}
	if r.Truncated {
		return []string{fmt.Sprintf("output truncated to the last %d bytes", len(r.Output)), output}
	}
	return []string{output}
}

// Runner executes commands. Run returns an error only when the process
// could not be started; a non-zero exit is reported through Result.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands on the host with os/exec.
type ExecRunner struct {
	// MaxOutput caps captured output; zero means DefaultMaxOutput.
	MaxOutput int64
}

// Run executes cmd and waits for it. The context is not used to cancel the
// child: a started link always runs to completion.
func (r ExecRunner) Run(_ context.Context, c Command) (Result, error) {
	limit := r.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}
	buf, err := circbuf.NewBuffer(limit)
	if err != nil {
		return Result{}, err
	}

	cmd := exec.Command(c.Name, c.Args...) // #nosec G204 -- toolchain invocation is the point
	cmd.Dir = c.Dir
	cmd.Stdout = buf
	cmd.Stderr = buf

	res := Result{}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("%s: %w", c.Name, err)
		}
		res.ExitCode = exitErr.ExitCode()
	}
	res.Output = buf.Bytes()
	res.Truncated = buf.TotalWritten() > buf.Size()
	return res, nil
}

// QuoteArgs renders args as `'a' 'b' 'c'` for diagnostics.
func QuoteArgs(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return "'" + strings.Join(args, "' '") + "'"
}
