// Package testkit provides fakes and invariant checks shared by tests.
package testkit

import (
	"context"
	"path/filepath"
	"sync"

	"rlink/internal/toolexec"
)

// FakeRunner records commands instead of executing them.
type FakeRunner struct {
	mu    sync.Mutex
	calls []toolexec.Command

	// Results maps a program base name to the result it returns.
	// Programs not listed succeed with no output.
	Results map[string]toolexec.Result
	// StartErrors makes a program fail to start.
	StartErrors map[string]error
	// Hook runs for every command before the result is returned.
	Hook func(cmd toolexec.Command)
}

func (f *FakeRunner) Run(_ context.Context, cmd toolexec.Command) (toolexec.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	hook := f.Hook
	f.mu.Unlock()

	if hook != nil {
		hook(cmd)
	}
	name := filepath.Base(cmd.Name)
	if err, ok := f.StartErrors[name]; ok {
		return toolexec.Result{}, err
	}
	if res, ok := f.Results[name]; ok {
		return res, nil
	}
	return toolexec.Result{}, nil
}

// Calls returns every recorded command.
func (f *FakeRunner) Calls() []toolexec.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]toolexec.Command(nil), f.calls...)
}

// CallsTo returns the recorded commands whose program base name is name.
func (f *FakeRunner) CallsTo(name string) []toolexec.Command {
	var out []toolexec.Command
	for _, c := range f.Calls() {
		if filepath.Base(c.Name) == name {
			out = append(out, c)
		}
	}
	return out
}
