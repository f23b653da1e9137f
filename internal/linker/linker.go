// Package linker drives the system linker: it resolves upstream crates to
// files, assembles the linker command line in a fixed order and runs the
// platform compiler driver.
package linker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"rlink/internal/crates"
	"rlink/internal/diag"
	"rlink/internal/registry"
	"rlink/internal/session"
	"rlink/internal/toolexec"
	"rlink/internal/trace"
)

// CrateStore is the view of the session crate registry the linker uses.
type CrateStore interface {
	// UsedCrates lists upstream crates in link order with the file of the
	// requested form, or an empty path when there is none.
	UsedCrates(pref registry.Preference) []registry.UsedCrate
	// Order lists every upstream crate in link order.
	Order() []crates.Num
	NativeLibraries(num crates.Num) []crates.NativeLibrary
	// UsedLibraries are the local crate's native libraries.
	UsedLibraries() []crates.NativeLibrary
	// UsedLinkArgs come from crate attributes.
	UsedLinkArgs() []string
}

// Driver links one crate.
type Driver struct {
	sess  *session.Session
	store CrateStore
}

// New creates a driver. Subprocesses go through the session runner.
func New(sess *session.Session, store CrateStore) *Driver {
	return &Driver{sess: sess, store: store}
}

// MetadataObjectPath is the object holding crate metadata that is linked
// into dylibs: obj with its extension replaced by ".metadata.o".
func MetadataObjectPath(obj string) string {
	return strings.TrimSuffix(obj, filepath.Ext(obj)) + ".metadata.o"
}

// LinkNatively produces an executable or, when dylib is set, a dynamic
// library at out from obj and the resolved upstream crates.
func (d *Driver) LinkNatively(ctx context.Context, dylib bool, obj, out string) error {
	span, ctx := trace.Start(ctx, trace.ScopeStep, "link:"+filepath.Base(out))
	defer span.End("")

	tmpdir, err := os.MkdirTemp("", "rlink-link-")
	if err != nil {
		return d.sess.Fatalf(diag.TglTempDir, "failed to create temporary directory: %v", err)
	}
	defer os.RemoveAll(tmpdir)

	cc, err := d.sess.Target.Driver(d.sess.Opts.Linker, d.sess.Opts.AndroidCrossPath)
	if err != nil {
		return d.sess.Fatalf(diag.TglNoCrossPath, "%v", err)
	}

	args, err := d.Args(ctx, dylib, tmpdir, obj, out)
	if err != nil {
		return err
	}
	ccArgs := append(slices.Clone(d.sess.Target.CCArgs), args...)

	if d.sess.Opts.PrintLinkArgs {
		fmt.Fprintf(d.sess.Stdout(), "%s link args: %s\n", cc, toolexec.QuoteArgs(ccArgs))
	}

	// ни одной ошибки к моменту запуска линковщика
	if err := d.sess.AbortIfErrors(); err != nil {
		return err
	}

	cmd := toolexec.Command{Name: cc, Args: ccArgs}
	span.WithExtra("driver", cc)
	var res toolexec.Result
	err = d.sess.Time("running linker", func() error {
		var runErr error
		res, runErr = d.sess.Runner().Run(ctx, cmd)
		return runErr
	})
	if err != nil {
		d.sess.Report(diag.SevError, diag.TglLinkerFailed, fmt.Sprintf("could not exec the linker `%s`: %v", cc, err)).
			WithNote(fmt.Sprintf("%s arguments: %s", cc, toolexec.QuoteArgs(ccArgs))).
			WithSubject(out).
			Emit()
		return session.ErrAborted
	}
	if !res.Success() {
		rb := d.sess.Report(diag.SevError, diag.TglLinkerFailed, fmt.Sprintf("linking with `%s` failed: %s", cc, res.Status())).
			WithNote(fmt.Sprintf("%s arguments: %s", cc, toolexec.QuoteArgs(ccArgs))).
			WithSubject(out)
		for _, note := range res.OutputNotes() {
			rb.WithNote(note)
		}
		rb.Emit()
		return d.sess.AbortIfErrors()
	}

	return d.postProcess(ctx, out)
}

// postProcess extracts debug info on platforms that keep it out of line.
func (d *Driver) postProcess(ctx context.Context, out string) error {
	tool := d.sess.Target.DebugPostProcessor
	if tool == "" || !d.sess.Opts.DebugInfo {
		return nil
	}
	cmd := toolexec.Command{Name: tool, Args: []string{out}}
	res, err := d.sess.Runner().Run(ctx, cmd)
	if err != nil {
		return d.sess.Fatalf(diag.TglPostprocFailed, "failed to run `%s`: %v", tool, err)
	}
	if !res.Success() {
		rb := d.sess.Report(diag.SevError, diag.TglPostprocFailed, fmt.Sprintf("`%s` failed: %s", cmd.String(), res.Status())).
			WithSubject(out)
		for _, note := range res.OutputNotes() {
			rb.WithNote(note)
		}
		rb.Emit()
		return session.ErrAborted
	}
	return nil
}
