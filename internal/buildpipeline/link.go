// Package buildpipeline turns the compiled crate object into every
// requested artifact: rlibs, staticlibs, dynamic libraries and
// executables.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"

	"rlink/internal/diag"
	"rlink/internal/linker"
	"rlink/internal/linkmeta"
	"rlink/internal/session"
	"rlink/internal/trace"
)

// LinkRequest configures output generation for one crate.
type LinkRequest struct {
	Session *session.Session
	Store   linker.CrateStore
	Meta    linkmeta.LinkMeta
	// Object is the compiled crate object, normally "<crate>.o".
	Object string
	// Output is the requested output path. Library outputs are placed
	// next to it under their derived names.
	Output   string
	Progress ProgressSink
}

// Artifact is one produced (or failed) output.
type Artifact struct {
	Kind session.OutputKind
	Path string
	Err  error
}

// LinkResult captures the artifacts and stage timings.
type LinkResult struct {
	Artifacts []Artifact
	Timings   Timings
}

// LinkOutputs produces every output kind the session asks for. Each kind
// is attempted even when an earlier one failed; the returned error joins
// all failures. Unless SaveTemps is set the object file and its metadata
// object are removed afterwards.
func LinkOutputs(ctx context.Context, req *LinkRequest) (LinkResult, error) {
	var result LinkResult
	if req == nil || req.Session == nil || req.Store == nil {
		return result, fmt.Errorf("missing link request")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sess := req.Session

	span, ctx := trace.Start(ctx, trace.ScopeDriver, "link_outputs")
	defer span.End("")

	kinds := sess.Opts.OutputKinds()
	paths := make([]string, len(kinds))
	for i, kind := range kinds {
		paths[i] = OutputFilename(sess.Target, req.Meta, kind, req.Output)
		emit(req.Progress, Event{Output: paths[i], Kind: kind, Stage: StageCheck, Status: StatusQueued})
	}

	var errs *multierror.Error
	for i, kind := range kinds {
		err := linkOne(ctx, req, kind, paths[i], &result.Timings)
		result.Artifacts = append(result.Artifacts, Artifact{Kind: kind, Path: paths[i], Err: err})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s `%s`: %w", kind, paths[i], err))
		}
	}

	if !sess.Opts.SaveTemps {
		start := time.Now()
		removeTemps(sess, req.Object)
		result.Timings.Add(StageCleanup, time.Since(start))
	}
	return result, errs.ErrorOrNil()
}

func linkOne(ctx context.Context, req *LinkRequest, kind session.OutputKind, out string, timings *Timings) error {
	sess := req.Session
	sess.BeginOutput()

	span, ctx := trace.Start(ctx, trace.ScopeOutput, kind.String())
	span.WithExtra("path", out)
	defer span.End("")

	start := time.Now()
	stage := StageCheck
	fail := func(err error) error {
		emit(req.Progress, Event{Output: out, Kind: kind, Stage: stage, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return err
	}

	emit(req.Progress, Event{Output: out, Kind: kind, Stage: stage, Status: StatusWorking})
	if err := checkWritable(sess, req.Object, out); err != nil {
		return fail(err)
	}
	timings.Add(StageCheck, time.Since(start))

	stage = StageLink
	if kind == session.OutputRlib || kind == session.OutputStaticlib {
		stage = StageArchive
	}
	emit(req.Progress, Event{Output: out, Kind: kind, Stage: stage, Status: StatusWorking})
	stageStart := time.Now()

	var err error
	switch kind {
	case session.OutputRlib:
		err = linkRlib(ctx, req, out)
	case session.OutputStaticlib:
		err = linkStaticlib(ctx, req, out)
	case session.OutputDylib:
		err = linker.New(sess, req.Store).LinkNatively(ctx, true, req.Object, out)
	case session.OutputExecutable:
		err = linker.New(sess, req.Store).LinkNatively(ctx, false, req.Object, out)
	default:
		err = sess.Bug("unknown output kind %d", kind)
	}
	timings.Add(stage, time.Since(stageStart))
	if err == nil {
		err = sess.AbortIfErrors()
	}
	if err != nil {
		return fail(err)
	}

	emit(req.Progress, Event{Output: out, Kind: kind, Stage: stage, Status: StatusDone, Elapsed: time.Since(start)})
	return nil
}

// checkWritable refuses read-only targets up front: some system linkers
// overwrite them silently, others fail.
func checkWritable(sess *session.Session, obj, out string) error {
	if !isWritable(out) {
		return sess.Fatalf(diag.OutNotWritable, "output file %s is not writeable -- check its permissions", out)
	}
	if !isWritable(obj) {
		return sess.Fatalf(diag.OutObjNotWritable, "object file %s is not writeable -- check its permissions", obj)
	}
	return nil
}

// isWritable: a missing file counts as writable.
func isWritable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Is(err, fs.ErrNotExist)
	}
	return info.Mode().Perm()&0o200 != 0
}

func removeTemps(sess *session.Session, obj string) {
	for _, p := range []string{obj, linker.MetadataObjectPath(obj)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			sess.Warn(diag.OutCleanup, "failed to remove %s: %v", p, err)
		}
	}
}
