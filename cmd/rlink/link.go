package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"rlink/internal/buildpipeline"
	"rlink/internal/diag"
	"rlink/internal/linkmeta"
	"rlink/internal/registry"
	"rlink/internal/session"
	"rlink/internal/target"
)

var errLinkFailed = errors.New("link failed")

var linkCmd = &cobra.Command{
	Use:   "link [flags] [manifest]",
	Short: "Produce the crate's rlib, dylib, staticlib or executable",
	Long:  "Link a compiled crate object using rlink.toml as the description of the crate, its target and its upstream crates.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  linkExecution,
}

func init() {
	f := linkCmd.Flags()
	f.StringSlice("emit", nil, "output kinds to produce (rlib,dylib,staticlib,bin)")
	f.StringP("out", "o", "", "output path (overrides [crate].output)")
	f.String("os", "", "target os (linux|macos|win32|freebsd|android)")
	f.String("sysroot", "", "sysroot holding lib/rlink/<os>/lib")
	f.Bool("lto", false, "link for whole-program optimization")
	f.Bool("prefer-dynamic", false, "link upstream crates dynamically")
	f.Bool("save-temps", false, "keep intermediate files")
	f.Bool("no-bytecode", false, "leave crate bitcode out of rlibs")
	f.Bool("print-link-args", false, "print the linker command line")
	f.Bool("no-rpath", false, "do not add rpath flags")
	f.Bool("debuginfo", false, "the object carries debug info")
	f.Bool("test", false, "produce a test executable")
	f.Bool("time-passes", false, "time link passes")
	f.String("opt-level", "", "optimization level (0|1|2|3)")
	f.String("linker", "", "linker driver to use")
	f.String("link-args", "", "extra arguments passed to the linker")
	f.String("android-cross-path", "", "Android NDK root")
	f.StringArrayP("search-path", "L", nil, "add a native library search path")
	f.Int("jobs", 0, "parallel metadata reads (0 = GOMAXPROCS)")
	f.String("ui", "auto", "progress UI (auto|on|off)")
}

func linkExecution(cmd *cobra.Command, args []string) error {
	manifest, err := resolveManifest(args)
	if err != nil {
		return err
	}
	cfg := manifest.Config

	opts, err := manifest.sessionOptions()
	if err != nil {
		return err
	}
	if err := applyLinkFlags(cmd, &opts); err != nil {
		return err
	}

	o, err := manifest.targetOS()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("os") {
		value, _ := cmd.Flags().GetString("os")
		if o, err = target.ParseOS(value); err != nil {
			return err
		}
	}
	plat, err := target.Lookup(o)
	if err != nil {
		return err
	}
	plat.CCArgs = append(slices.Clone(plat.CCArgs), cfg.Target.CCArgs...)
	if opts.Sysroot == "" {
		opts.Sysroot = defaultSysroot()
	}

	object, err := manifest.resolvePath(cfg.Crate.Object)
	if err != nil {
		return err
	}
	output, err := manifest.resolvePath(cfg.Crate.Output)
	if err != nil {
		return err
	}
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		if output, err = filepath.Abs(out); err != nil {
			return err
		}
	}

	natives, err := manifest.localNatives()
	if err != nil {
		return err
	}
	specs, err := manifest.dependencySpecs()
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	uiMode, err := parseOnOff("ui", uiValue)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	loader := registry.Loader{Platform: plat, LibraryPath: opts.LibraryPath, Jobs: jobs}
	upstream, err := loader.Load(ctx, specs)
	if err != nil {
		return fmt.Errorf("%s: %w", manifest.Path, err)
	}
	store, err := registry.New(natives, cfg.Crate.LinkArgs, upstream)
	if err != nil {
		return fmt.Errorf("%s: %w", manifest.Path, err)
	}

	sess := session.New(opts, plat, session.WithStdout(cmd.OutOrStdout()))
	meta, err := linkmeta.FromCrate(cfg.Crate.PkgID, output)
	if err != nil {
		sess.Err(diag.OutBadPackageID, "%v", err)
		if rerr := renderDiagnostics(cmd, sess.Diagnostics()); rerr != nil {
			return rerr
		}
		return errLinkFailed
	}

	req := &buildpipeline.LinkRequest{
		Session: sess,
		Store:   store,
		Meta:    meta,
		Object:  object,
		Output:  output,
	}

	var result buildpipeline.LinkResult
	if uiMode.resolve(cmd.OutOrStdout()) {
		outputs := make([]string, 0, len(opts.OutputKinds()))
		for _, kind := range opts.OutputKinds() {
			outputs = append(outputs, buildpipeline.OutputFilename(plat, meta, kind, output))
		}
		title := fmt.Sprintf("linking %s (%s)", meta.PkgID.Name, plat.OS)
		result, err = runLinkWithUI(ctx, title, outputs, req)
	} else {
		result, err = buildpipeline.LinkOutputs(ctx, req)
	}

	if rerr := renderDiagnostics(cmd, sess.Diagnostics()); rerr != nil {
		return rerr
	}
	if showTimings(cmd) || opts.TimePasses {
		printStageTimings(cmd.ErrOrStderr(), result.Timings)
		if sess.Timer().Len() > 0 {
			fmt.Fprint(cmd.ErrOrStderr(), sess.Timer().Summary())
		}
	}
	if err != nil {
		if errors.Is(err, session.ErrAborted) || errors.Is(err, session.ErrBug) {
			return errLinkFailed
		}
		return err
	}

	if !isQuiet(cmd) && !machineDiagnostics(cmd) {
		for _, a := range result.Artifacts {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", a.Kind, a.Path)
		}
	}
	return nil
}

// applyLinkFlags overrides manifest options with flags set on the command
// line.
func applyLinkFlags(cmd *cobra.Command, opts *session.Options) error {
	flags := cmd.Flags()
	bools := []struct {
		name string
		dst  *bool
	}{
		{"lto", &opts.LTO},
		{"prefer-dynamic", &opts.PreferDynamic},
		{"save-temps", &opts.SaveTemps},
		{"no-bytecode", &opts.NoBytecode},
		{"print-link-args", &opts.PrintLinkArgs},
		{"no-rpath", &opts.NoRpath},
		{"debuginfo", &opts.DebugInfo},
		{"test", &opts.Test},
		{"time-passes", &opts.TimePasses},
	}
	for _, b := range bools {
		if !flags.Changed(b.name) {
			continue
		}
		v, err := flags.GetBool(b.name)
		if err != nil {
			return err
		}
		*b.dst = v
	}

	if flags.Changed("emit") {
		values, err := flags.GetStringSlice("emit")
		if err != nil {
			return err
		}
		opts.Outputs = opts.Outputs[:0]
		for _, v := range values {
			kind, err := session.ParseOutputKind(v)
			if err != nil {
				return fmt.Errorf("--emit: %w", err)
			}
			opts.Outputs = append(opts.Outputs, kind)
		}
	}
	if flags.Changed("opt-level") {
		v, _ := flags.GetString("opt-level")
		level, err := session.ParseOptLevel(v)
		if err != nil {
			return fmt.Errorf("--opt-level: %w", err)
		}
		opts.OptLevel = level
	}
	if flags.Changed("link-args") {
		v, _ := flags.GetString("link-args")
		args, err := splitLinkArgs(v)
		if err != nil {
			return fmt.Errorf("--link-args: %w", err)
		}
		opts.LinkArgs = args
	}
	if flags.Changed("search-path") {
		paths, _ := flags.GetStringArray("search-path")
		expanded, err := expandPaths(paths)
		if err != nil {
			return err
		}
		opts.SearchPaths = append(expanded, opts.SearchPaths...)
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"linker", &opts.Linker},
		{"android-cross-path", &opts.AndroidCrossPath},
		{"sysroot", &opts.Sysroot},
	}
	for _, s := range strs {
		if !flags.Changed(s.name) {
			continue
		}
		v, _ := flags.GetString(s.name)
		expanded, err := expandPaths([]string{v})
		if err != nil {
			return err
		}
		*s.dst = expanded[0]
	}
	return nil
}
