package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kardianos/osext"
	"github.com/mattn/go-shellwords"
	"github.com/mitchellh/go-homedir"

	"rlink/internal/crates"
	"rlink/internal/registry"
	"rlink/internal/session"
	"rlink/internal/target"
)

const manifestName = "rlink.toml"

const noManifestMessage = "no rlink.toml found\nplease specify the manifest explicitly, e.g.:\n  rlink link path/to/rlink.toml"

type linkManifest struct {
	Path   string
	Root   string
	Config manifestConfig
}

type manifestConfig struct {
	Crate        crateConfig        `toml:"crate"`
	Target       targetConfig       `toml:"target"`
	Options      optionsConfig      `toml:"options"`
	Native       []nativeConfig     `toml:"native"`
	Dependencies []dependencyConfig `toml:"dependency"`
}

type crateConfig struct {
	PkgID    string   `toml:"pkgid"`
	Object   string   `toml:"object"`
	Output   string   `toml:"output"`
	Outputs  []string `toml:"outputs"`
	LinkArgs []string `toml:"link_args"`
}

type targetConfig struct {
	OS               string   `toml:"os"`
	Sysroot          string   `toml:"sysroot"`
	Linker           string   `toml:"linker"`
	AndroidCrossPath string   `toml:"android_cross_path"`
	CCArgs           []string `toml:"cc_args"`
}

type optionsConfig struct {
	LTO           bool     `toml:"lto"`
	PreferDynamic bool     `toml:"prefer_dynamic"`
	SaveTemps     bool     `toml:"save_temps"`
	NoBytecode    bool     `toml:"no_bytecode"`
	PrintLinkArgs bool     `toml:"print_link_args"`
	NoRpath       bool     `toml:"no_rpath"`
	DebugInfo     bool     `toml:"debuginfo"`
	Test          bool     `toml:"test"`
	OptLevel      string   `toml:"opt_level"`
	LinkArgs      string   `toml:"link_args"`
	SearchPaths   []string `toml:"search_paths"`
	LibraryPath   []string `toml:"library_path"`
	Runtime       string   `toml:"runtime"`
}

type nativeConfig struct {
	Name string `toml:"name"`
	Kind string `toml:"kind"`
}

type dependencyConfig struct {
	Name   string         `toml:"name"`
	Rlib   string         `toml:"rlib"`
	Dylib  string         `toml:"dylib"`
	Deps   []string       `toml:"deps"`
	Native []nativeConfig `toml:"native"`
}

func findManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, manifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// resolveManifest accepts an explicit manifest file or directory; without
// one it walks up from the working directory.
func resolveManifest(args []string) (*linkManifest, error) {
	var path string
	if len(args) > 0 {
		path = args[0]
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = filepath.Join(path, manifestName)
		}
	} else {
		found, ok, err := findManifest(".")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New(noManifestMessage)
		}
		path = found
	}
	return loadManifest(path)
}

func loadManifest(path string) (*linkManifest, error) {
	var cfg manifestConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("crate") {
		return nil, fmt.Errorf("%s: missing [crate]", path)
	}
	if !meta.IsDefined("crate", "object") || strings.TrimSpace(cfg.Crate.Object) == "" {
		return nil, fmt.Errorf("%s: missing [crate].object", path)
	}
	if !meta.IsDefined("crate", "output") || strings.TrimSpace(cfg.Crate.Output) == "" {
		return nil, fmt.Errorf("%s: missing [crate].output", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &linkManifest{Path: abs, Root: filepath.Dir(abs), Config: cfg}, nil
}

// resolvePath expands "~" and anchors relative paths at the manifest root.
func (m *linkManifest) resolvePath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("%s: %w", m.Path, err)
	}
	if filepath.IsAbs(expanded) {
		return expanded, nil
	}
	return filepath.Join(m.Root, filepath.FromSlash(expanded)), nil
}

func (m *linkManifest) resolvePaths(ps []string) ([]string, error) {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		r, err := m.resolvePath(p)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// targetOS reads [target].os, defaulting to the host.
func (m *linkManifest) targetOS() (target.OS, error) {
	if strings.TrimSpace(m.Config.Target.OS) == "" {
		return target.HostOS(), nil
	}
	o, err := target.ParseOS(m.Config.Target.OS)
	if err != nil {
		return 0, fmt.Errorf("%s: [target].os: %w", m.Path, err)
	}
	return o, nil
}

// sessionOptions converts the manifest into session options. Command
// line overrides are applied by the caller.
func (m *linkManifest) sessionOptions() (session.Options, error) {
	cfg := m.Config
	opts := session.Options{
		Test:          cfg.Options.Test,
		LTO:           cfg.Options.LTO,
		PreferDynamic: cfg.Options.PreferDynamic,
		SaveTemps:     cfg.Options.SaveTemps,
		NoBytecode:    cfg.Options.NoBytecode,
		PrintLinkArgs: cfg.Options.PrintLinkArgs,
		NoRpath:       cfg.Options.NoRpath,
		DebugInfo:     cfg.Options.DebugInfo,
		RuntimeLib:    cfg.Options.Runtime,
	}
	for _, raw := range cfg.Crate.Outputs {
		kind, err := session.ParseOutputKind(raw)
		if err != nil {
			return opts, fmt.Errorf("%s: [crate].outputs: %w", m.Path, err)
		}
		opts.Outputs = append(opts.Outputs, kind)
	}
	var err error
	if opts.OptLevel, err = session.ParseOptLevel(cfg.Options.OptLevel); err != nil {
		return opts, fmt.Errorf("%s: [options].opt_level: %w", m.Path, err)
	}
	if opts.LinkArgs, err = splitLinkArgs(cfg.Options.LinkArgs); err != nil {
		return opts, fmt.Errorf("%s: [options].link_args: %w", m.Path, err)
	}
	if opts.SearchPaths, err = m.resolvePaths(cfg.Options.SearchPaths); err != nil {
		return opts, err
	}
	if opts.LibraryPath, err = m.resolvePaths(cfg.Options.LibraryPath); err != nil {
		return opts, err
	}
	if opts.Sysroot, err = m.resolvePath(cfg.Target.Sysroot); err != nil {
		return opts, err
	}
	if opts.AndroidCrossPath, err = m.resolvePath(cfg.Target.AndroidCrossPath); err != nil {
		return opts, err
	}
	if opts.Linker, err = homedir.Expand(cfg.Target.Linker); err != nil {
		return opts, fmt.Errorf("%s: [target].linker: %w", m.Path, err)
	}
	return opts, nil
}

// localNatives returns the [[native]] entries of the crate being linked.
func (m *linkManifest) localNatives() ([]crates.NativeLibrary, error) {
	return parseNatives(m.Path, "[[native]]", m.Config.Native)
}

// dependencySpecs converts [[dependency]] entries for registry.Loader.
// Natives and deps left out of the manifest are read from rlib metadata.
func (m *linkManifest) dependencySpecs() ([]registry.Spec, error) {
	specs := make([]registry.Spec, 0, len(m.Config.Dependencies))
	for i, dep := range m.Config.Dependencies {
		if strings.TrimSpace(dep.Name) == "" {
			return nil, fmt.Errorf("%s: [[dependency]] #%d: missing name", m.Path, i+1)
		}
		sp := registry.Spec{Name: dep.Name, Deps: dep.Deps}
		var err error
		if sp.Rlib, err = m.resolvePath(dep.Rlib); err != nil {
			return nil, err
		}
		if sp.Dylib, err = m.resolvePath(dep.Dylib); err != nil {
			return nil, err
		}
		if dep.Native != nil {
			if sp.Natives, err = parseNatives(m.Path, "[[dependency]] "+dep.Name, dep.Native); err != nil {
				return nil, err
			}
		}
		specs = append(specs, sp)
	}
	return specs, nil
}

func parseNatives(path, where string, cfgs []nativeConfig) ([]crates.NativeLibrary, error) {
	libs := make([]crates.NativeLibrary, 0, len(cfgs))
	for _, n := range cfgs {
		if strings.TrimSpace(n.Name) == "" {
			return nil, fmt.Errorf("%s: %s: native library without name", path, where)
		}
		kind, err := crates.ParseNativeKind(n.Kind)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", path, where, err)
		}
		libs = append(libs, crates.NativeLibrary{Kind: kind, Name: n.Name})
	}
	return libs, nil
}

// splitLinkArgs splits a link argument string the way a shell would.
func splitLinkArgs(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return shellwords.Parse(s)
}

// defaultSysroot is the directory above the one holding the rlink binary.
func defaultSysroot() string {
	dir, err := osext.ExecutableFolder()
	if err != nil {
		return ""
	}
	return filepath.Dir(dir)
}

// expandPaths expands a leading "~" in every path.
func expandPaths(ps []string) ([]string, error) {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		expanded, err := homedir.Expand(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, expanded)
	}
	return out, nil
}
