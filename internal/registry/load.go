package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/sync/errgroup"

	"rlink/internal/crates"
	"rlink/internal/metadata"
	"rlink/internal/target"
	"rlink/internal/trace"
)

// Spec declares an upstream crate. Files that are not given are looked up
// on the library path; natives and deps that are not given are read from
// the rlib metadata.
type Spec struct {
	Name    string
	Rlib    string
	Dylib   string
	Natives []crates.NativeLibrary
	Deps    []string
}

// Loader resolves Specs into crate records.
type Loader struct {
	Platform    target.Platform
	LibraryPath []string
	// Jobs limits concurrent metadata reads; zero means GOMAXPROCS.
	Jobs int
}

// Load resolves every spec concurrently and links dependency names to
// crate numbers. The result is ordered like specs.
func (l Loader) Load(ctx context.Context, specs []Spec) ([]crates.Crate, error) {
	span, ctx := trace.Start(ctx, trace.ScopeStep, "registry:load")
	defer span.End("")

	index := make(map[string]int, len(specs))
	for i, sp := range specs {
		if sp.Name == "" {
			return nil, fmt.Errorf("dependency #%d has no name", i+1)
		}
		if _, dup := index[sp.Name]; dup {
			return nil, fmt.Errorf("dependency `%s` declared twice", sp.Name)
		}
		index[sp.Name] = i
	}

	out := make([]crates.Crate, len(specs))
	depNames := make([][]string, len(specs))

	jobs := l.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	var mu sync.Mutex
	for i, sp := range specs {
		g.Go(func() error {
			c, deps, err := l.resolve(gctx, sp)
			if err != nil {
				return fmt.Errorf("dependency `%s`: %w", sp.Name, err)
			}
			mu.Lock()
			out[i] = c
			depNames[i] = deps
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range out {
		for _, name := range depNames[i] {
			j, ok := index[name]
			if !ok {
				return nil, fmt.Errorf("crate `%s` depends on unknown crate `%s`", out[i].Name, name)
			}
			out[i].Deps = append(out[i].Deps, numOf(j))
		}
	}
	return out, nil
}

func (l Loader) resolve(ctx context.Context, sp Spec) (crates.Crate, []string, error) {
	c := crates.Crate{Name: sp.Name}
	var err error
	if c.Rlib, err = l.locate(sp.Rlib, "lib"+sp.Name+"-*.rlib"); err != nil {
		return c, nil, err
	}
	if c.Dylib, err = l.locate(sp.Dylib, l.Platform.DylibFilename(sp.Name+"-*")); err != nil {
		return c, nil, err
	}

	for _, lib := range sp.Natives {
		if lib.Kind == crates.NativeStatic {
			return c, nil, fmt.Errorf("static native library `%s` must be bundled into the crate's rlib", lib.Name)
		}
	}
	c.Natives = slices.Clone(sp.Natives)
	deps := slices.Clone(sp.Deps)

	if c.Rlib != "" && sp.Natives == nil && sp.Deps == nil {
		trace.Point(ctx, trace.ScopeStep, "metadata", c.Rlib)
		meta, err := metadata.ReadRlib(c.Rlib)
		if err != nil {
			return c, nil, err
		}
		c.Hash = meta.CrateHash
		c.Natives = meta.NativeLibraries
		deps = meta.Dependencies
	}
	return c, deps, nil
}

// locate returns the configured path when it exists, otherwise the first
// library path match of pattern. Missing files yield "".
func (l Loader) locate(configured, pattern string) (string, error) {
	if configured != "" {
		p, err := homedir.Expand(configured)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", nil
			}
			return "", err
		}
		return p, nil
	}
	for _, dir := range l.LibraryPath {
		dir, err := homedir.Expand(dir)
		if err != nil {
			return "", err
		}
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", err
		}
		if len(matches) > 0 {
			slices.Sort(matches)
			return matches[0], nil
		}
	}
	return "", nil
}
