// Package registry is the session crate store: the upstream crates of the
// crate being linked, their files and native libraries, in link order.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/xlab/treeprint"

	"rlink/internal/crates"
)

// Preference selects which file form UsedCrates reports.
type Preference uint8

const (
	RequireStatic Preference = iota
	RequireDynamic
)

func (p Preference) String() string {
	if p == RequireDynamic {
		return "dynamic"
	}
	return "static"
}

var ErrCycle = errors.New("crate dependency cycle")

// UsedCrate is one upstream crate with the file of the requested form.
// Path is empty when no such file exists.
type UsedCrate struct {
	Num  crates.Num
	Name string
	Path string
}

// Store holds the crates of one session.
type Store struct {
	crates   []crates.Crate
	order    []crates.Num
	natives  []crates.NativeLibrary
	linkArgs []string
}

// New builds a store. Crate numbers are assigned by position (1-based) and
// every dependency must refer to a crate in upstream.
func New(local []crates.NativeLibrary, linkArgs []string, upstream []crates.Crate) (*Store, error) {
	all := slices.Clone(upstream)
	for i := range all {
		all[i].Num = numOf(i)
		for _, d := range all[i].Deps {
			if d == 0 || int(d) > len(all) {
				return nil, fmt.Errorf("crate `%s` depends on unknown crate #%d", all[i].Name, d)
			}
		}
	}

	t := toposortKahn(all)
	if t.Cyclic {
		names := make([]string, len(t.Cycles))
		for i, n := range t.Cycles {
			names[i] = all[int(n)-1].Name
		}
		return nil, fmt.Errorf("%w: %s", ErrCycle, strings.Join(names, ", "))
	}

	return &Store{
		crates:   all,
		order:    t.Order,
		natives:  slices.Clone(local),
		linkArgs: slices.Clone(linkArgs),
	}, nil
}

// Len is the number of upstream crates.
func (s *Store) Len() int { return len(s.crates) }

// Crate returns the record for num.
func (s *Store) Crate(num crates.Num) (crates.Crate, bool) {
	if num == 0 || int(num) > len(s.crates) {
		return crates.Crate{}, false
	}
	return s.crates[int(num)-1], true
}

// Order returns crate numbers in link order.
func (s *Store) Order() []crates.Num { return slices.Clone(s.order) }

// UsedCrates lists every upstream crate in link order with the file of
// the preferred form.
func (s *Store) UsedCrates(pref Preference) []UsedCrate {
	out := make([]UsedCrate, 0, len(s.order))
	for _, num := range s.order {
		c := s.crates[int(num)-1]
		out = append(out, UsedCrate{
			Num:  num,
			Name: c.Name,
			Path: c.Path(pref == RequireDynamic),
		})
	}
	return out
}

// NativeLibraries returns the native libraries propagated by an upstream
// crate.
func (s *Store) NativeLibraries(num crates.Num) []crates.NativeLibrary {
	c, ok := s.Crate(num)
	if !ok {
		return nil
	}
	return c.Natives
}

// UsedLibraries returns the local crate's native libraries.
func (s *Store) UsedLibraries() []crates.NativeLibrary { return s.natives }

// UsedLinkArgs returns link arguments declared by crate attributes.
func (s *Store) UsedLinkArgs() []string { return s.linkArgs }

// Tree renders the dependency graph rooted at the local crate.
func (s *Store) Tree(root string) string {
	out := treeprint.New()
	tree := out.AddBranch(root)
	for _, lib := range s.natives {
		tree.AddNode(fmt.Sprintf("native %s (%s)", lib.Name, lib.Kind))
	}

	hasParent := make([]bool, len(s.crates))
	for _, c := range s.crates {
		for _, d := range c.Deps {
			hasParent[int(d)-1] = true
		}
	}
	for _, num := range s.order {
		if !hasParent[int(num)-1] {
			s.addBranch(tree, num, map[crates.Num]bool{})
		}
	}
	return out.String()
}

func (s *Store) addBranch(parent treeprint.Tree, num crates.Num, path map[crates.Num]bool) {
	c := s.crates[int(num)-1]
	label := c.Name
	switch {
	case c.Rlib != "" && c.Dylib != "":
		label += " [rlib, dylib]"
	case c.Rlib != "":
		label += " [rlib]"
	case c.Dylib != "":
		label += " [dylib]"
	default:
		label += " [missing]"
	}
	branch := parent.AddBranch(label)
	for _, lib := range c.Natives {
		branch.AddNode(fmt.Sprintf("native %s (%s)", lib.Name, lib.Kind))
	}
	path[num] = true
	for _, d := range c.Deps {
		if !path[d] {
			s.addBranch(branch, d, path)
		}
	}
	delete(path, num)
}
