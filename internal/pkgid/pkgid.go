// Package pkgid parses and canonicalizes crate package identifiers.
//
// A package identifier looks like `path[#[name][:version]]`. The name defaults
// to the last path component and the version is optional.
package pkgid

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultVersion подставляется, когда версия не объявлена.
const DefaultVersion = "0.0"

var (
	ErrEmpty       = errors.New("package id is empty")
	ErrInvalidPath = errors.New("invalid package id path")
	ErrInvalidName = errors.New("invalid package id name")
)

// PackageID identifies a crate: where it lives, what it is called and which
// version it declares. Version is empty when none was declared.
type PackageID struct {
	Path    string
	Name    string
	Version string
}

// Parse reads a declared package identifier attribute.
func Parse(s string) (PackageID, error) {
	s = norm.NFC.String(strings.TrimSpace(s))
	if s == "" {
		return PackageID{}, ErrEmpty
	}

	path, frag, hasFrag := strings.Cut(s, "#")
	if err := validatePath(path); err != nil {
		return PackageID{}, fmt.Errorf("%q: %w", s, err)
	}

	id := PackageID{Path: path, Name: lastComponent(path)}
	if hasFrag {
		name, version, hasColon := strings.Cut(frag, ":")
		switch {
		case hasColon:
			if name != "" {
				id.Name = name
			}
			id.Version = version
		case looksLikeVersion(frag):
			id.Version = frag
		case frag != "":
			id.Name = frag
		}
	}
	if !validName(id.Name) {
		return PackageID{}, fmt.Errorf("%q: %w: %q", s, ErrInvalidName, id.Name)
	}
	return id, nil
}

// Infer builds an identifier from an output file stem when the crate does not
// declare one. Path and name both equal the stem; version is unset.
func Infer(stem string) (PackageID, error) {
	stem = norm.NFC.String(strings.TrimSpace(stem))
	if stem == "" {
		return PackageID{}, ErrEmpty
	}
	if !validName(stem) {
		return PackageID{}, fmt.Errorf("%q: %w", stem, ErrInvalidName)
	}
	return PackageID{Path: stem, Name: stem}, nil
}

// VersionOrDefault returns the declared version or DefaultVersion.
func (id PackageID) VersionOrDefault() string {
	if id.Version == "" {
		return DefaultVersion
	}
	return id.Version
}

// String renders the canonical form used for hashing. The name is elided
// when it matches the last path component.
func (id PackageID) String() string {
	version := id.VersionOrDefault()
	if id.Name == lastComponent(id.Path) {
		return id.Path + "#" + version
	}
	return id.Path + "#" + id.Name + ":" + version
}

func lastComponent(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func validatePath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return ErrInvalidPath
	}
	for _, part := range strings.Split(path, "/") {
		if part == "" || part == "." || part == ".." {
			return ErrInvalidPath
		}
	}
	return nil
}

func looksLikeVersion(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	return !strings.ContainsAny(name, "#: \t/")
}
