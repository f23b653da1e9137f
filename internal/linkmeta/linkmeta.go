// Package linkmeta derives the link identity of a crate: its package id,
// the crate hash, per-type symbol hashes and library file names.
package linkmeta

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"path/filepath"
	"strings"

	"rlink/internal/pkgid"
)

// HashLen is the number of hex characters kept from a SHA-256 digest.
const HashLen = 16

// shortHashLen используется в имени файла библиотеки.
const shortHashLen = 8

// LinkMeta is the link identity of the crate being compiled.
type LinkMeta struct {
	PkgID     pkgid.PackageID
	CrateHash string
}

// CrateHash hashes the canonical package id. The result is deterministic
// for a given id and independent of anything else in the session.
func CrateHash(id pkgid.PackageID) string {
	h := sha256.New()
	_, _ = h.Write([]byte(id.String()))
	return truncatedHash(h)
}

// Build derives the link meta for an identifier.
func Build(id pkgid.PackageID) LinkMeta {
	return LinkMeta{PkgID: id, CrateHash: CrateHash(id)}
}

// FromCrate uses the declared package id when there is one, and otherwise
// infers it from the stem of the output path.
func FromCrate(declared, outputPath string) (LinkMeta, error) {
	if strings.TrimSpace(declared) != "" {
		id, err := pkgid.Parse(declared)
		if err != nil {
			return LinkMeta{}, fmt.Errorf("package id: %w", err)
		}
		return Build(id), nil
	}
	base := filepath.Base(outputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	id, err := pkgid.Infer(stem)
	if err != nil {
		return LinkMeta{}, fmt.Errorf("infer package id from %q: %w", outputPath, err)
	}
	return Build(id), nil
}

// SymbolHash hashes a type encoding together with this crate's identity.
// The returned value is prefixed with "h" so that it is a valid identifier.
func (m LinkMeta) SymbolHash(encodedType string) string {
	h := sha256.New()
	_, _ = h.Write([]byte(m.PkgID.Name))
	_, _ = h.Write([]byte("-"))
	_, _ = h.Write([]byte(m.CrateHash))
	_, _ = h.Write([]byte("-"))
	_, _ = h.Write([]byte(encodedType))
	return "h" + truncatedHash(h)
}

// OutputLibFilename is the stem of library artifacts: name-hash8-version.
func (m LinkMeta) OutputLibFilename() string {
	short := m.CrateHash
	if len(short) > shortHashLen {
		short = short[:shortHashLen]
	}
	return fmt.Sprintf("%s-%s-%s", m.PkgID.Name, short, m.PkgID.VersionOrDefault())
}

func truncatedHash(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))[:HashLen]
}
