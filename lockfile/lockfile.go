// Package lockfile computes content hashes over fetched package
// directories and reads/writes methods.lock, the record of exactly which
// version (and content hash) of each remote dependency was installed.
package lockfile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/mthds-ai/mthds/manifest"
	"github.com/mthds-ai/mthds/mtherr"
	"github.com/mthds-ai/mthds/resolver"
	toml "github.com/pelletier/go-toml/v2"
)

// Filename is the lock file's conventional name at a package root.
const Filename = "methods.lock"

// HashPrefix precedes every content hash stored in the lock file.
const HashPrefix = "sha256:"

var hashPattern = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

// LockedPackage is one entry of the lock file: the exact version and
// content hash of a resolved remote dependency.
type LockedPackage struct {
	Version string
	Hash    string
	Source  string
}

// LockFile is the parsed contents of methods.lock, keyed by address.
type LockFile struct {
	Packages map[string]LockedPackage
}

// ComputeDirectoryHash hashes every regular file under dir (skipping any
// path whose relative components include ".git"), in POSIX-normalized
// relative-path order, so the result is stable across platforms and
// independent of directory traversal order.
func ComputeDirectoryHash(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", mtherr.LockFileError(fmt.Sprintf("%q is not a directory", dir))
	}

	var relPaths []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		posix := filepath.ToSlash(rel)
		for _, segment := range strings.Split(posix, "/") {
			if segment == ".git" {
				return nil
			}
		}
		relPaths = append(relPaths, posix)
		return nil
	})
	if err != nil {
		return "", mtherr.LockFileError(fmt.Sprintf("walking %q: %v", dir, err))
	}
	sort.Strings(relPaths)

	h := sha256.New()
	for _, rel := range relPaths {
		h.Write([]byte(rel))
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return "", mtherr.LockFileError(fmt.Sprintf("reading %q: %v", rel, err))
		}
		h.Write(data)
	}
	return HashPrefix + hex.EncodeToString(h.Sum(nil)), nil
}

// Generate builds a LockFile from the resolver's output, skipping local
// path-override dependencies. A remote dependency with no manifest is an
// error: there is no version to lock it to.
func Generate(resolved []resolver.ResolvedDependency) (*LockFile, error) {
	packages := map[string]LockedPackage{}
	for _, dep := range resolved {
		if dep.Local {
			continue
		}
		if dep.Manifest == nil {
			return nil, mtherr.LockFileError(fmt.Sprintf("remote dependency %q has no manifest to lock", dep.Address))
		}
		hash, err := ComputeDirectoryHash(dep.PackageRoot)
		if err != nil {
			return nil, err
		}
		packages[dep.Address] = LockedPackage{
			Version: dep.Manifest.Version,
			Hash:    hash,
			Source:  "https://" + dep.Address,
		}
	}
	return &LockFile{Packages: packages}, nil
}

// Serialize renders the lock file as TOML, one table per address sorted
// lexicographically, fields in version/hash/source order.
func (lf *LockFile) Serialize() []byte {
	addresses := make([]string, 0, len(lf.Packages))
	for addr := range lf.Packages {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	var b strings.Builder
	for i, addr := range addresses {
		if i > 0 {
			b.WriteString("\n")
		}
		pkg := lf.Packages[addr]
		fmt.Fprintf(&b, "[%q]\n", addr)
		fmt.Fprintf(&b, "version = %q\n", pkg.Version)
		fmt.Fprintf(&b, "hash = %q\n", pkg.Hash)
		fmt.Fprintf(&b, "source = %q\n", pkg.Source)
	}
	return []byte(b.String())
}

// Parse decodes and validates methods.lock content.
func Parse(content []byte) (*LockFile, error) {
	var raw map[string]any
	if err := toml.Unmarshal(content, &raw); err != nil {
		return nil, mtherr.LockFileError(fmt.Sprintf("malformed TOML: %v", err))
	}

	packages := map[string]LockedPackage{}
	for addr, v := range raw {
		entry, ok := v.(map[string]any)
		if !ok {
			return nil, mtherr.LockFileError(fmt.Sprintf("entry %q is not a table", addr))
		}
		version, _ := entry["version"].(string)
		hash, _ := entry["hash"].(string)
		source, _ := entry["source"].(string)

		if !manifest.IsValidSemver(version) {
			return nil, mtherr.LockFileError(fmt.Sprintf("%q has invalid version %q", addr, version))
		}
		if !hashPattern.MatchString(hash) {
			return nil, mtherr.LockFileError(fmt.Sprintf("%q has invalid hash %q", addr, hash))
		}
		if !strings.HasPrefix(source, "https://") {
			return nil, mtherr.LockFileError(fmt.Sprintf("%q has invalid source %q", addr, source))
		}
		packages[addr] = LockedPackage{Version: version, Hash: hash, Source: source}
	}
	return &LockFile{Packages: packages}, nil
}

// Verify recomputes the content hash of every locked package's cached
// directory (resolved via locate) and compares it against the lock file.
func (lf *LockFile) Verify(locate func(address, version string) (string, error)) error {
	addresses := make([]string, 0, len(lf.Packages))
	for addr := range lf.Packages {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	for _, addr := range addresses {
		pkg := lf.Packages[addr]
		dir, err := locate(addr, pkg.Version)
		if err != nil {
			return mtherr.IntegrityError(fmt.Sprintf("%q: %v", addr, err))
		}
		hash, err := ComputeDirectoryHash(dir)
		if err != nil {
			return mtherr.IntegrityError(fmt.Sprintf("%q: %v", addr, err))
		}
		if hash != pkg.Hash {
			return mtherr.IntegrityError(fmt.Sprintf("%q: content hash mismatch: locked %s, found %s", addr, pkg.Hash, hash))
		}
	}
	return nil
}
