// Package pkgcache stores fetched package sources on disk, content-keyed
// by (address, version), and commits each store with a staging-directory
// rename so that a cancelled or failed fetch never leaves a partial
// package visible at its final path.
package pkgcache

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mthds-ai/mthds/mtherr"
)

// Cache is a content-addressed store of fetched package directories,
// rooted at Root.
type Cache struct {
	Root string
}

// DefaultRoot is the cache root used when the caller has no override,
// matching the original's "~/.mthds/packages" convention.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mthds", "packages"), nil
}

// New constructs a Cache rooted at root.
func New(root string) *Cache {
	return &Cache{Root: root}
}

// Path returns the final directory for (address, version), without
// checking whether it exists. It rejects any ".." path segment in either
// component to keep the cache confined to its root.
func (c *Cache) Path(address, version string) (string, error) {
	if containsDotDot(address) || containsDotDot(version) {
		return "", mtherr.PackageCacheError("address or version contains a \"..\" segment", nil)
	}
	return filepath.Join(c.Root, address, version), nil
}

func containsDotDot(s string) bool {
	for _, part := range strings.Split(filepath.ToSlash(s), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// IsCached reports whether (address, version) already has a non-empty
// directory in the cache.
func (c *Cache) IsCached(address, version string) (bool, error) {
	path, err := c.Path(address, version)
	if err != nil {
		return false, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, mtherr.PackageCacheError("reading cache directory", err)
	}
	return len(entries) > 0, nil
}

// Store copies src into the cache at (address, version), stripping any
// ".git" subdirectory, and commits the copy via rename so a concurrent
// reader never observes a partially-copied directory. Any failure leaves
// no trace: the staging directory is removed before the error returns.
func (c *Cache) Store(src, address, version string) (string, error) {
	final, err := c.Path(address, version)
	if err != nil {
		return "", err
	}
	staging := final + ".staging"

	if err := os.RemoveAll(staging); err != nil {
		return "", mtherr.PackageCacheError("clearing stale staging directory", err)
	}
	if err := copyDir(src, staging); err != nil {
		os.RemoveAll(staging)
		return "", mtherr.PackageCacheError("copying package into cache", err)
	}
	if err := os.RemoveAll(filepath.Join(staging, ".git")); err != nil {
		os.RemoveAll(staging)
		return "", mtherr.PackageCacheError("removing .git from staged copy", err)
	}
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		os.RemoveAll(staging)
		return "", mtherr.PackageCacheError("creating cache parent directory", err)
	}
	if err := os.RemoveAll(final); err != nil {
		os.RemoveAll(staging)
		return "", mtherr.PackageCacheError("clearing previous cache entry", err)
	}
	if err := os.Rename(staging, final); err != nil {
		os.RemoveAll(staging)
		return "", mtherr.PackageCacheError("committing cache entry", err)
	}
	return final, nil
}

// Remove deletes the cached directory for (address, version), reporting
// whether anything was removed.
func (c *Cache) Remove(address, version string) (bool, error) {
	path, err := c.Path(address, version)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, mtherr.PackageCacheError("statting cache entry", err)
	}
	if err := os.RemoveAll(path); err != nil {
		return false, mtherr.PackageCacheError("removing cache entry", err)
	}
	return true, nil
}

func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}
