package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mthds-ai/mthds/lockfile"
	"github.com/mthds-ai/mthds/mtherr"
	"github.com/mthds-ai/mthds/pkgcache"
	"github.com/mthds-ai/mthds/vcsgit"
	"github.com/spf13/pflag"
)

// runInstall ensures every locked entry is present in the package cache and
// verifies its content hash. It never re-resolves: a missing methods.lock
// is an error, since install's contract is reproducing exactly what lock
// recorded. Install is all-or-nothing -- every missing entry is fetched
// before any hash is verified.
func runInstall(args []string) (int, error) {
	flagSet := pflag.NewFlagSet("install", pflag.ContinueOnError)
	timeout := flagSet.Duration("timeout", 0, "bound the whole fetch+verify operation")
	if err := flagSet.Parse(args); err == pflag.ErrHelp {
		return 0, nil
	} else if err != nil {
		return 2, err
	}

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	root, err := ProjectRoot()
	if err != nil {
		return 1, err
	}
	lockPath := filepath.Join(root, lockfile.Filename)
	content, err := os.ReadFile(lockPath)
	if err != nil {
		return 1, fmt.Errorf("reading %s: %w (run 'mthds lock' first)", lockfile.Filename, err)
	}
	lf, err := lockfile.Parse(content)
	if err != nil {
		return 1, err
	}

	cacheRoot, err := pkgcache.DefaultRoot()
	if err != nil {
		return 1, err
	}
	cache := pkgcache.New(cacheRoot)

	for address, pkg := range lf.Packages {
		cached, err := cache.IsCached(address, pkg.Version)
		if err != nil {
			return 1, err
		}
		if cached {
			continue
		}
		if err := fetchLockedPackage(ctx, cache, address, pkg.Version); err != nil {
			return 1, fmt.Errorf("installing %s@%s: %w", address, pkg.Version, err)
		}
	}

	if err := lf.Verify(cache.Path); err != nil {
		return 1, err
	}
	fmt.Printf("installed and verified %d package(s)\n", len(lf.Packages))
	return 0, nil
}

// fetchLockedPackage re-lists address's tags to find the git tag name
// backing the already-locked version, shallow-clones it, and stores the
// result in the cache.
func fetchLockedPackage(ctx context.Context, cache *pkgcache.Cache, address, version string) error {
	tags, err := vcsgit.ListVersionTags(ctx, address)
	if err != nil {
		return err
	}

	var tagName string
	for _, t := range tags {
		if t.Version.String() == version {
			tagName = t.Name
			break
		}
	}
	if tagName == "" {
		return mtherr.VersionResolutionError(fmt.Sprintf("no tag for locked version %q of %q", version, address))
	}

	scratch, err := os.MkdirTemp("", "mthds-install-*")
	if err != nil {
		return mtherr.PackageCacheError("creating scratch directory", err)
	}
	defer os.RemoveAll(scratch)

	dest := filepath.Join(scratch, "src")
	if err := vcsgit.CloneAtVersion(ctx, address, tagName, dest); err != nil {
		return err
	}

	_, err = cache.Store(dest, address, version)
	return err
}
