package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mthds-ai/mthds/lockfile"
	"github.com/mthds-ai/mthds/pkgcache"
	"github.com/mthds-ai/mthds/resolver"
	"github.com/spf13/pflag"
)

// runLock resolves the manifest's dependency graph and writes methods.lock.
func runLock(args []string) (int, error) {
	flagSet := pflag.NewFlagSet("lock", pflag.ContinueOnError)
	timeout := flagSet.Duration("timeout", 0, "bound the whole resolve+fetch operation")
	if err := flagSet.Parse(args); err == pflag.ErrHelp {
		return 0, nil
	} else if err != nil {
		return 2, err
	}

	resolved, _, err := resolveProject(*timeout)
	if err != nil {
		return 1, err
	}

	lf, err := lockfile.Generate(resolved)
	if err != nil {
		return 1, err
	}

	root, err := ProjectRoot()
	if err != nil {
		return 1, err
	}
	lockPath := filepath.Join(root, lockfile.Filename)
	if err := writeFile(lockPath, lf.Serialize()); err != nil {
		return 1, err
	}
	fmt.Printf("wrote %s with %d locked package(s)\n", lockfile.Filename, len(lf.Packages))
	return 0, nil
}

// resolveProject reads the nearest manifest and resolves its full
// dependency graph, bounding the operation by timeout when it is positive.
func resolveProject(timeout time.Duration) ([]resolver.ResolvedDependency, string, error) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m, _, err := ReadManifest()
	if err != nil {
		return nil, "", err
	}
	root, err := ProjectRoot()
	if err != nil {
		return nil, "", err
	}

	cacheRoot, err := pkgcache.DefaultRoot()
	if err != nil {
		return nil, "", err
	}
	cache := pkgcache.New(cacheRoot)

	resolved, err := resolver.ResolveAll(ctx, m, root, cache, nil)
	if err != nil {
		return nil, "", err
	}
	return resolved, root, nil
}
