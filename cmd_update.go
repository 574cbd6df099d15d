package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mthds-ai/mthds/lockfile"
	"github.com/spf13/pflag"
)

// runUpdate re-resolves the manifest from scratch (ignoring any existing
// lock file's choices) and rewrites methods.lock, printing what changed.
func runUpdate(args []string) (int, error) {
	flagSet := pflag.NewFlagSet("update", pflag.ContinueOnError)
	timeout := flagSet.Duration("timeout", 0, "bound the whole resolve+fetch operation")
	if err := flagSet.Parse(args); err == pflag.ErrHelp {
		return 0, nil
	} else if err != nil {
		return 2, err
	}

	root, err := ProjectRoot()
	if err != nil {
		return 1, err
	}
	lockPath := filepath.Join(root, lockfile.Filename)

	var before *lockfile.LockFile
	if content, err := os.ReadFile(lockPath); err == nil {
		before, _ = lockfile.Parse(content)
	}

	resolved, _, err := resolveProject(*timeout)
	if err != nil {
		return 1, err
	}
	after, err := lockfile.Generate(resolved)
	if err != nil {
		return 1, err
	}

	if err := writeFile(lockPath, after.Serialize()); err != nil {
		return 1, err
	}
	printLockDiff(before, after)
	return 0, nil
}

// printLockDiff reports additions, removals, and version changes between
// two lock files. before may be nil when no lock file previously existed.
func printLockDiff(before, after *lockfile.LockFile) {
	var beforePkgs map[string]lockfile.LockedPackage
	if before != nil {
		beforePkgs = before.Packages
	}

	addresses := make([]string, 0, len(after.Packages))
	for addr := range after.Packages {
		addresses = append(addresses, addr)
	}
	for addr := range beforePkgs {
		if _, ok := after.Packages[addr]; !ok {
			addresses = append(addresses, addr)
		}
	}
	sort.Strings(addresses)

	for _, addr := range addresses {
		newPkg, stillPresent := after.Packages[addr]
		oldPkg, wasPresent := beforePkgs[addr]
		switch {
		case wasPresent && !stillPresent:
			fmt.Printf("- %s %s\n", addr, oldPkg.Version)
		case !wasPresent && stillPresent:
			fmt.Printf("+ %s %s\n", addr, newPkg.Version)
		case oldPkg.Version != newPkg.Version:
			fmt.Printf("~ %s %s -> %s\n", addr, oldPkg.Version, newPkg.Version)
		}
	}
}
