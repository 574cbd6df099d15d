package main

import (
	"fmt"
	"strings"

	"github.com/mthds-ai/mthds/manifest"
	"github.com/spf13/pflag"
)

// runAdd inserts a dependency into the manifest. Arguments are of the form
// "alias=address@constraint", or "alias=address" combined with --path for a
// local path override.
func runAdd(args []string) (int, error) {
	flagSet := pflag.NewFlagSet("add", pflag.ContinueOnError)
	path := flagSet.String("path", "", "local path override instead of a VCS dependency")
	if err := flagSet.Parse(args); err == pflag.ErrHelp {
		return 0, nil
	} else if err != nil {
		return 2, err
	}

	if len(flagSet.Args()) != 1 {
		fmt.Println(`mthds add: expected exactly one "alias=address[@constraint]" argument`)
		return 2, nil
	}

	dep, err := parseAddArg(flagSet.Args()[0], *path)
	if err != nil {
		return 1, err
	}

	m, manifestPath, err := ReadManifest()
	if err != nil {
		return 1, err
	}

	if _, exists := m.DependencyByAlias(dep.Alias); exists {
		return 1, fmt.Errorf("dependency alias %q already exists", dep.Alias)
	}
	m.Dependencies = append(m.Dependencies, dep)

	if err := m.Validate(); err != nil {
		return 1, err
	}
	if err := WriteManifest(m, manifestPath); err != nil {
		return 1, err
	}
	fmt.Printf("added %s = %s@%s\n", dep.Alias, dep.Address, dep.Version)
	return 0, nil
}

func parseAddArg(raw, path string) (manifest.Dependency, error) {
	aliasAndRest := strings.SplitN(raw, "=", 2)
	if len(aliasAndRest) != 2 {
		return manifest.Dependency{}, fmt.Errorf("expected %q in the form alias=address[@constraint]", raw)
	}
	alias, rest := aliasAndRest[0], aliasAndRest[1]

	if path != "" {
		return manifest.Dependency{Alias: alias, Address: rest, Path: path}, nil
	}

	address, constraint := rest, "^1.0.0"
	if idx := strings.LastIndex(rest, "@"); idx != -1 {
		address, constraint = rest[:idx], rest[idx+1:]
	}
	return manifest.Dependency{Alias: alias, Address: address, Version: constraint}, nil
}
