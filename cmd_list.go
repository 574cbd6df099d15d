package main

import (
	"fmt"
	"os"
)

// runList prints the manifest's package, dependency, and export tables.
func runList(args []string) (int, error) {
	m, _, err := ReadManifest()
	if err != nil {
		return 1, err
	}

	fmt.Printf("address:     %s\n", m.Address)
	if m.DisplayName != "" {
		fmt.Printf("display name: %s\n", m.DisplayName)
	}
	fmt.Printf("version:     %s\n", m.Version)
	fmt.Printf("description: %s\n", m.Description)
	if len(m.Authors) > 0 {
		fmt.Printf("authors:     %v\n", m.Authors)
	}

	deps := m.SortedDependencies()
	fmt.Fprintf(os.Stdout, "\ndependencies (%d):\n", len(deps))
	for _, dep := range deps {
		if dep.IsLocal() {
			fmt.Printf("  %s = { address = %q, path = %q }\n", dep.Alias, dep.Address, dep.Path)
			continue
		}
		fmt.Printf("  %s = { address = %q, version = %q }\n", dep.Alias, dep.Address, dep.Version)
	}

	exports := m.SortedExports()
	fmt.Fprintf(os.Stdout, "\nexports (%d domains):\n", len(exports))
	for _, export := range exports {
		fmt.Printf("  %s: %v\n", export.DomainPath, export.Pipes)
	}

	return 0, nil
}
