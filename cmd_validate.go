package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mthds-ai/mthds/visibility"
)

// runValidate structurally validates the manifest (already enforced by
// ReadManifest/manifest.Parse) and checks every bundle's outbound pipe
// references against the manifest's visibility rules.
func runValidate(args []string) (int, error) {
	m, manifestPath, err := ReadManifest()
	if err != nil {
		return 1, err
	}
	root := filepath.Dir(manifestPath)

	metadatas, err := scanBundles(root)
	if err != nil {
		return 1, err
	}

	checker := visibility.NewChecker(m, metadatas)
	violations := checker.CheckAll()
	if len(violations) == 0 {
		fmt.Println("manifest and bundles are valid")
		return 0, nil
	}

	for _, v := range violations {
		fmt.Fprintln(os.Stderr, v.String())
	}
	return 1, fmt.Errorf("%d visibility violation(s)", len(violations))
}
