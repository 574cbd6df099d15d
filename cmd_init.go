package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mthds-ai/mthds/bundle"
	"github.com/mthds-ai/mthds/manifest"
)

// runInit writes a fresh METHODS.toml skeleton in the current directory.
// When the directory already contains *.mthds bundle files, their declared
// domains and pipes pre-populate the [exports] table instead of leaving it
// empty, supplementing an otherwise bare skeleton.
func runInit(args []string) (int, error) {
	if path, err := FindManifest(); err == nil {
		return 1, fmt.Errorf("%s already exists at: %s", manifest.Filename, path)
	} else if err != ErrManifestNotFound {
		return 1, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return 1, err
	}

	m := &manifest.Manifest{
		Address:     fmt.Sprintf("example.com/yourorg/%s", filepath.Base(cwd)),
		Version:     "0.1.0",
		Description: "describe your method here",
	}

	metadatas, err := scanBundles(cwd)
	if err != nil {
		return 1, err
	}
	if len(metadatas) > 0 {
		m.Exports = bundle.ExportsFromScan(metadatas)
	}

	if err := WriteManifest(m, manifest.Filename); err != nil {
		return 1, err
	}
	fmt.Printf("wrote %s\n", manifest.Filename)
	return 0, nil
}

// scanBundles reads and extracts metadata from every *.mthds file directly
// under root (non-recursive: bundles belong to the package they sit in, not
// nested package directories).
func scanBundles(root string) ([]bundle.Metadata, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var metadatas []bundle.Metadata
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".mthds" {
			continue
		}
		content, err := os.ReadFile(filepath.Join(root, entry.Name()))
		if err != nil {
			return nil, err
		}
		meta, err := bundle.Extract(content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		metadatas = append(metadatas, meta)
	}
	return metadatas, nil
}
