package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/mthds-ai/mthds/manifest"
)

// ErrManifestNotFound is returned by FindManifest when no METHODS.toml
// exists in the current directory or any of its parents.
var ErrManifestNotFound = errors.New("METHODS.toml not found (or in any of the parent directories)")

// FindManifest locates the nearest METHODS.toml by walking up from the
// current working directory, mirroring the teacher's FindRopefile.
func FindManifest() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, manifest.Filename)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			parent := filepath.Dir(dir)
			if parent == dir {
				return "", ErrManifestNotFound
			}
			dir = parent
			continue
		} else if err != nil {
			return "", err
		}
		return path, nil
	}
}

// ReadManifest finds and parses the nearest METHODS.toml.
func ReadManifest() (*manifest.Manifest, string, error) {
	path, err := FindManifest()
	if err != nil {
		return nil, "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	m, err := manifest.Parse(content)
	if err != nil {
		return nil, "", err
	}
	return m, path, nil
}

// WriteManifest serializes m to path, or to a fresh METHODS.toml in the
// current directory when path is empty.
func WriteManifest(m *manifest.Manifest, path string) error {
	if path == "" {
		path = filepath.Join(".", manifest.Filename)
	}
	return os.WriteFile(path, m.Serialize(), 0o644)
}

// ProjectRoot returns the directory containing the nearest METHODS.toml.
func ProjectRoot() (string, error) {
	path, err := FindManifest()
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}

// writeFile writes content to path with the manifest's conventional
// permissions, overwriting any existing file.
func writeFile(path string, content []byte) error {
	return os.WriteFile(path, content, 0o644)
}
