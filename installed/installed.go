// Package installed discovers methods (mthds packages) already installed
// under the project-local and user-global method directories, and indexes
// them by name and by exported pipe code.
package installed

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mthds-ai/mthds/manifest"
	"github.com/mthds-ai/mthds/mtherr"
)

// GlobalDir is the per-user root for installed methods.
func GlobalDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mthds", "methods"), nil
}

// ProjectDir is the per-project root for installed methods, relative to
// the project root.
func ProjectDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".mthds", "methods")
}

// Method is one discovered installed package.
type Method struct {
	Name       string
	Path       string
	Manifest   *manifest.Manifest // nil when the method has no manifest
	MthdsFiles []string
}

// Discover scans roots in order (typically project before global) for
// immediate subdirectories containing a manifest.
func Discover(roots ...string) ([]Method, error) {
	var methods []Method
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, mtherr.ManifestParseError(fmt.Sprintf("reading %q", root), err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, dirName := range names {
			dir := filepath.Join(root, dirName)
			manifestPath := filepath.Join(dir, manifest.Filename)
			content, err := os.ReadFile(manifestPath)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, mtherr.ManifestParseError(fmt.Sprintf("reading %q", manifestPath), err)
			}
			m, err := manifest.Parse(content)
			if err != nil {
				return nil, err
			}

			name := m.DisplayName
			if name == "" {
				name = dirName
			}

			files, err := collectMthdsFiles(dir)
			if err != nil {
				return nil, err
			}
			methods = append(methods, Method{Name: name, Path: dir, Manifest: m, MthdsFiles: files})
		}
	}
	return methods, nil
}

func collectMthdsFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) == ".mthds" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// FindByName looks up exactly one method by name, erroring on absence or
// duplication.
func FindByName(methods []Method, name string) (Method, error) {
	var found []Method
	for _, m := range methods {
		if m.Name == name {
			found = append(found, m)
		}
	}
	switch len(found) {
	case 0:
		return Method{}, mtherr.ManifestValidationError(fmt.Sprintf("no installed method named %q", name))
	case 1:
		return found[0], nil
	default:
		return Method{}, mtherr.ManifestValidationError(fmt.Sprintf("multiple installed methods named %q", name))
	}
}

// FindByExportedPipe looks up exactly one method exporting pipeCode,
// erroring on absence or ambiguity (two methods exporting the same code).
func FindByExportedPipe(methods []Method, pipeCode string) (Method, error) {
	var found []Method
methodLoop:
	for _, m := range methods {
		if m.Manifest == nil {
			continue
		}
		for _, export := range m.Manifest.Exports {
			for _, pipe := range export.Pipes {
				if pipe == pipeCode {
					found = append(found, m)
					continue methodLoop
				}
			}
		}
	}
	switch len(found) {
	case 0:
		return Method{}, mtherr.ManifestValidationError(fmt.Sprintf("no installed method exports pipe %q", pipeCode))
	case 1:
		return found[0], nil
	default:
		return Method{}, mtherr.ManifestValidationError(fmt.Sprintf("pipe %q is ambiguous across multiple installed methods", pipeCode))
	}
}
