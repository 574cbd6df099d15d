package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mthds-ai/mthds/lockfile"
	"github.com/mthds-ai/mthds/manifest"
)

// chdir moves the test process into dir for the duration of the test,
// restoring the original working directory on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func TestInitThenListNoDependencies(t *testing.T) {
	chdir(t, t.TempDir())

	if code, err := run([]string{"mthds", "init"}); code != 0 || err != nil {
		t.Fatalf("init: code=%d err=%v", code, err)
	}
	if _, err := os.Stat(manifest.Filename); err != nil {
		t.Fatalf("expected %s to exist: %v", manifest.Filename, err)
	}

	if code, err := run([]string{"mthds", "list"}); code != 0 || err != nil {
		t.Fatalf("list: code=%d err=%v", code, err)
	}
}

func TestInitTwiceFails(t *testing.T) {
	chdir(t, t.TempDir())

	if code, _ := run([]string{"mthds", "init"}); code != 0 {
		t.Fatalf("first init should succeed, got code %d", code)
	}
	code, err := run([]string{"mthds", "init"})
	if code == 0 || err == nil {
		t.Fatalf("second init should fail, got code=%d err=%v", code, err)
	}
}

func TestAddLocalDependencyThenLock(t *testing.T) {
	workspace := t.TempDir()

	depDir := filepath.Join(workspace, "shipping")
	if err := os.MkdirAll(depDir, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	depManifest := `[package]
address = "acme.com/shipping"
version = "1.0.0"
description = "shipping tools"
`
	if err := os.WriteFile(filepath.Join(depDir, manifest.Filename), []byte(depManifest), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	projectDir := filepath.Join(workspace, "billing")
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	chdir(t, projectDir)

	if code, err := run([]string{"mthds", "init"}); code != 0 || err != nil {
		t.Fatalf("init: code=%d err=%v", code, err)
	}

	code, err := run([]string{"mthds", "add", "--path", "../shipping", "shipping=acme.com/shipping"})
	if code != 0 || err != nil {
		t.Fatalf("add: code=%d err=%v", code, err)
	}

	m, _, err := ReadManifest()
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	dep, ok := m.DependencyByAlias("shipping")
	if !ok {
		t.Fatalf("expected a dependency aliased %q", "shipping")
	}
	if !dep.IsLocal() {
		t.Fatalf("expected a local path dependency, got %+v", dep)
	}

	if code, err := run([]string{"mthds", "lock"}); code != 0 || err != nil {
		t.Fatalf("lock: code=%d err=%v", code, err)
	}

	content, err := os.ReadFile(lockfile.Filename)
	if err != nil {
		t.Fatalf("reading lock file: %v", err)
	}
	lf, err := lockfile.Parse(content)
	if err != nil {
		t.Fatalf("parsing lock file: %v", err)
	}
	if len(lf.Packages) != 0 {
		t.Fatalf("local-only dependency graph should lock zero remote packages, got %d", len(lf.Packages))
	}
}

func TestValidateCatchesUnexportedCrossDomainReference(t *testing.T) {
	chdir(t, t.TempDir())

	if code, _ := run([]string{"mthds", "init"}); code != 0 {
		t.Fatalf("init failed")
	}

	bundleContent := `domain = "billing"

[pipe.charge_customer]
steps = [{ pipe = "shipping.internal_pipe" }]
`
	if err := os.WriteFile("charge.mthds", []byte(bundleContent), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	code, err := run([]string{"mthds", "validate"})
	if code == 0 || err == nil {
		t.Fatalf("expected validate to fail on an unexported cross-domain reference")
	}
}
