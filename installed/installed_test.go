package installed

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMethod(t *testing.T, root, dir, displayName string, pipes []string) {
	t.Helper()
	methodDir := filepath.Join(root, dir)
	if err := os.MkdirAll(methodDir, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	pipesTOML := ""
	for _, p := range pipes {
		pipesTOML += `"` + p + `", `
	}
	content := `[package]
address = "acme.com/` + dir + `"
version = "1.0.0"
description = "x"
`
	if displayName != "" {
		content = `[package]
address = "acme.com/` + dir + `"
display_name = "` + displayName + `"
version = "1.0.0"
description = "x"
`
	}
	if len(pipes) > 0 {
		content += "\n[exports.x]\npipes = [" + pipesTOML + "]\n"
	}
	if err := os.WriteFile(filepath.Join(methodDir, "METHODS.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func TestDiscoverAndFindByName(t *testing.T) {
	root := t.TempDir()
	writeMethod(t, root, "billing-tools", "Billing Tools", nil)

	methods, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(methods) != 1 {
		t.Fatalf("got %d methods, want 1", len(methods))
	}
	found, err := FindByName(methods, "Billing Tools")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if found.Path != filepath.Join(root, "billing-tools") {
		t.Errorf("got path %q", found.Path)
	}
}

func TestFindByNameFallsBackToDirectory(t *testing.T) {
	root := t.TempDir()
	writeMethod(t, root, "shipping-tools", "", nil)

	methods, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if _, err := FindByName(methods, "shipping-tools"); err != nil {
		t.Fatalf("FindByName: %v", err)
	}
}

func TestFindByNameAmbiguous(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeMethod(t, rootA, "tools", "Tools", nil)
	writeMethod(t, rootB, "tools", "Tools", nil)

	methods, err := Discover(rootA, rootB)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if _, err := FindByName(methods, "Tools"); err == nil {
		t.Fatalf("expected duplicate-name error")
	}
}

func TestFindByExportedPipeAmbiguous(t *testing.T) {
	root := t.TempDir()
	writeMethod(t, root, "a", "A", []string{"shared_pipe"})
	writeMethod(t, root, "b", "B", []string{"shared_pipe"})

	methods, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if _, err := FindByExportedPipe(methods, "shared_pipe"); err == nil {
		t.Fatalf("expected ambiguous-pipe error")
	}
}
