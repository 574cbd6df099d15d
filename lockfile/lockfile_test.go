package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mthds-ai/mthds/manifest"
	"github.com/mthds-ai/mthds/resolver"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestComputeDirectoryHashDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.mthds", "b-content")
	writeFile(t, dir, "a.mthds", "a-content")
	if err := os.MkdirAll(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	writeFile(t, filepath.Join(dir, ".git"), "HEAD", "ref: refs/heads/main")

	h1, err := ComputeDirectoryHash(dir)
	if err != nil {
		t.Fatalf("ComputeDirectoryHash: %v", err)
	}
	h2, err := ComputeDirectoryHash(dir)
	if err != nil {
		t.Fatalf("ComputeDirectoryHash: %v", err)
	}
	if h1 != h2 {
		t.Fatalf("hash is not stable: %s vs %s", h1, h2)
	}
	if !hashPattern.MatchString(h1) {
		t.Fatalf("hash %q does not match expected shape", h1)
	}

	other := t.TempDir()
	writeFile(t, other, "a.mthds", "a-content")
	writeFile(t, other, "b.mthds", "b-content")
	h3, err := ComputeDirectoryHash(other)
	if err != nil {
		t.Fatalf("ComputeDirectoryHash: %v", err)
	}
	if h1 != h3 {
		t.Fatalf("hash should not depend on .git contents or file creation order: %s vs %s", h1, h3)
	}
}

func TestGenerateSkipsLocalAndSerializeRoundTrips(t *testing.T) {
	remoteRoot := t.TempDir()
	writeFile(t, remoteRoot, "domain.mthds", "x")

	resolved := []resolver.ResolvedDependency{
		{Address: "acme.com/local", Local: true, Manifest: &manifest.Manifest{Version: "1.0.0"}, PackageRoot: t.TempDir()},
		{Address: "acme.com/shipping", Manifest: &manifest.Manifest{Version: "1.2.0"}, PackageRoot: remoteRoot},
	}

	lf, err := Generate(resolved)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(lf.Packages) != 1 {
		t.Fatalf("got %d packages, want 1 (local dependency should be skipped)", len(lf.Packages))
	}
	entry, ok := lf.Packages["acme.com/shipping"]
	if !ok {
		t.Fatalf("missing acme.com/shipping entry")
	}
	if entry.Version != "1.2.0" || entry.Source != "https://acme.com/shipping" {
		t.Fatalf("got %+v", entry)
	}

	serialized := lf.Serialize()
	reparsed, err := Parse(serialized)
	if err != nil {
		t.Fatalf("Parse(serialized): %v\n%s", err, serialized)
	}
	if reparsed.Packages["acme.com/shipping"] != entry {
		t.Fatalf("round trip mismatch: %+v vs %+v", reparsed.Packages["acme.com/shipping"], entry)
	}
}

func TestGenerateRequiresManifestOnRemote(t *testing.T) {
	resolved := []resolver.ResolvedDependency{
		{Address: "acme.com/shipping", Manifest: nil, PackageRoot: t.TempDir()},
	}
	if _, err := Generate(resolved); err == nil {
		t.Fatalf("expected error for remote dependency missing a manifest")
	}
}

func TestParseRejectsBadHash(t *testing.T) {
	_, err := Parse([]byte(`
["acme.com/shipping"]
version = "1.0.0"
hash = "sha256:not-hex"
source = "https://acme.com/shipping"
`))
	if err == nil {
		t.Fatalf("expected error for malformed hash")
	}
}

func TestVerifyDetectsMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.mthds", "original")
	hash, err := ComputeDirectoryHash(dir)
	if err != nil {
		t.Fatalf("ComputeDirectoryHash: %v", err)
	}
	lf := &LockFile{Packages: map[string]LockedPackage{
		"acme.com/shipping": {Version: "1.0.0", Hash: hash, Source: "https://acme.com/shipping"},
	}}

	err = lf.Verify(func(address, version string) (string, error) { return dir, nil })
	if err != nil {
		t.Fatalf("Verify should succeed before mutation: %v", err)
	}

	writeFile(t, dir, "a.mthds", "tampered")
	if err := lf.Verify(func(address, version string) (string, error) { return dir, nil }); err == nil {
		t.Fatalf("expected integrity error after tampering")
	}
}
