package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

// ========================================
// Test Setup Helpers
// ========================================

func writeFile(t *testing.T, path string, content []byte) string {
	t.Helper()

	if content == nil {
		content = []byte("test data")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	return path
}

// ========================================
// Resolver Tests
// ========================================

func TestResolver_DirectExistence(t *testing.T) {
	tempDir := t.TempDir()
	existing := writeFile(t, filepath.Join(tempDir, "a.jpg"), nil)

	resolver := NewResolver("/nonexistent/host", "/nonexistent/container")

	resolved := resolver.Resolve(existing)
	if resolved != existing {
		t.Errorf("Resolve(%q) = %q, expected the literal path", existing, resolved)
	}
}

func TestResolver_TrimsWhitespace(t *testing.T) {
	tempDir := t.TempDir()
	existing := writeFile(t, filepath.Join(tempDir, "a.jpg"), nil)

	resolver := NewResolver("", "")

	resolved := resolver.Resolve("  " + existing + "\n")
	if resolved != existing {
		t.Errorf("Resolve with whitespace = %q, expected %q", resolved, existing)
	}
}

func TestResolver_HostToContainerMapping(t *testing.T) {
	containerRoot := t.TempDir()
	mapped := writeFile(t, filepath.Join(containerRoot, "project", "img.png"), nil)

	hostRoot := filepath.Join("/", "Users", "someone", "Downloads")
	resolver := NewResolver(hostRoot, containerRoot)

	resolved := resolver.Resolve(filepath.Join(hostRoot, "project", "img.png"))
	if resolved != mapped {
		t.Errorf("Resolve = %q, expected mapped path %q", resolved, mapped)
	}
}

func TestResolver_UnmappedHostPathReturnsOriginal(t *testing.T) {
	containerRoot := t.TempDir()
	hostRoot := filepath.Join("/", "Users", "someone", "Downloads")
	resolver := NewResolver(hostRoot, containerRoot)

	// Nothing under the container root matches this path
	raw := filepath.Join(hostRoot, "missing", "img.png")
	resolved := resolver.Resolve(raw)
	if resolved != raw {
		t.Errorf("Resolve = %q, expected the original path %q back", resolved, raw)
	}
}

func TestResolver_NonHostPathReturnsOriginal(t *testing.T) {
	resolver := NewResolver("/host/root", t.TempDir())

	raw := filepath.Join("/", "somewhere", "else.jpg")
	if resolved := resolver.Resolve(raw); resolved != raw {
		t.Errorf("Resolve = %q, expected %q unchanged", resolved, raw)
	}
}

func TestResolveWithBase_JoinsOntoBase(t *testing.T) {
	tempDir := t.TempDir()
	target := writeFile(t, filepath.Join(tempDir, "sub", "img.jpg"), nil)

	resolver := NewResolver("", "")

	resolved := resolver.ResolveWithBase(filepath.Join("sub", "img.jpg"), tempDir)
	if resolved != target {
		t.Errorf("ResolveWithBase = %q, expected %q", resolved, target)
	}
}

func TestResolveWithBase_MissingEverywhere(t *testing.T) {
	resolver := NewResolver("", "")

	raw := filepath.Join("no", "such", "file.jpg")
	resolved := resolver.ResolveWithBase(raw, t.TempDir())
	if resolved != raw {
		t.Errorf("ResolveWithBase = %q, expected %q unchanged", resolved, raw)
	}
}
