package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// ========================================
// Test Setup Helpers
// ========================================

// newDataset builds an image tree plus a matching label tree and returns
// both roots.
func newDataset(t *testing.T) (imgRoot, labelRoot string) {
	t.Helper()
	root := t.TempDir()
	imgRoot = filepath.Join(root, "imgs")
	labelRoot = filepath.Join(root, "lbls")
	if err := os.MkdirAll(imgRoot, 0755); err != nil {
		t.Fatalf("Failed to create image root: %v", err)
	}
	if err := os.MkdirAll(labelRoot, 0755); err != nil {
		t.Fatalf("Failed to create label root: %v", err)
	}
	return imgRoot, labelRoot
}

func writeManifest(t *testing.T, dir string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, "train.txt")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("Failed to write manifest: %v", err)
	}
	return path
}

func newLoader() *Loader {
	return NewLoader(NewResolver("", ""))
}

// ========================================
// Manifest Loader Tests
// ========================================

func TestLoader_AncestorWalk(t *testing.T) {
	imgRoot, labelRoot := newDataset(t)

	img := writeFile(t, filepath.Join(imgRoot, "train", "img1.jpg"), nil)
	// No label at the root by that filename, only one directory level up
	writeFile(t, filepath.Join(labelRoot, "train", "img1.txt"), nil)

	manifest := writeManifest(t, t.TempDir(), img)

	entries, err := newLoader().Load(manifest, labelRoot)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.RelPath != "train/img1.jpg" {
		t.Errorf("RelPath = %q, expected %q", entry.RelPath, "train/img1.jpg")
	}
	if entry.LabelRel != "train/img1.txt" {
		t.Errorf("LabelRel = %q, expected %q", entry.LabelRel, "train/img1.txt")
	}
	if entry.LabelPath != filepath.Join(labelRoot, "train", "img1.txt") {
		t.Errorf("LabelPath = %q, unexpected", entry.LabelPath)
	}
}

func TestLoader_FilenameFallback(t *testing.T) {
	imgRoot, labelRoot := newDataset(t)

	img := writeFile(t, filepath.Join(imgRoot, "deep", "nested", "img2.png"), nil)
	// Only a same-named label at the label root
	writeFile(t, filepath.Join(labelRoot, "img2.txt"), nil)

	manifest := writeManifest(t, t.TempDir(), img)

	entries, err := newLoader().Load(manifest, labelRoot)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].RelPath != "img2.png" {
		t.Errorf("RelPath = %q, expected bare filename", entries[0].RelPath)
	}
}

func TestLoader_DuplicateRelPathsFirstWins(t *testing.T) {
	imgRoot, labelRoot := newDataset(t)

	first := writeFile(t, filepath.Join(imgRoot, "a", "img.jpg"), nil)
	second := writeFile(t, filepath.Join(imgRoot, "b", "img.jpg"), nil)
	writeFile(t, filepath.Join(labelRoot, "img.txt"), nil)

	manifest := writeManifest(t, t.TempDir(), first, second)

	entries, err := newLoader().Load(manifest, labelRoot)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry after dedup, got %d", len(entries))
	}
	if entries[0].ImagePath != first {
		t.Errorf("ImagePath = %q, expected the first occurrence %q", entries[0].ImagePath, first)
	}
}

func TestLoader_SkipsInvalidLines(t *testing.T) {
	imgRoot, labelRoot := newDataset(t)

	valid := writeFile(t, filepath.Join(imgRoot, "ok.jpg"), nil)
	wrongExt := writeFile(t, filepath.Join(imgRoot, "anim.gif"), nil)
	writeFile(t, filepath.Join(labelRoot, "ok.txt"), nil)
	writeFile(t, filepath.Join(labelRoot, "anim.txt"), nil)

	manifest := writeManifest(t, t.TempDir(),
		"",
		valid,
		"   ",
		filepath.Join(imgRoot, "missing.jpg"),
		wrongExt,
	)

	entries, err := newLoader().Load(manifest, labelRoot)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected only the valid line to survive, got %d entries", len(entries))
	}
	if entries[0].ImagePath != valid {
		t.Errorf("ImagePath = %q, expected %q", entries[0].ImagePath, valid)
	}
}

func TestLoader_LinesRelativeToManifestDir(t *testing.T) {
	imgRoot, labelRoot := newDataset(t)

	writeFile(t, filepath.Join(imgRoot, "rel.jpg"), nil)
	writeFile(t, filepath.Join(labelRoot, "rel.txt"), nil)

	// Manifest lives next to the image dir; line is relative to it
	manifest := writeManifest(t, filepath.Dir(imgRoot), filepath.Join("imgs", "rel.jpg"))

	entries, err := newLoader().Load(manifest, labelRoot)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
}

func TestLoader_Idempotence(t *testing.T) {
	imgRoot, labelRoot := newDataset(t)

	for _, name := range []string{"c.jpg", "a.jpg", "b.jpg"} {
		writeFile(t, filepath.Join(imgRoot, name), nil)
		writeFile(t, filepath.Join(labelRoot, strings.TrimSuffix(name, ".jpg")+".txt"), nil)
	}

	manifest := writeManifest(t, t.TempDir(),
		filepath.Join(imgRoot, "c.jpg"),
		filepath.Join(imgRoot, "a.jpg"),
		filepath.Join(imgRoot, "b.jpg"),
	)

	loader := newLoader()
	firstRun, err := loader.Load(manifest, labelRoot)
	if err != nil {
		t.Fatalf("First load failed: %v", err)
	}
	secondRun, err := loader.Load(manifest, labelRoot)
	if err != nil {
		t.Fatalf("Second load failed: %v", err)
	}

	if len(firstRun) != 3 || len(secondRun) != 3 {
		t.Fatalf("Expected 3 entries on both runs, got %d and %d", len(firstRun), len(secondRun))
	}
	for i := range firstRun {
		if firstRun[i] != secondRun[i] {
			t.Errorf("Entry %d differs between runs: %+v vs %+v", i, firstRun[i], secondRun[i])
		}
	}
	// Manifest order is preserved, not sorted
	if firstRun[0].RelPath != "c.jpg" || firstRun[1].RelPath != "a.jpg" {
		t.Errorf("Entry order not preserved: %v", firstRun)
	}
}

func TestLoader_CacheValidatedByMtimeNotContent(t *testing.T) {
	imgRoot, labelRoot := newDataset(t)

	img1 := writeFile(t, filepath.Join(imgRoot, "one.jpg"), nil)
	img2 := writeFile(t, filepath.Join(imgRoot, "two.jpg"), nil)
	writeFile(t, filepath.Join(labelRoot, "one.txt"), nil)
	writeFile(t, filepath.Join(labelRoot, "two.txt"), nil)

	manifest := writeManifest(t, t.TempDir(), img1)

	loader := newLoader()
	entries, err := loader.Load(manifest, labelRoot)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	info, err := os.Stat(manifest)
	if err != nil {
		t.Fatalf("Failed to stat manifest: %v", err)
	}
	originalMtime := info.ModTime()

	// Rewrite with more content but restore the old mtime: the cache must
	// still serve the stale parse
	writeManifest(t, filepath.Dir(manifest), img1, img2)
	if err := os.Chtimes(manifest, originalMtime, originalMtime); err != nil {
		t.Fatalf("Failed to restore mtime: %v", err)
	}

	entries, err = loader.Load(manifest, labelRoot)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected stale cached parse (1 entry), got %d", len(entries))
	}

	// Touching the mtime alone forces a re-parse, identical content or not
	touched := originalMtime.Add(2 * time.Second)
	if err := os.Chtimes(manifest, touched, touched); err != nil {
		t.Fatalf("Failed to touch manifest: %v", err)
	}

	entries, err = loader.Load(manifest, labelRoot)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected fresh parse (2 entries) after touch, got %d", len(entries))
	}
}

func TestLoader_MissingManifest(t *testing.T) {
	if _, err := newLoader().Load(filepath.Join(t.TempDir(), "nope.txt"), ""); err == nil {
		t.Error("Expected an error for a missing manifest")
	}
}

// ========================================
// Auto Mapping Tests
// ========================================

func TestLoader_AutoMapping(t *testing.T) {
	root := t.TempDir()
	img := writeFile(t, filepath.Join(root, "images", "train", "img1.jpg"), nil)
	label := writeFile(t, filepath.Join(root, "labels", "train", "img1.txt"), nil)

	manifest := writeManifest(t, t.TempDir(), img)

	entries, err := newLoader().Load(manifest, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.LabelPath != label {
		t.Errorf("LabelPath = %q, expected %q", entry.LabelPath, label)
	}
	if entry.RelPath != "img1.jpg" {
		t.Errorf("RelPath = %q, expected bare filename in auto mode", entry.RelPath)
	}
}

func TestLoader_AutoMappingRequiresImagesSegment(t *testing.T) {
	root := t.TempDir()
	img := writeFile(t, filepath.Join(root, "pictures", "img1.jpg"), nil)
	writeFile(t, filepath.Join(root, "labels", "img1.txt"), nil)

	manifest := writeManifest(t, t.TempDir(), img)

	entries, err := newLoader().Load(manifest, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries without an images segment, got %d", len(entries))
	}
}

func TestLoader_AutoMappingMissingLabel(t *testing.T) {
	root := t.TempDir()
	img := writeFile(t, filepath.Join(root, "images", "img1.jpg"), nil)

	manifest := writeManifest(t, t.TempDir(), img)

	entries, err := newLoader().Load(manifest, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries when the mapped label is missing, got %d", len(entries))
	}
}

// ========================================
// Lookup Tests
// ========================================

func TestEntryByRel(t *testing.T) {
	imgRoot, labelRoot := newDataset(t)

	img := writeFile(t, filepath.Join(imgRoot, "find.jpg"), nil)
	writeFile(t, filepath.Join(labelRoot, "find.txt"), nil)

	manifest := writeManifest(t, t.TempDir(), img)
	loader := newLoader()

	entry, ok := loader.EntryByRel(manifest, labelRoot, "find.jpg")
	if !ok {
		t.Fatal("Expected to find entry by rel path")
	}
	if entry.ImagePath != img {
		t.Errorf("ImagePath = %q, expected %q", entry.ImagePath, img)
	}

	if _, ok := loader.EntryByRel(manifest, labelRoot, "ghost.jpg"); ok {
		t.Error("Expected lookup miss for unknown rel path")
	}
}

func TestLoader_SeparateCachePerLabelSource(t *testing.T) {
	root := t.TempDir()
	img := writeFile(t, filepath.Join(root, "images", "both.jpg"), nil)
	writeFile(t, filepath.Join(root, "labels", "both.txt"), nil)

	explicitRoot := filepath.Join(root, "other_labels")
	writeFile(t, filepath.Join(explicitRoot, "both.txt"), nil)

	manifest := writeManifest(t, t.TempDir(), img)
	loader := newLoader()

	autoEntries, err := loader.Load(manifest, "")
	if err != nil {
		t.Fatalf("Auto load failed: %v", err)
	}
	explicitEntries, err := loader.Load(manifest, explicitRoot)
	if err != nil {
		t.Fatalf("Explicit load failed: %v", err)
	}

	if len(autoEntries) != 1 || len(explicitEntries) != 1 {
		t.Fatalf("Expected 1 entry in each mode, got %d and %d", len(autoEntries), len(explicitEntries))
	}
	if autoEntries[0].LabelPath == explicitEntries[0].LabelPath {
		t.Error("Expected the two label sources to be cached independently")
	}
}
