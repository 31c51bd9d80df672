package export

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"dataviewer/internal/config"
	"dataviewer/internal/dataset"
	"dataviewer/internal/logger"
)

// ========================================
// Test Setup Helpers
// ========================================

func setupTestService(t *testing.T) *Service {
	t.Helper()

	cfg := &config.Config{ExportQuality: 90, LogDirectory: t.TempDir()}
	return NewService(cfg, logger.NewLogger(cfg))
}

func writeTestImage(t *testing.T, path string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create image directory: %v", err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test image: %v", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
}

func zipEntryNames(t *testing.T, data []byte) []string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

// ========================================
// WriteZip Tests
// ========================================

func TestWriteZip_DeterministicOrder(t *testing.T) {
	imgDir := t.TempDir()
	writeTestImage(t, filepath.Join(imgDir, "c.png"))
	writeTestImage(t, filepath.Join(imgDir, "a.png"))
	writeTestImage(t, filepath.Join(imgDir, "b.png"))

	box := dataset.Box{Class: 0, X: 0.5, Y: 0.5, W: 0.2, H: 0.2}
	req := Request{
		ImgDir:       imgDir,
		TargetWidth:  4,
		TargetHeight: 4,
		Annotations: map[string][]dataset.Box{
			"c.png": {box},
			"a.png": {box},
			"b.png": {box},
		},
	}

	service := setupTestService(t)

	var first, second bytes.Buffer
	if err := service.WriteZip(&first, req); err != nil {
		t.Fatalf("WriteZip failed: %v", err)
	}
	if err := service.WriteZip(&second, req); err != nil {
		t.Fatalf("WriteZip failed: %v", err)
	}

	expected := []string{
		"images/a.jpg", "labels/a.txt",
		"images/b.jpg", "labels/b.txt",
		"images/c.jpg", "labels/c.txt",
	}
	names := zipEntryNames(t, first.Bytes())
	if len(names) != len(expected) {
		t.Fatalf("Expected %d entries, got %v", len(expected), names)
	}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("Entry %d: expected %s, got %s", i, name, names[i])
		}
	}

	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("Repeated exports of the same request should be byte-identical")
	}
}

func TestWriteZip_SkipsUnreadableImages(t *testing.T) {
	imgDir := t.TempDir()
	writeTestImage(t, filepath.Join(imgDir, "good.png"))

	box := dataset.Box{Class: 1, X: 0.5, Y: 0.5, W: 0.1, H: 0.1}
	req := Request{
		ImgDir:       imgDir,
		TargetWidth:  4,
		TargetHeight: 4,
		Annotations: map[string][]dataset.Box{
			"good.png":  {box},
			"ghost.png": {box},
		},
	}

	var buf bytes.Buffer
	if err := setupTestService(t).WriteZip(&buf, req); err != nil {
		t.Fatalf("WriteZip failed: %v", err)
	}

	names := zipEntryNames(t, buf.Bytes())
	if len(names) != 2 || names[0] != "images/good.jpg" || names[1] != "labels/good.txt" {
		t.Errorf("Expected only the readable entry, got %v", names)
	}
}

func TestWriteZip_InvalidTargetSize(t *testing.T) {
	req := Request{
		ImgDir:      t.TempDir(),
		Annotations: map[string][]dataset.Box{"a.png": nil},
	}

	var buf bytes.Buffer
	if err := setupTestService(t).WriteZip(&buf, req); err == nil {
		t.Error("Expected an error for a zero target size")
	}
}
