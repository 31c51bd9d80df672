package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dataviewer/internal/models"
)

// ========================================
// Test Setup Helpers
// ========================================

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("Database file should exist")
	}

	return db
}

func sampleRun(image, model string, created time.Time) *models.DetectionRun {
	return &models.DetectionRun{
		ImagePath: image,
		Model:     model,
		CreatedAt: created,
		Boxes: []models.DetectionBox{
			{Class: 0, X: 0.5, Y: 0.5, W: 0.2, H: 0.3, Confidence: 0.91},
			{Class: 3, X: 0.1, Y: 0.2, W: 0.05, H: 0.05, Confidence: 0.42},
		},
	}
}

// ========================================
// Detection Repository Tests
// ========================================

func TestDetectionRepository_InsertAndGetByID(t *testing.T) {
	repo := NewDetectionRepository(setupTestDB(t))

	id, err := repo.Insert(sampleRun("/datasets/a/img.jpg", "yolo12x", time.Now().UTC()))
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id <= 0 {
		t.Fatalf("Expected positive run id, got %d", id)
	}

	run, err := repo.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if run.ImagePath != "/datasets/a/img.jpg" || run.Model != "yolo12x" {
		t.Errorf("Run fields wrong: %+v", run)
	}
	if len(run.Boxes) != 2 {
		t.Fatalf("Expected 2 boxes, got %d", len(run.Boxes))
	}
	if run.Boxes[0].Class != 0 || run.Boxes[0].Confidence != 0.91 {
		t.Errorf("First box wrong: %+v", run.Boxes[0])
	}
	if run.Boxes[1].Class != 3 {
		t.Errorf("Second box wrong: %+v", run.Boxes[1])
	}
}

func TestDetectionRepository_GetRecentOrder(t *testing.T) {
	repo := NewDetectionRepository(setupTestDB(t))

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, image := range []string{"/a.jpg", "/b.jpg", "/c.jpg"} {
		if _, err := repo.Insert(sampleRun(image, "yolo12x", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	runs, err := repo.GetRecent(2)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	if runs[0].ImagePath != "/c.jpg" || runs[1].ImagePath != "/b.jpg" {
		t.Errorf("Expected newest first, got %s then %s", runs[0].ImagePath, runs[1].ImagePath)
	}
	if len(runs[0].Boxes) != 2 {
		t.Errorf("Boxes not loaded for recent runs: %+v", runs[0])
	}
}

func TestDetectionRepository_CountByModel(t *testing.T) {
	repo := NewDetectionRepository(setupTestDB(t))

	now := time.Now().UTC()
	for _, model := range []string{"yolo12x", "yolo12x", "yolo12n"} {
		if _, err := repo.Insert(sampleRun("/img.jpg", model, now)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	counts, err := repo.CountByModel()
	if err != nil {
		t.Fatalf("CountByModel failed: %v", err)
	}
	if counts["yolo12x"] != 2 || counts["yolo12n"] != 1 {
		t.Errorf("Counts wrong: %v", counts)
	}
}

func TestDetectionRepository_DeleteAll(t *testing.T) {
	repo := NewDetectionRepository(setupTestDB(t))

	if _, err := repo.Insert(sampleRun("/img.jpg", "yolo12x", time.Now().UTC())); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := repo.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}

	runs, err := repo.GetRecent(10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Expected empty history after DeleteAll, got %d runs", len(runs))
	}
}
