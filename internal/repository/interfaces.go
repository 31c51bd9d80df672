package repository

import (
	"dataviewer/internal/models"
)

// DetectionRepository defines the interface for detection history operations.
type DetectionRepository interface {
	// Create operations
	Insert(run *models.DetectionRun) (int64, error)

	// Read operations
	GetByID(id int64) (*models.DetectionRun, error)
	GetRecent(limit int) ([]models.DetectionRun, error)
	CountByModel() (map[string]int, error)

	// Delete operations
	DeleteAll() error
}
