package sqlite

import (
	"fmt"

	"dataviewer/internal/models"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// Insert stores a detection run with all its boxes in one transaction.
func (r *DetectionRepository) Insert(run *models.DetectionRun) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO detection_runs (image_path, model, created_at)
		VALUES (?, ?, ?)
	`, run.ImagePath, run.Model, run.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO detection_boxes (run_id, class, x, y, w, h, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, box := range run.Boxes {
		if _, err := stmt.Exec(runID, box.Class, box.X, box.Y, box.W, box.H, box.Confidence); err != nil {
			return 0, fmt.Errorf("failed to insert detection box: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return runID, nil
}

// GetByID retrieves a single run with its boxes.
func (r *DetectionRepository) GetByID(id int64) (*models.DetectionRun, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var run models.DetectionRun
	err := r.db.Conn().QueryRow(`
		SELECT id, image_path, model, created_at
		FROM detection_runs WHERE id = ?
	`, id).Scan(&run.ID, &run.ImagePath, &run.Model, &run.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection run: %w", err)
	}

	boxes, err := r.boxesForRun(run.ID)
	if err != nil {
		return nil, err
	}
	run.Boxes = boxes

	return &run, nil
}

// GetRecent retrieves the most recent runs, newest first, with their boxes.
func (r *DetectionRepository) GetRecent(limit int) ([]models.DetectionRun, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Conn().Query(`
		SELECT id, image_path, model, created_at
		FROM detection_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection runs: %w", err)
	}
	defer rows.Close()

	var runs []models.DetectionRun
	for rows.Next() {
		var run models.DetectionRun
		if err := rows.Scan(&run.ID, &run.ImagePath, &run.Model, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan detection run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate detection runs: %w", err)
	}

	for i := range runs {
		boxes, err := r.boxesForRun(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Boxes = boxes
	}

	return runs, nil
}

// CountByModel returns how many runs were stored per model name.
func (r *DetectionRepository) CountByModel() (map[string]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT model, COUNT(*) FROM detection_runs GROUP BY model
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query run counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var model string
		var count int
		if err := rows.Scan(&model, &count); err != nil {
			return nil, fmt.Errorf("failed to scan run count: %w", err)
		}
		counts[model] = count
	}

	return counts, rows.Err()
}

// DeleteAll removes all stored runs and their boxes.
func (r *DetectionRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM detection_boxes`); err != nil {
		return fmt.Errorf("failed to delete detection boxes: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM detection_runs`); err != nil {
		return fmt.Errorf("failed to delete detection runs: %w", err)
	}

	return tx.Commit()
}

func (r *DetectionRepository) boxesForRun(runID int64) ([]models.DetectionBox, error) {
	rows, err := r.db.Conn().Query(`
		SELECT id, run_id, class, x, y, w, h, confidence
		FROM detection_boxes WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection boxes: %w", err)
	}
	defer rows.Close()

	var boxes []models.DetectionBox
	for rows.Next() {
		var box models.DetectionBox
		if err := rows.Scan(&box.ID, &box.RunID, &box.Class, &box.X, &box.Y, &box.W, &box.H, &box.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan detection box: %w", err)
		}
		boxes = append(boxes, box)
	}

	return boxes, rows.Err()
}
