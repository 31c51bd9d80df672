package models

import "time"

// DetectionRun records one inference request against a dataset image.
type DetectionRun struct {
	ID        int64          `json:"id"`
	ImagePath string         `json:"image_path"`
	Model     string         `json:"model"`
	CreatedAt time.Time      `json:"created_at"`
	Boxes     []DetectionBox `json:"boxes"`
}

// DetectionBox is one detected object, with the bounding box in normalized
// YOLO coordinates (center x/y, width, height in [0,1]).
type DetectionBox struct {
	ID         int64   `json:"id"`
	RunID      int64   `json:"run_id"`
	Class      int     `json:"class"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"confidence"`
}
