package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"dataviewer/internal/dataset"
	"dataviewer/internal/logger"
	"dataviewer/internal/models"
	"dataviewer/internal/repository"
	"dataviewer/internal/services/detect"
)

// detectRequest asks for inference on one dataset image.
type detectRequest struct {
	ImgDir  string  `json:"img_dir"`
	RelPath string  `json:"rel_path"`
	Model   string  `json:"model"`
	Classes []int   `json:"classes"`
	Conf    float64 `json:"conf"`
}

// detectionJSON is one detection on the wire, normalized YOLO coordinates.
type detectionJSON struct {
	Class      int     `json:"class"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"confidence"`
}

// DetectHandler runs model inference on an image and records the run in the
// detection history. History failures are logged, never surfaced; inference
// results matter more than the audit trail.
func DetectHandler(resolver *dataset.Resolver, detector *detect.Service,
	detectionRepo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req detectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if req.Model == "" {
			req.Model = "yolo12x"
		}

		imgPath := filepath.Join(resolver.Resolve(req.ImgDir), filepath.FromSlash(req.RelPath))
		if info, err := os.Stat(imgPath); err != nil || !info.Mode().IsRegular() {
			jsonError(w, http.StatusNotFound, "Image not found: "+req.RelPath)
			return
		}

		detections, err := detector.Detect(imgPath, req.Model, req.Conf, req.Classes)
		if err != nil {
			logger.Error("Detection failed for %s: %v", imgPath, err)
			jsonError(w, http.StatusInternalServerError, "Detection failed: "+err.Error())
			return
		}

		run := &models.DetectionRun{
			ImagePath: imgPath,
			Model:     req.Model,
			CreatedAt: time.Now().UTC(),
		}
		results := make([]detectionJSON, 0, len(detections))
		for _, d := range detections {
			results = append(results, detectionJSON{
				Class: d.Class, X: d.X, Y: d.Y, W: d.W, H: d.H, Confidence: d.Confidence,
			})
			run.Boxes = append(run.Boxes, models.DetectionBox{
				Class: d.Class, X: d.X, Y: d.Y, W: d.W, H: d.H, Confidence: d.Confidence,
			})
		}

		if _, err := detectionRepo.Insert(run); err != nil {
			logger.Warning("Failed to record detection run: %v", err)
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "success",
			"image":      req.RelPath,
			"detections": results,
			"count":      len(results),
		})
	}
}

// ModelsHandler lists the models available for inference.
func ModelsHandler(detector *detect.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models := detector.ListModels()
		if models == nil {
			models = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"models": models})
	}
}

// RecentDetectionsHandler returns the latest stored detection runs.
func RecentDetectionsHandler(detectionRepo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := atoiDefault(r.URL.Query().Get("limit"), 50)

		runs, err := detectionRepo.GetRecent(limit)
		if err != nil {
			logger.Error("Failed to load detection history: %v", err)
			jsonError(w, http.StatusInternalServerError, "Failed to load detection history")
			return
		}
		if runs == nil {
			runs = []models.DetectionRun{}
		}

		counts, err := detectionRepo.CountByModel()
		if err != nil {
			logger.Error("Failed to count detection runs: %v", err)
			counts = map[string]int{}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"runs":      runs,
			"per_model": counts,
			"run_count": len(runs),
		})
	}
}

// ClearDetectionsHandler wipes the detection history.
func ClearDetectionsHandler(detectionRepo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		if err := detectionRepo.DeleteAll(); err != nil {
			logger.Error("Failed to clear detection history: %v", err)
			jsonError(w, http.StatusInternalServerError, "Failed to clear detection history")
			return
		}

		logger.Info("Detection history cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}
