package handlers

import (
	"encoding/json"
	"net/http"

	"dataviewer/internal/dataset"
	"dataviewer/internal/logger"
	"dataviewer/internal/services/export"
)

// exportRequest is the export payload: annotations keyed by image relative
// path, boxes as [class, x, y, w, h] rows, target_size as [width, height].
type exportRequest struct {
	ImgDir      string                 `json:"img_dir"`
	TargetSize  []int                  `json:"target_size"`
	Annotations map[string][][]float64 `json:"annotations"`
}

// ExportHandler streams a ZIP of resized images and YOLO labels for the
// submitted annotations.
func ExportHandler(resolver *dataset.Resolver, exporter *export.Service, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req exportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if len(req.TargetSize) != 2 || req.TargetSize[0] <= 0 || req.TargetSize[1] <= 0 {
			jsonError(w, http.StatusBadRequest, "target_size must be [width, height] with positive dimensions")
			return
		}
		if len(req.Annotations) == 0 {
			jsonError(w, http.StatusBadRequest, "No annotations to export")
			return
		}

		annotations := make(map[string][]dataset.Box, len(req.Annotations))
		for rel, rows := range req.Annotations {
			annotations[rel] = boxesFromRows(rows)
		}

		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", "attachment; filename="+exporter.Filename())

		err := exporter.WriteZip(w, export.Request{
			ImgDir:       resolver.Resolve(req.ImgDir),
			TargetWidth:  req.TargetSize[0],
			TargetHeight: req.TargetSize[1],
			Annotations:  annotations,
		})
		if err != nil {
			// Headers are out; all we can do is log and drop the connection
			logger.Error("Export failed: %v", err)
		}
	}
}
