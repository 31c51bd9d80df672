package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"dataviewer/internal/dataset"
	"dataviewer/internal/logger"
)

// labelsResponse is the payload of the label endpoints.
type labelsResponse struct {
	Image     string        `json:"image"`
	LabelFile string        `json:"label_file"`
	Labels    []dataset.Box `json:"labels"`
}

// LabelsHandler returns the YOLO boxes for one dataset entry. Folder mode
// derives the label path from label_dir and rel_path; txt mode consults the
// manifest loader, with a direct-path shortcut for auto-mapping entries.
func LabelsHandler(resolver *dataset.Resolver, loader *dataset.Loader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mode := strings.ToLower(q.Get("mode"))
		if mode == "" {
			mode = "folder"
		}
		relPath := q.Get("rel_path")
		if relPath == "" {
			jsonError(w, http.StatusBadRequest, "rel_path parameter is required")
			return
		}

		labelPath := ""
		switch mode {
		case "folder":
			labelDir := q.Get("label_dir")
			if labelDir == "" {
				jsonError(w, http.StatusBadRequest, "Label dir required")
				return
			}
			labelRel := strings.TrimSuffix(relPath, filepath.Ext(relPath)) + dataset.LabelExt
			labelPath = filepath.Join(resolver.Resolve(labelDir), filepath.FromSlash(labelRel))
		default:
			if direct := q.Get("label_path_direct"); direct != "" {
				labelPath = direct
				break
			}
			trainFile := q.Get("train_file")
			if trainFile == "" {
				break
			}
			labelDir := q.Get("label_dir")
			labelDirPath := ""
			if labelDir != "" && labelDir != "auto" {
				labelDirPath = resolver.Resolve(labelDir)
			}
			if entry, ok := loader.EntryByRel(resolver.Resolve(trainFile), labelDirPath, relPath); ok {
				labelPath = entry.LabelPath
			}
		}

		writeJSON(w, http.StatusOK, labelsResponse{
			Image:     relPath,
			LabelFile: labelPath,
			Labels:    dataset.ReadLabelFile(labelPath),
		})
	}
}

// AnnotateLabelsHandler loads existing labels for the annotate page.
func AnnotateLabelsHandler(resolver *dataset.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		relPath := q.Get("rel_path")
		labelDir := q.Get("label_dir")
		if relPath == "" || labelDir == "" {
			jsonError(w, http.StatusBadRequest, "rel_path and label_dir parameters are required")
			return
		}

		labelDirPath := resolver.Resolve(labelDir)
		if !isDir(labelDirPath) {
			jsonError(w, http.StatusNotFound, "Label directory not found: "+labelDir)
			return
		}

		labelRel := strings.TrimSuffix(relPath, filepath.Ext(relPath)) + dataset.LabelExt
		labelPath := filepath.Join(labelDirPath, filepath.FromSlash(labelRel))

		writeJSON(w, http.StatusOK, labelsResponse{
			Image:     relPath,
			LabelFile: labelPath,
			Labels:    dataset.ReadLabelFile(labelPath),
		})
	}
}

// annotateSaveRequest is the save payload; boxes arrive as
// [class, x, y, w, h] rows.
type annotateSaveRequest struct {
	LabelDir string      `json:"label_dir"`
	RelPath  string      `json:"rel_path"`
	Boxes    [][]float64 `json:"boxes"`
}

// AnnotateSaveHandler writes hand-drawn boxes as a YOLO label file under the
// label directory, mirroring the image's relative path.
func AnnotateSaveHandler(resolver *dataset.Resolver, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			jsonError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		var req annotateSaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if req.LabelDir == "" {
			jsonError(w, http.StatusBadRequest, "Label directory is required")
			return
		}
		if req.RelPath == "" {
			jsonError(w, http.StatusBadRequest, "Relative path is required")
			return
		}

		labelDirPath := resolver.Resolve(req.LabelDir)
		if !isDir(labelDirPath) {
			jsonError(w, http.StatusNotFound, "Label directory not found: "+req.LabelDir)
			return
		}

		labelRel := strings.TrimSuffix(req.RelPath, filepath.Ext(req.RelPath)) + dataset.LabelExt
		labelPath := filepath.Join(labelDirPath, filepath.FromSlash(labelRel))

		boxes := boxesFromRows(req.Boxes)
		if err := dataset.WriteLabelFile(labelPath, boxes); err != nil {
			logger.Error("Failed to save label file %s: %v", labelPath, err)
			jsonError(w, http.StatusInternalServerError, "Failed to save labels")
			return
		}

		logger.Info("Saved %d boxes to %s", len(boxes), labelPath)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "success",
			"label_file": labelPath,
			"box_count":  len(boxes),
		})
	}
}
