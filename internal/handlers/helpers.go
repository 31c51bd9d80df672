package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"dataviewer/internal/dataset"
)

// writeJSON encodes v as the JSON response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonError writes a JSON error payload with the given status.
func jsonError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseFloatDefault converts string to float64 or returns a default.
func parseFloatDefault(s string, def float64) float64 {
	if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 {
		return v
	}
	return def
}

// isDir reports whether path exists and is a directory.
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// boxesFromRows converts wire-format [class, x, y, w, h] rows into boxes.
// Short rows are dropped silently, matching the label parser.
func boxesFromRows(rows [][]float64) []dataset.Box {
	var boxes []dataset.Box
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		boxes = append(boxes, dataset.Box{
			Class: int(row[0]),
			X:     row[1],
			Y:     row[2],
			W:     row[3],
			H:     row[4],
		})
	}
	return boxes
}
