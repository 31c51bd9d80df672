package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Box is one YOLO annotation: class id plus a bounding box given as
// normalized center x/y and width/height, all in [0,1].
type Box struct {
	Class int     `json:"class"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
}

// ReadLabelFile parses a YOLO label file, one detection per line as
// "class x_center y_center width height". Malformed lines are skipped
// silently; a missing file yields an empty result.
func ReadLabelFile(path string) []Box {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var boxes []Box
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 5 {
			continue
		}

		// Class ids are sometimes written as "0.0"; parse as float first
		classVal, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			continue
		}

		coords := make([]float64, 4)
		valid := true
		for i := 0; i < 4; i++ {
			coords[i], err = strconv.ParseFloat(parts[i+1], 64)
			if err != nil {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}

		boxes = append(boxes, Box{
			Class: int(classVal),
			X:     coords[0],
			Y:     coords[1],
			W:     coords[2],
			H:     coords[3],
		})
	}

	return boxes
}

// WriteLabelFile writes boxes in YOLO format, creating parent directories
// as needed. An empty box list produces an empty file.
func WriteLabelFile(path string, boxes []Box) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create label directory: %w", err)
	}

	var sb strings.Builder
	for _, box := range boxes {
		sb.WriteString(FormatLabelLine(box))
		sb.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write label file: %w", err)
	}
	return nil
}

// FormatLabelLine renders one YOLO label line with six-digit coordinates.
func FormatLabelLine(box Box) string {
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", box.Class, box.X, box.Y, box.W, box.H)
}
