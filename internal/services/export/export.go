// Package export packages annotated datasets into downloadable ZIP archives.
package export

import (
	"archive/zip"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"dataviewer/internal/config"
	"dataviewer/internal/dataset"
	"dataviewer/internal/logger"
)

// Request describes one export: the source image directory, the output
// resolution, and the annotations keyed by image relative path.
type Request struct {
	ImgDir       string
	TargetWidth  int
	TargetHeight int
	Annotations  map[string][]dataset.Box
}

// Service writes annotated datasets as ZIP archives with YOLO layout
// (images/ and labels/ trees).
type Service struct {
	quality int
	logger  *logger.Logger
}

func NewService(config *config.Config, logger *logger.Logger) *Service {
	return &Service{
		quality: config.ExportQuality,
		logger:  logger,
	}
}

// Filename returns a timestamped archive name for the download response.
func (s *Service) Filename() string {
	return fmt.Sprintf("dataset_%d.zip", time.Now().Unix())
}

// WriteZip streams the archive for req to w. Entries whose image cannot be
// read are skipped with a warning; only archive-level failures are errors.
func (s *Service) WriteZip(w io.Writer, req Request) error {
	if req.TargetWidth <= 0 || req.TargetHeight <= 0 {
		return fmt.Errorf("invalid target size %dx%d", req.TargetWidth, req.TargetHeight)
	}

	zw := zip.NewWriter(w)

	// Sorted so repeated exports of the same dataset produce identical archives
	relPaths := make([]string, 0, len(req.Annotations))
	for relPath := range req.Annotations {
		relPaths = append(relPaths, relPath)
	}
	sort.Strings(relPaths)

	for _, relPath := range relPaths {
		boxes := req.Annotations[relPath]
		imgBytes, err := s.resizeImage(filepath.Join(req.ImgDir, relPath), req.TargetWidth, req.TargetHeight)
		if err != nil {
			s.logger.Warning("Export: skipping %s: %v", relPath, err)
			continue
		}

		outName := swapToSlash(relPath, ".jpg")
		entry, err := zw.Create("images/" + outName)
		if err != nil {
			return fmt.Errorf("failed to create zip entry: %w", err)
		}
		if _, err := entry.Write(imgBytes); err != nil {
			return fmt.Errorf("failed to write zip entry: %w", err)
		}

		var lines []string
		for _, box := range boxes {
			lines = append(lines, dataset.FormatLabelLine(box))
		}
		labelName := swapToSlash(relPath, dataset.LabelExt)
		labelEntry, err := zw.Create("labels/" + labelName)
		if err != nil {
			return fmt.Errorf("failed to create zip entry: %w", err)
		}
		if _, err := labelEntry.Write([]byte(strings.Join(lines, "\n"))); err != nil {
			return fmt.Errorf("failed to write zip entry: %w", err)
		}
	}

	return zw.Close()
}

// resizeImage reads, resizes and re-encodes one image as JPEG.
func (s *Service) resizeImage(path string, width, height int) ([]byte, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		return nil, fmt.Errorf("failed to read image: %s", path)
	}
	defer mat.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, resized, []int{gocv.IMWriteJpegQuality, s.quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())

	return out, nil
}

func swapToSlash(relPath, ext string) string {
	rel := filepath.ToSlash(relPath)
	return strings.TrimSuffix(rel, filepath.Ext(rel)) + ext
}
