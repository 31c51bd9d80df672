// Package detect runs DNN object detection on dataset images.
package detect

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"dataviewer/internal/config"
	"dataviewer/internal/logger"
)

const (
	// ModelExt is the extension of model files served from the model directory.
	ModelExt = ".onnx"
	// InputSize is the square input resolution fed to the network.
	InputSize = 640
	// NMSThreshold is the IoU threshold for non-maximum suppression.
	NMSThreshold = 0.45
)

// Detection is one detected object with the bounding box in normalized
// YOLO coordinates (center x/y, width, height in [0,1]).
type Detection struct {
	Class      int
	X          float64
	Y          float64
	W          float64
	H          float64
	Confidence float64
}

// Service loads detection networks lazily, one per model name, and keeps
// them cached for the process lifetime.
type Service struct {
	modelDir    string
	defaultConf float64
	logger      *logger.Logger

	mu   sync.Mutex
	nets map[string]gocv.Net
}

// NewService creates the detection service. No model is loaded until the
// first Detect call names it.
func NewService(config *config.Config, logger *logger.Logger) *Service {
	return &Service{
		modelDir:    config.ModelDirectory,
		defaultConf: config.DetectionConf,
		logger:      logger,
		nets:        make(map[string]gocv.Net),
	}
}

// ListModels returns the basenames of model files in the model directory.
func (s *Service) ListModels() []string {
	var models []string

	entries, err := os.ReadDir(s.modelDir)
	if err != nil {
		return models
	}
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ModelExt) {
			models = append(models, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		}
	}
	sort.Strings(models)

	return models
}

// Detect runs inference on the image file and returns detections above the
// confidence threshold. conf <= 0 selects the configured default. A non-nil
// classFilter restricts results to the listed class ids.
func (s *Service) Detect(imagePath, model string, conf float64, classFilter []int) ([]Detection, error) {
	if conf <= 0 {
		conf = s.defaultConf
	}

	net, err := s.getNet(model)
	if err != nil {
		return nil, err
	}

	mat := gocv.IMRead(imagePath, gocv.IMReadColor)
	if mat.Empty() {
		return nil, fmt.Errorf("failed to read image: %s", imagePath)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(InputSize, InputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.mu.Lock()
	net.SetInput(blob, "")
	output := net.Forward("")
	s.mu.Unlock()
	defer output.Close()

	detections := s.decodeOutput(output, conf, classFilter)
	s.logger.Info("Model %s: %d detections on %s", model, len(detections), filepath.Base(imagePath))

	return detections, nil
}

// getNet returns the cached network for model, loading it on first use.
func (s *Service) getNet(model string) (gocv.Net, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if net, ok := s.nets[model]; ok {
		return net, nil
	}

	modelPath := filepath.Join(s.modelDir, model+ModelExt)
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return gocv.Net{}, fmt.Errorf("model not found: %s", modelPath)
	}

	s.logger.Info("Loading detection model from %s...", modelPath)
	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		return gocv.Net{}, fmt.Errorf("failed to load network: %s", modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return gocv.Net{}, fmt.Errorf("failed to set preferable backend or target")
	}

	s.nets[model] = net
	s.logger.Info("Detection model %s loaded successfully", model)

	return net, nil
}

// decodeOutput converts the raw (1, 4+numClasses, numBoxes) tensor into
// normalized detections, applying the confidence threshold, the optional
// class filter and non-maximum suppression.
func (s *Service) decodeOutput(output gocv.Mat, conf float64, classFilter []int) []Detection {
	sizes := output.Size()
	if len(sizes) < 3 {
		return nil
	}
	dims := sizes[1]
	boxes := sizes[2]
	if dims < 5 {
		return nil
	}

	reshaped := output.Reshape(1, dims)
	defer reshaped.Close()

	allowed := make(map[int]bool, len(classFilter))
	for _, c := range classFilter {
		allowed[c] = true
	}

	var (
		rects      []image.Rectangle
		scores     []float32
		candidates []Detection
	)

	for j := 0; j < boxes; j++ {
		bestClass := -1
		bestScore := float32(0)
		for c := 4; c < dims; c++ {
			if score := reshaped.GetFloatAt(c, j); score > bestScore {
				bestScore = score
				bestClass = c - 4
			}
		}
		if bestClass < 0 || float64(bestScore) < conf {
			continue
		}
		if classFilter != nil && !allowed[bestClass] {
			continue
		}

		cx := reshaped.GetFloatAt(0, j)
		cy := reshaped.GetFloatAt(1, j)
		w := reshaped.GetFloatAt(2, j)
		h := reshaped.GetFloatAt(3, j)

		rects = append(rects, image.Rect(
			int(cx-w/2), int(cy-h/2),
			int(cx+w/2), int(cy+h/2),
		))
		scores = append(scores, bestScore)
		candidates = append(candidates, Detection{
			Class:      bestClass,
			X:          float64(cx) / InputSize,
			Y:          float64(cy) / InputSize,
			W:          float64(w) / InputSize,
			H:          float64(h) / InputSize,
			Confidence: float64(bestScore),
		})
	}

	if len(candidates) == 0 {
		return nil
	}

	var results []Detection
	for _, idx := range gocv.NMSBoxes(rects, scores, float32(conf), NMSThreshold) {
		results = append(results, candidates[idx])
	}

	return results
}

// Close releases all loaded networks.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, net := range s.nets {
		net.Close()
		delete(s.nets, name)
	}
}
