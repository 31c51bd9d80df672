package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"dataviewer/internal/dataset"
	"dataviewer/internal/logger"
)

// Renderer renders the HTML pages from the template directory.
type Renderer struct {
	tmpl   *template.Template
	logger *logger.Logger
}

// NewRenderer parses all templates under templateDir.
func NewRenderer(templateDir string, logger *logger.Logger) (*Renderer, error) {
	tmpl, err := template.ParseGlob(filepath.Join(templateDir, "*.html"))
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl, logger: logger}, nil
}

// Render writes one template with the given status code.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := r.tmpl.ExecuteTemplate(w, name, data); err != nil {
		r.logger.Error("Error rendering template %s: %v", name, err)
	}
}

// indexPage is the template context for the dataset selection page.
type indexPage struct {
	Error   string
	Prefill map[string]string
}

// viewerImage mirrors one dataset entry for the viewer frontend.
type viewerImage struct {
	RelPath   string `json:"rel_path"`
	LabelRel  string `json:"label_rel,omitempty"`
	ImagePath string `json:"image_path,omitempty"`
	LabelPath string `json:"label_path,omitempty"`
}

// viewerData is serialized into the viewer/annotate pages as JSON.
type viewerData struct {
	Mode      string        `json:"mode"`
	Images    []viewerImage `json:"images"`
	ImgDir    string        `json:"img_dir,omitempty"`
	LabelDir  string        `json:"label_dir,omitempty"`
	TrainFile string        `json:"train_file,omitempty"`
}

// dataPage carries the serialized dataset payload into a template.
type dataPage struct {
	DataJSON template.JS
}

func (r *Renderer) renderData(w http.ResponseWriter, name string, data viewerData) {
	payload, err := json.Marshal(data)
	if err != nil {
		r.logger.Error("Error encoding page data: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	r.Render(w, http.StatusOK, name, dataPage{DataJSON: template.JS(payload)})
}

func (r *Renderer) renderIndexError(w http.ResponseWriter, message string, prefill map[string]string) {
	r.Render(w, http.StatusBadRequest, "index.html", indexPage{Error: message, Prefill: prefill})
}

// IndexHandler serves the dataset selection page.
func IndexHandler(rnd *Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		rnd.Render(w, http.StatusOK, "index.html", indexPage{})
	}
}

// ViewerHandler validates the requested dataset and serves the viewer page.
// Folder mode requires img_dir and label_dir; txt mode requires train_file
// and falls back to images->labels auto mapping when label_dir is omitted.
func ViewerHandler(rnd *Renderer, resolver *dataset.Resolver, loader *dataset.Loader, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mode := strings.ToLower(q.Get("mode"))
		if mode == "" {
			mode = "folder"
		}
		if mode != "folder" && mode != "txt" {
			jsonError(w, http.StatusBadRequest, "Invalid dataset mode")
			return
		}

		imgDir := q.Get("img_dir")
		trainFile := q.Get("train_file")
		labelDir := q.Get("label_dir")

		prefill := map[string]string{"mode": mode}
		if labelDir != "" {
			prefill["label_dir"] = labelDir
		}

		labelDirPath := ""
		if labelDir != "" && labelDir != "auto" {
			labelDirPath = resolver.Resolve(labelDir)
			if !isDir(labelDirPath) {
				rnd.renderIndexError(w, "Invalid label directory: "+labelDir, prefill)
				return
			}
		}

		if mode == "folder" {
			prefill["img_dir"] = imgDir
			if labelDirPath == "" {
				rnd.renderIndexError(w, "Label directory is required for folder mode.", prefill)
				return
			}
			if imgDir == "" {
				rnd.renderIndexError(w, "Image directory required", prefill)
				return
			}

			imgDirPath := resolver.Resolve(imgDir)
			if !isDir(imgDirPath) {
				rnd.renderIndexError(w, "Invalid image directory: "+imgDir, prefill)
				return
			}

			images := dataset.ListImages(imgDirPath, labelDirPath)
			if len(images) == 0 {
				rnd.renderIndexError(w, "No matching images found", prefill)
				return
			}

			data := viewerData{
				Mode:     mode,
				ImgDir:   imgDirPath,
				LabelDir: labelDirPath,
			}
			for _, rel := range images {
				data.Images = append(data.Images, viewerImage{RelPath: rel})
			}
			rnd.renderData(w, "viewer.html", data)
			return
		}

		// txt mode
		prefill["train_file"] = trainFile
		if trainFile == "" {
			rnd.renderIndexError(w, "Train file required", prefill)
			return
		}

		trainFilePath := resolver.Resolve(trainFile)
		entries, err := loader.Load(trainFilePath, labelDirPath)
		if err != nil {
			logger.Warning("Viewer: failed to load manifest %s: %v", trainFile, err)
			rnd.renderIndexError(w, "Invalid train file: "+trainFile, prefill)
			return
		}
		if len(entries) == 0 {
			msg := "No valid entries in train file"
			if labelDirPath == "" {
				msg += " (auto-mapping: images/ -> labels/)"
			}
			rnd.renderIndexError(w, msg, prefill)
			return
		}

		data := viewerData{
			Mode:      mode,
			TrainFile: trainFilePath,
			LabelDir:  labelDirPath,
		}
		if labelDirPath == "" {
			data.LabelDir = "auto"
		}
		for _, entry := range entries {
			data.Images = append(data.Images, viewerImage{
				RelPath:   entry.RelPath,
				LabelRel:  entry.LabelRel,
				ImagePath: entry.ImagePath,
				LabelPath: entry.LabelPath,
			})
		}
		rnd.renderData(w, "viewer.html", data)
	}
}

// AnnotateHandler serves the hand-annotation page for an image directory.
// Labels are optional here; every image under img_dir is offered.
func AnnotateHandler(rnd *Renderer, resolver *dataset.Resolver, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		imgDir := q.Get("img_dir")
		labelDir := q.Get("label_dir")

		if imgDir == "" {
			jsonError(w, http.StatusBadRequest, "Image directory required")
			return
		}

		imgDirPath := resolver.Resolve(imgDir)
		if !isDir(imgDirPath) {
			jsonError(w, http.StatusNotFound, "Image directory not found: "+imgDir)
			return
		}

		labelDirPath := ""
		if labelDir != "" {
			labelDirPath = resolver.Resolve(labelDir)
			if !isDir(labelDirPath) {
				jsonError(w, http.StatusNotFound, "Label directory not found: "+labelDir)
				return
			}
		}

		images := dataset.CollectAll(imgDirPath)
		if len(images) == 0 {
			jsonError(w, http.StatusNotFound, "No images found in directory")
			return
		}
		logger.Info("Annotate: %d images under %s", len(images), imgDirPath)

		data := viewerData{
			Mode:     "annotate",
			ImgDir:   imgDirPath,
			LabelDir: labelDirPath,
		}
		for _, rel := range images {
			data.Images = append(data.Images, viewerImage{RelPath: rel})
		}
		rnd.renderData(w, "annotate.html", data)
	}
}
