package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"

	"dataviewer/internal/dataset"
)

// ImageHandler serves the image file for a dataset entry. Folder mode joins
// rel_path onto img_dir; txt mode goes through the manifest loader with a
// direct-path shortcut and a manifest-relative fallback for entries that
// predate the current cache.
func ImageHandler(resolver *dataset.Resolver, loader *dataset.Loader) http.HandlerFunc {
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

		if mode == "folder" {
			imgDir := q.Get("img_dir")
			if imgDir == "" {
				jsonError(w, http.StatusBadRequest, "Image dir required")
				return
			}
			imgPath := filepath.Join(resolver.Resolve(imgDir), filepath.FromSlash(relPath))
			if serveImage(w, r, imgPath) {
				return
			}
			jsonError(w, http.StatusNotFound, "Image not found: "+relPath)
			return
		}

		// txt mode: direct path first (auto-mapping entries carry it)
		if direct := q.Get("image_path_direct"); direct != "" {
			if serveImage(w, r, direct) {
				return
			}
		}

		trainFile := q.Get("train_file")
		if trainFile == "" {
			jsonError(w, http.StatusBadRequest, "Train file required")
			return
		}
		trainFilePath := resolver.Resolve(trainFile)

		labelDir := q.Get("label_dir")
		labelDirPath := ""
		if labelDir != "" && labelDir != "auto" {
			labelDirPath = resolver.Resolve(labelDir)
		}

		if entry, ok := loader.EntryByRel(trainFilePath, labelDirPath, relPath); ok {
			if serveImage(w, r, entry.ImagePath) {
				return
			}
		}

		// Fallback: treat rel_path as a manifest line
		candidate := resolver.ResolveWithBase(relPath, filepath.Dir(trainFilePath))
		if serveImage(w, r, candidate) {
			return
		}

		jsonError(w, http.StatusNotFound, "Image not found: "+relPath)
	}
}

// serveImage serves path with a content ETag; reports false when the file
// does not exist so the caller can try the next candidate.
func serveImage(w http.ResponseWriter, r *http.Request, path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	w.Header().Set("ETag", imageETag(path, info))
	http.ServeFile(w, r, path)
	return true
}

// imageETag derives a cheap validator from path, mtime and size. Content is
// never hashed; dataset files change via replacement, not in place.
func imageETag(path string, info os.FileInfo) string {
	h := xxhash.New()
	_, _ = h.WriteString(path)
	_, _ = h.WriteString(info.ModTime().UTC().String())
	_, _ = fmt.Fprintf(h, "%d", info.Size())
	return fmt.Sprintf(`"%x"`, h.Sum64())
}
