package dataset

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ListImages scans imgDir at depth one plus its direct subdirectories and
// returns the relative paths of images whose label file exists under
// labelDir at the same relative path. Deeper nesting is intentionally not
// scanned; manifests cover those layouts.
func ListImages(imgDir, labelDir string) []string {
	var images []string

	entries, err := os.ReadDir(imgDir)
	if err != nil {
		return images
	}

	var files, dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		} else if IsImageFile(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	sort.Strings(dirs)

	for _, name := range files {
		if hasLabel(labelDir, name) {
			images = append(images, name)
		}
	}

	for _, dir := range dirs {
		subEntries, err := os.ReadDir(filepath.Join(imgDir, dir))
		if err != nil {
			continue
		}
		var subFiles []string
		for _, e := range subEntries {
			if !e.IsDir() && IsImageFile(e.Name()) {
				subFiles = append(subFiles, e.Name())
			}
		}
		sort.Strings(subFiles)
		for _, name := range subFiles {
			rel := filepath.Join(dir, name)
			if hasLabel(labelDir, rel) {
				images = append(images, filepath.ToSlash(rel))
			}
		}
	}

	return images
}

// CollectAll recursively returns the relative paths of every image under
// imgDir, in lexical order. Used by annotate mode, which has no label
// requirement.
func CollectAll(imgDir string) []string {
	var images []string

	_ = filepath.WalkDir(imgDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !IsImageFile(path) {
			return nil
		}
		if rel, err := filepath.Rel(imgDir, path); err == nil {
			images = append(images, filepath.ToSlash(rel))
		}
		return nil
	})

	return images
}

func hasLabel(labelDir, imageRel string) bool {
	info, err := os.Stat(filepath.Join(labelDir, swapExt(imageRel, LabelExt)))
	return err == nil && info.Mode().IsRegular()
}
