// Package dataset implements path resolution, manifest loading and label
// discovery for YOLO-style image datasets.
package dataset

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolver maps user-supplied filesystem paths onto paths that exist where
// the server runs. Input may be a path valid on the deployment host
// (e.g. /data/datasets/fall2024) whose directory is mounted elsewhere inside
// the container (e.g. /datasets/fall2024).
type Resolver struct {
	HostRoot      string
	ContainerRoot string
}

func NewResolver(hostRoot, containerRoot string) *Resolver {
	return &Resolver{
		HostRoot:      hostRoot,
		ContainerRoot: containerRoot,
	}
}

// Resolve returns the best-effort existing path for raw. The literal path is
// tried first, then the host-to-container prefix substitution. When neither
// exists the trimmed input is returned unchanged; callers must check
// existence themselves, the resolver never fails.
func (r *Resolver) Resolve(raw string) string {
	cleaned := expandHome(strings.TrimSpace(raw))
	if cleaned == "" {
		return cleaned
	}

	if pathExists(cleaned) {
		if abs, err := filepath.Abs(cleaned); err == nil {
			return abs
		}
		return cleaned
	}

	// HostRoot usually does not exist inside the container, so the mapping
	// is plain string manipulation rather than filesystem resolution.
	if r.HostRoot != "" && strings.HasPrefix(cleaned, r.HostRoot) {
		rel := strings.TrimLeft(strings.TrimPrefix(cleaned, r.HostRoot), string(os.PathSeparator))
		mapped := filepath.Join(r.ContainerRoot, rel)
		if pathExists(mapped) {
			return mapped
		}
	}

	return cleaned
}

// ResolveWithBase resolves raw, additionally trying a join onto baseDir when
// the resolved path does not exist. Manifest lines are resolved this way so
// that paths relative to the manifest's own directory keep working.
func (r *Resolver) ResolveWithBase(raw, baseDir string) string {
	cleaned := strings.TrimSpace(raw)
	candidate := r.Resolve(cleaned)
	if pathExists(candidate) {
		return candidate
	}

	if baseDir != "" {
		tentative := filepath.Join(baseDir, cleaned)
		if pathExists(tentative) {
			return tentative
		}
	}

	return candidate
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
