package dataset

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LabelExt is the extension of YOLO label files.
const LabelExt = ".txt"

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// IsImageFile reports whether path has a supported image extension.
func IsImageFile(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// Entry pairs a manifest image line with its discovered label file.
// Entries are immutable once constructed.
type Entry struct {
	ImagePath string `json:"image_path"`
	LabelPath string `json:"label_path"`
	RelPath   string `json:"rel_path"`
	LabelRel  string `json:"label_rel"`
}

type cacheKey struct {
	manifest    string
	labelSource string // resolved label directory, or "auto"
}

type cacheValue struct {
	mtime   time.Time
	entries []Entry
	byRel   map[string]Entry
}

// Loader parses train manifests and caches the result keyed by
// (manifest path, label source). A cached parse stays valid while the
// manifest's modification time is unchanged; any mismatch forces a full
// re-parse. The cache is never evicted and lives for the process lifetime.
//
// Concurrent loads of the same key may race to re-parse; the parse is
// deterministic so the last writer winning is harmless.
type Loader struct {
	resolver *Resolver
	mu       sync.RWMutex
	cache    map[cacheKey]*cacheValue
}

func NewLoader(resolver *Resolver) *Loader {
	return &Loader{
		resolver: resolver,
		cache:    make(map[cacheKey]*cacheValue),
	}
}

// Load returns the entries of the given manifest. labelDir selects the label
// discovery mode: a directory path enables the ancestor search under that
// root, an empty string enables auto mapping (images -> labels substitution).
func (l *Loader) Load(manifestPath, labelDir string) ([]Entry, error) {
	manifestPath = absPath(manifestPath)
	key := cacheKey{manifest: manifestPath, labelSource: labelSource(labelDir)}

	info, err := os.Stat(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat manifest %s: %w", manifestPath, err)
	}
	mtime := info.ModTime()

	l.mu.RLock()
	cached := l.cache[key]
	l.mu.RUnlock()

	if cached != nil && cached.mtime.Equal(mtime) {
		return cached.entries, nil
	}

	entries, byRel, err := l.parse(manifestPath, labelDir)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[key] = &cacheValue{mtime: mtime, entries: entries, byRel: byRel}
	l.mu.Unlock()

	return entries, nil
}

// EntryByRel looks up a single entry by its relative path, loading (or
// re-validating) the manifest first. Unknown relative paths report false.
func (l *Loader) EntryByRel(manifestPath, labelDir, relPath string) (Entry, bool) {
	manifestPath = absPath(manifestPath)
	if _, err := l.Load(manifestPath, labelDir); err != nil {
		return Entry{}, false
	}

	key := cacheKey{manifest: manifestPath, labelSource: labelSource(labelDir)}

	l.mu.RLock()
	cached := l.cache[key]
	l.mu.RUnlock()

	if cached == nil {
		return Entry{}, false
	}
	entry, ok := cached.byRel[relPath]
	return entry, ok
}

// parse reads the manifest line by line. Per-line failures (missing file,
// wrong extension, no label, duplicate relative path) are skipped silently.
func (l *Loader) parse(manifestPath, labelDir string) ([]Entry, map[string]Entry, error) {
	file, err := os.Open(manifestPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open manifest %s: %w", manifestPath, err)
	}
	defer file.Close()

	var entries []Entry
	byRel := make(map[string]Entry)
	seen := make(map[string]bool)
	baseDir := filepath.Dir(manifestPath)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		imagePath := l.resolver.ResolveWithBase(line, baseDir)
		info, err := os.Stat(imagePath)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if !IsImageFile(imagePath) {
			continue
		}
		imagePath = absPath(imagePath)

		var relPath, labelRel, labelAbs string
		if labelDir != "" {
			var ok bool
			relPath, labelRel, labelAbs, ok = FindLabel(imagePath, labelDir)
			if !ok {
				continue
			}
		} else {
			labelAbs = autoLabelPath(imagePath)
			if labelAbs == "" {
				continue
			}
			relPath = filepath.Base(imagePath)
			labelRel = filepath.Base(labelAbs)
		}

		if seen[relPath] {
			continue
		}
		seen[relPath] = true

		entry := Entry{
			ImagePath: imagePath,
			LabelPath: labelAbs,
			RelPath:   relPath,
			LabelRel:  labelRel,
		}
		entries = append(entries, entry)
		byRel[relPath] = entry
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read manifest %s: %w", manifestPath, err)
	}

	return entries, byRel, nil
}

// FindLabel locates the label file for imagePath under labelRoot. Manifest
// lines may be absolute or nested arbitrarily deep relative to an unknown
// root, so every ancestor of the image path is tried nearest-first: the
// image's path relative to that ancestor, with the label extension, is
// probed under labelRoot. When no ancestor matches, a bare-filename match
// at the label root is tried last.
func FindLabel(imagePath, labelRoot string) (relPath, labelRel, labelAbs string, ok bool) {
	imagePath = absPath(imagePath)
	labelRoot = absPath(labelRoot)
	seen := make(map[string]bool)

	for dir := filepath.Dir(imagePath); ; dir = filepath.Dir(dir) {
		rel, err := filepath.Rel(dir, imagePath)
		if err == nil {
			rel = filepath.ToSlash(rel)
			if !seen[rel] {
				seen[rel] = true
				candidateRel := swapExt(rel, LabelExt)
				if candidate := joinFileIfExists(labelRoot, candidateRel); candidate != "" {
					return rel, candidateRel, candidate, true
				}
			}
		}
		if filepath.Dir(dir) == dir {
			break
		}
	}

	name := filepath.Base(imagePath)
	if !seen[name] {
		candidateRel := swapExt(name, LabelExt)
		if candidate := joinFileIfExists(labelRoot, candidateRel); candidate != "" {
			return name, candidateRel, candidate, true
		}
	}

	return "", "", "", false
}

// autoLabelPath maps the first "images" path segment to "labels" and swaps
// the extension. Returns "" when the path has no images segment or the
// mapped file does not exist.
func autoLabelPath(imagePath string) string {
	sep := string(os.PathSeparator)
	marker := sep + "images" + sep
	if !strings.Contains(imagePath, marker) {
		return ""
	}

	labelPath := swapExt(strings.Replace(imagePath, marker, sep+"labels"+sep, 1), LabelExt)
	if info, err := os.Stat(labelPath); err == nil && info.Mode().IsRegular() {
		return labelPath
	}
	return ""
}

// joinFileIfExists joins rel onto base and returns the result only when it
// is a regular file that stays inside base. Absolute rel paths and paths
// escaping the root via ".." are rejected.
func joinFileIfExists(base, rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return ""
	}

	candidate := filepath.Join(base, filepath.FromSlash(rel))
	inside, err := filepath.Rel(base, candidate)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(os.PathSeparator)) {
		return ""
	}

	if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
		return candidate
	}
	return ""
}

func swapExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func labelSource(labelDir string) string {
	if labelDir == "" {
		return "auto"
	}
	return absPath(labelDir)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
