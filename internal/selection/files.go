package selection

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImage reports whether name has an image extension the generator accepts.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// ImageExtensions returns the accepted extensions, sorted, for file
// dialog filters.
func ImageExtensions() []string {
	exts := make([]string, 0, len(imageExtensions))
	for ext := range imageExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ExpandPatterns expands glob patterns (even when quoted by the shell) into
// file paths. Order follows the arguments; duplicates are kept because the
// selection never de-duplicates.
func ExpandPatterns(patterns []string) ([]string, error) {
	var paths []string

	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[]") {
			paths = append(paths, pattern)
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match pattern: %s", pattern)
		}
		paths = append(paths, matches...)
	}

	return paths, nil
}

// LoadFiles reads every path (after glob expansion) into memory.
func LoadFiles(patterns []string) ([]File, error) {
	paths, err := ExpandPatterns(patterns)
	if err != nil {
		return nil, err
	}
	return readPaths(paths)
}

func readPaths(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("'%s' is a directory, not a file", path)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, File{Name: filepath.Base(path), Content: content})
	}

	return files, nil
}

// LoadImagesInDir reads every image directly inside dir, sorted by name.
// Subdirectories and non-image files are skipped.
func LoadImagesInDir(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsImage(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	return readPaths(paths)
}
