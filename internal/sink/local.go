package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rescale/appendix-client/internal/diskspace"
)

// maxNameAttempts bounds the " (n)" suffix search.
const maxNameAttempts = 1000

// LocalSink writes documents into a directory. Existing files are never
// overwritten; a clash yields "name (1).ext", "name (2).ext" and so on.
type LocalSink struct {
	dir string
	mu  sync.Mutex
}

// NewLocalSink creates dir if needed.
func NewLocalSink(dir string) (*LocalSink, error) {
	if dir == "" {
		return nil, errors.New("output directory is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &LocalSink{dir: dir}, nil
}

// Dir returns the target directory.
func (s *LocalSink) Dir() string {
	return s.dir
}

// Save writes content to a temp file and renames it onto a freshly reserved
// name, so a partially written document is never visible.
func (s *LocalSink) Save(ctx context.Context, filename string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := filepath.Base(filename)
	if err := diskspace.CheckAvailableSpace(filepath.Join(s.dir, name), int64(len(content)), diskspace.DefaultSafetyMargin); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.reserve(name)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".appendix-*.tmp")
	if err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		os.Remove(tmpPath)
		os.Remove(target)
	}

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return "", fmt.Errorf("failed to sync document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to close document: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to set document permissions: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to move document into place: %w", err)
	}
	return target, nil
}

// reserve claims the first free variant of name by creating it exclusively.
func (s *LocalSink) reserve(name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(s.dir, candidate)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			f.Close()
			return path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("failed to reserve %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, s.dir)
}
