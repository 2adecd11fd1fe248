// Package workspace provides request-scoped temporary storage. Every request
// gets its own arena directory, so concurrent requests never share file names.
package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Arena is a per-request temp directory. It is not safe to share an arena
// across requests; within one request it may be used from several goroutines.
type Arena struct {
	id  string
	dir string

	mu  sync.Mutex
	seq int
}

// New creates a fresh arena under baseDir (os.TempDir() when empty).
func New(baseDir, prefix string) (*Arena, error) {
	if prefix == "" {
		prefix = "pdftool"
	}
	if baseDir != "" {
		if err := os.MkdirAll(baseDir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create workspace base dir: %w", err)
		}
	}
	id := uuid.NewString()
	dir, err := os.MkdirTemp(baseDir, fmt.Sprintf("%s-%s-*", prefix, id[:8]))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return &Arena{id: id, dir: dir}, nil
}

// ID returns the request identifier the arena is keyed by.
func (a *Arena) ID() string { return a.id }

// Dir returns the arena directory.
func (a *Arena) Dir() string { return a.dir }

// Save persists r under a unique name derived from name and returns its path.
func (a *Arena) Save(name string, r io.Reader) (string, error) {
	path := a.Path(name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}

// Path reserves a unique path inside the arena for name. Nothing is created.
func (a *Arena) Path(name string) string {
	a.mu.Lock()
	a.seq++
	n := a.seq
	a.mu.Unlock()
	return filepath.Join(a.dir, fmt.Sprintf("%03d-%s", n, SanitizeName(name)))
}

// Output reserves a path for a generated file with the given extension.
func (a *Arena) Output(ext string) string {
	return a.Path("output" + ext)
}

// Close removes the arena and everything in it.
func (a *Arena) Close() error {
	return os.RemoveAll(a.dir)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName reduces an untrusted upload name to a safe base name.
func SanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = unsafeNameChars.ReplaceAllString(base, "_")
	base = strings.Trim(base, "._")
	if base == "" {
		base = "file"
	}
	const maxLength = 100
	if len(base) > maxLength {
		base = base[len(base)-maxLength:]
	}
	return base
}
