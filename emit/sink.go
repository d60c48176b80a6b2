package emit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Sink receives generated files. Implementations must be safe for
// concurrent calls.
type Sink interface {
	// WriteFile writes content to the relative, slash-separated name.
	WriteFile(ctx context.Context, name string, content []byte) error
}

// WriteAll writes files to sink concurrently and returns the first error.
func WriteAll(ctx context.Context, sink Sink, files []File) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, f := range files {
		g.Go(func() error {
			return sink.WriteFile(ctx, f.Path, f.Content)
		})
	}
	return g.Wait()
}

// DirSink writes below a directory on the local filesystem.
type DirSink struct {
	// Root is the base directory for all writes.
	Root string

	// Mode is the file permission mode. Zero means 0644.
	Mode os.FileMode

	// Overwrite replaces existing files. If false, writing a file that
	// exists is an error.
	Overwrite bool
}

// NewDirSink returns a DirSink that overwrites files under root.
func NewDirSink(root string) *DirSink {
	return &DirSink{Root: root, Mode: 0644, Overwrite: true}
}

// WriteFile creates parent directories as needed and writes atomically
// through a temp file in the target directory.
func (s *DirSink) WriteFile(ctx context.Context, name string, content []byte) error {
	if err := ValidatePath(name); err != nil {
		return fmt.Errorf("invalid path %q: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	full := filepath.Join(s.Root, filepath.FromSlash(name))
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	mode := s.Mode
	if mode == 0 {
		mode = 0644
	}

	tmp, err := os.CreateTemp(dir, ".rpcontract-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	_, werr := tmp.Write(content)
	cerr := tmp.Close()
	switch {
	case werr != nil:
		cleanup()
		return fmt.Errorf("write temp file: %w", werr)
	case cerr != nil:
		cleanup()
		return fmt.Errorf("close temp file: %w", cerr)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return fmt.Errorf("set file mode: %w", err)
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return err
	}

	if s.Overwrite {
		if err := os.Rename(tmpName, full); err != nil {
			cleanup()
			return fmt.Errorf("rename temp file: %w", err)
		}
		return nil
	}

	// Link fails if the target exists, without a stat+rename race.
	err = os.Link(tmpName, full)
	cleanup()
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("file already exists: %q", name)
	}
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	return nil
}

// MemorySink keeps generated files in memory.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// WriteFile stores a copy of content.
func (s *MemorySink) WriteFile(ctx context.Context, name string, content []byte) error {
	if err := ValidatePath(name); err != nil {
		return fmt.Errorf("invalid path %q: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = bytes.Clone(content)
	return nil
}

// Files returns a copy of every stored file.
func (s *MemorySink) Files() map[string][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := maps.Clone(s.files)
	for k, v := range out {
		out[k] = bytes.Clone(v)
	}
	return out
}

// Get returns a copy of one file, or nil if it was never written.
func (s *MemorySink) Get(name string) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return bytes.Clone(s.files[name])
}

// Reset drops every stored file.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.files)
}

// ValidatePath checks that name is a clean relative slash path with no
// ".." elements.
func ValidatePath(name string) error {
	switch {
	case name == "":
		return errors.New("path is empty")
	case strings.HasPrefix(name, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" || hasDrive(name):
		return errors.New("absolute paths not allowed")
	case strings.Contains(name, `\`):
		return errors.New("backslash in path")
	}
	for _, elem := range strings.Split(name, "/") {
		if elem == ".." {
			return errors.New("path traversal not allowed")
		}
	}
	if cleaned := path.Clean(name); cleaned != name {
		return fmt.Errorf("path is not clean (expected %q, got %q)", cleaned, name)
	}
	return nil
}

func hasDrive(name string) bool {
	if len(name) < 2 || name[1] != ':' {
		return false
	}
	c := name[0] | 0x20
	return c >= 'a' && c <= 'z'
}
