package zarr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DirectoryStore reads a zarr hierarchy from a local directory.
type DirectoryStore struct {
	root string
}

// NewDirectoryStore returns a store rooted at dir. The directory must
// exist.
func NewDirectoryStore(dir string) (*DirectoryStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening directory store: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening directory store: %s is not a directory", dir)
	}
	return &DirectoryStore{root: dir}, nil
}

// Root returns the store directory.
func (d *DirectoryStore) Root() string {
	return d.root
}

func (d *DirectoryStore) path(key string) (string, error) {
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid key %q", key)
		}
	}
	return filepath.Join(d.root, filepath.FromSlash(key)), nil
}

// Get reads the file at key.
func (d *DirectoryStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := d.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		return nil, err
	}
	return data, nil
}

// Set writes value to the file at key, creating parent directories.
func (d *DirectoryStore) Set(_ context.Context, key string, value []byte) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, value, 0o644)
}

// ListDir returns the entries of the directory at prefix.
func (d *DirectoryStore) ListDir(_ context.Context, prefix string) ([]string, error) {
	p, err := d.path(strings.Trim(prefix, "/"))
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
