// Directory-backed key-value storage.
//
// Information Hiding:
// - One file per key, file names derived from escaped keys
// - Writes go through a temp file and rename so readers never see partial values

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const valueSuffix = ".val"

// DirStorage implements KeyValueStore with one file per key in a directory.
// Another process writing the same directory is visible through Watcher.
type DirStorage struct {
	dir string
}

// OpenDir opens (creating if needed) a directory store.
func OpenDir(dir string) (*DirStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &DirStorage{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *DirStorage) Dir() string {
	return s.dir
}

func (s *DirStorage) path(key string) string {
	return filepath.Join(s.dir, fileNameForKey(key))
}

// Get returns the value stored under key.
func (s *DirStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return string(data), true, nil
}

// Set overwrites the value stored under key atomically.
func (s *DirStorage) Set(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return fmt.Errorf("failed to commit %q: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *DirStorage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Keys lists all stored keys in sorted order.
func (s *DirStorage) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage directory: %w", err)
	}
	keys := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if key, ok := keyForFileName(e.Name()); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op.
func (s *DirStorage) Close() error {
	return nil
}

// fileNameForKey escapes key into a file name. A leading dot is escaped too,
// since dot files are reserved for temp files.
func fileNameForKey(key string) string {
	name := url.PathEscape(key)
	if strings.HasPrefix(name, ".") {
		name = "%2E" + name[1:]
	}
	return name + valueSuffix
}

// keyForFileName reverses fileNameForKey; temp files and foreign files report false.
func keyForFileName(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, valueSuffix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, valueSuffix))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

// Verify DirStorage implements KeyValueStore
var _ KeyValueStore = (*DirStorage)(nil)
