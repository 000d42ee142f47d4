// Package storage provides durable key-value implementations of
// gestion.Storage. The session layer keeps a single key holding the
// serialized identity snapshot.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gestion "github.com/Abraham03/gestion-go"
)

// File stores each key as a file under a directory. Writes go through a
// temporary file and rename so readers never observe a partial snapshot.
type File struct {
	dir string
	mu  sync.Mutex
}

var _ gestion.Storage = (*File)(nil)

// NewFile creates a file-backed store rooted at dir, creating the directory
// if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("gestion/storage: dir cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("gestion/storage: create dir: %w", err)
	}
	return &File{dir: dir}, nil
}

// path maps a key to a file name. Path separators in keys are flattened so a
// key can never escape the storage directory.
func (f *File) path(key string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(f.dir, name+".json")
}

// Read returns the stored value for key and whether it exists.
func (f *File) Read(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("gestion/storage: read %q: %w", key, err)
	}
	return data, true, nil
}

// Write stores value under key atomically.
func (f *File) Write(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	dst := f.path(key)
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("gestion/storage: write %q: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("gestion/storage: write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("gestion/storage: write %q: %w", key, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("gestion/storage: write %q: %w", key, err)
	}
	return nil
}

// Delete removes the key. Missing keys are not an error.
func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("gestion/storage: delete %q: %w", key, err)
	}
	return nil
}

// Memory is a map-backed store for tests and ephemeral runs.
type Memory struct {
	mu sync.Mutex
	m  map[string][]byte
}

var _ gestion.Storage = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string][]byte)}
}

// Read returns the stored value for key and whether it exists.
func (s *Memory) Read(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

// Write stores value under key.
func (s *Memory) Write(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.m[key] = cp
	return nil
}

// Delete removes the key.
func (s *Memory) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
