package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

type LocalStorage struct {
	dir string
}

func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{dir: dir}
}

// Write creates the root directory and its parents if needed, then writes
// name below it.
func (s *LocalStorage) Write(_ context.Context, name string, data []byte) error {
	if err := s.EnsureDirectory(); err != nil {
		return err
	}

	if err := os.WriteFile(s.Location(name), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (s *LocalStorage) Location(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *LocalStorage) EnsureDirectory() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
