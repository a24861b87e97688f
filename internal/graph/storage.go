package graph

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// tempDirName holds in-progress writes so a crash never leaves a half-written graph
// next to the real output.
const tempDirName = ".tmp"

// Storage writes call graph files into one output directory.
type Storage interface {
	// Save writes a project's call graph atomically and returns the final path.
	Save(project string, r *Registry) (string, error)
}

// storage implements Storage with atomic write support.
type storage struct {
	outputDir string
}

// NewStorage creates a storage rooted at outputDir, creating it if needed.
func NewStorage(outputDir string) (Storage, error) {
	if err := os.MkdirAll(filepath.Join(outputDir, tempDirName), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &storage{outputDir: outputDir}, nil
}

// Save writes to a temp file first and renames it into place.
func (s *storage) Save(project string, r *Registry) (string, error) {
	if project == "" {
		return "", fmt.Errorf("project name is required")
	}

	tmp, err := os.CreateTemp(filepath.Join(s.outputDir, tempDirName), project+"-*.json")
	if err != nil {
		return "", fmt.Errorf("failed to create temp call graph file: %w", err)
	}
	tempPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := Encode(w, r); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to write temp call graph file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync temp call graph file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp call graph file: %w", err)
	}

	// Atomic rename (POSIX guarantees atomicity)
	finalPath := s.path(project)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		committed = true
		return "", fmt.Errorf("failed to rename temp call graph file: %w", err)
	}
	committed = true

	return finalPath, nil
}

func (s *storage) path(project string) string {
	return filepath.Join(s.outputDir, OutputFileName(project))
}

// LoadFile reads a call graph JSON file written by Save.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read call graph file: %w", err)
	}

	r := NewRegistry()
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to parse call graph JSON: %w", err)
	}
	return r, nil
}
