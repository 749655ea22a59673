package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/datosviales/siniestros-etl/internal/domain"
)

// ProcessedStore manages the processed data area where cleaned tables and
// the run report land.
type ProcessedStore struct {
	root string
}

// NewProcessedStore creates a store rooted at root.
func NewProcessedStore(root string) *ProcessedStore {
	return &ProcessedStore{root: root}
}

// Root returns the processed data root directory.
func (s *ProcessedStore) Root() string {
	return s.root
}

// Path returns the location of a processed artifact.
func (s *ProcessedStore) Path(name string) string {
	return filepath.Join(s.root, name)
}

// WriteTable writes a cleaned table as a UTF-8 CSV with a header row.
func (s *ProcessedStore) WriteTable(name string, t domain.Table) (string, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("create processed dir: %w", err)
	}

	path := s.Path(name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// WriteReport writes the plain-text processing report.
func (s *ProcessedStore) WriteReport(name, contents string) (string, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("create processed dir: %w", err)
	}
	path := s.Path(name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
