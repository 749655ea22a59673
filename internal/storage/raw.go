// Package storage owns the on-disk layout of the raw and processed data
// areas.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jonboulle/clockwork"
)

// provenanceFile is the append-only download log kept in each source's
// raw directory.
const provenanceFile = "fuentes_info.txt"

// ProvenanceEntry is one download record for the provenance log.
type ProvenanceEntry struct {
	Source  string // human-readable dataset title
	URL     string
	Period  string // optional, e.g. "2018-2024"
	RunID   string
	SavedTo string
}

// RawStore manages the raw data area: one subdirectory per source holding
// files exactly as downloaded, plus the provenance log.
type RawStore struct {
	root  string
	clock clockwork.Clock
}

// NewRawStore creates a store rooted at root. The directory is created
// lazily on first write.
func NewRawStore(root string, clock clockwork.Clock) *RawStore {
	return &RawStore{root: root, clock: clock}
}

// Root returns the raw data root directory.
func (s *RawStore) Root() string {
	return s.root
}

// SourceDir returns the directory holding one source's raw files.
func (s *RawStore) SourceDir(source string) string {
	return filepath.Join(s.root, source)
}

// WriteFile stores one raw file under the source's directory, creating
// parent directories as needed. name may contain forward-slash
// subdirectories so archive entries keep their internal layout.
func (s *RawStore) WriteFile(source, name string, data []byte) (string, error) {
	path := filepath.Join(s.SourceDir(source), filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create raw dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Glob lists the source's raw files matching pattern, sorted by path.
func (s *RawStore) Glob(source, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.SourceDir(source), pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// AppendProvenance records a download in the source's provenance log.
// The log is append-only; repeated runs keep their history.
func (s *RawStore) AppendProvenance(source string, e ProvenanceEntry) error {
	if err := os.MkdirAll(s.SourceDir(source), 0o755); err != nil {
		return fmt.Errorf("create raw dir: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Fuente: %s\n", e.Source)
	fmt.Fprintf(&b, "URL: %s\n", e.URL)
	if e.Period != "" {
		fmt.Fprintf(&b, "Rango: %s\n", e.Period)
	}
	fmt.Fprintf(&b, "Fecha de descarga: %s\n", s.clock.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Run: %s\n", e.RunID)
	fmt.Fprintf(&b, "Guardado en: %s\n\n", e.SavedTo)

	path := filepath.Join(s.SourceDir(source), provenanceFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open provenance log: %w", err)
	}
	_, werr := f.WriteString(b.String())
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("append provenance: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("close provenance log: %w", cerr)
	}
	return nil
}
