package query

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/inodb/vibe-pgx/internal/duckdb"
)

// Backends accepted by Open.
const (
	BackendAuto     = "auto"
	BackendTabix    = "tabix"
	BackendBcftools = "bcftools"
	BackendMemory   = "memory"
	BackendDuckDB   = "duckdb"
)

// Options configures Open.
type Options struct {
	Backend  string // one of the Backend constants; empty means auto
	Bcftools string // bcftools executable for BackendBcftools
}

// Open creates a Source for the dataset at path.
func Open(path string, opts Options) (Source, error) {
	backend := opts.Backend
	if backend == "" || backend == BackendAuto {
		backend = DetectBackend(path)
	}

	switch backend {
	case BackendTabix:
		return NewTabixSource(path)
	case BackendBcftools:
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("open variant dataset: %w", err)
		}
		return NewBcftoolsSource(opts.Bcftools, path), nil
	case BackendMemory:
		return LoadMemorySource(path)
	case BackendDuckDB:
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("open variant dataset: %w", err)
		}
		return duckdb.Open(path)
	default:
		return nil, fmt.Errorf("unknown query backend %q", backend)
	}
}

// DetectBackend picks a backend from the dataset path: DuckDB files by
// extension, tabix when a .tbi index sits next to the file, otherwise an
// in-memory scan.
func DetectBackend(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".duckdb", ".db":
		return BackendDuckDB
	}
	if _, err := os.Stat(path + ".tbi"); err == nil {
		return BackendTabix
	}
	return BackendMemory
}
