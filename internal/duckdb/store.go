// Package duckdb stores the calls of one VCF in DuckDB so that marker
// lookups can be served by SQL instead of rescanning or re-indexing the file.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding imported VCF calls.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	// One row per record and sample. Records without sample columns are
	// stored once with sample_idx -1.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS calls (
		seq BIGINT,
		chrom VARCHAR,
		pos BIGINT,
		end_pos BIGINT,
		id VARCHAR,
		ref VARCHAR,
		alt VARCHAR,
		sample_idx INTEGER,
		sample VARCHAR,
		gt VARCHAR,
		phased BOOLEAN,
		fields VARCHAR
	)`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS sources (
		path VARCHAR PRIMARY KEY,
		size BIGINT,
		mod_time_ns BIGINT,
		records BIGINT
	)`)
	return err
}
