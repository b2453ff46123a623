package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// IsCurrent reports whether the store already holds an import of a file
// with the same path, size and modification time.
func (s *Store) IsCurrent(fp FileFingerprint) (bool, error) {
	var size, modTime int64
	err := s.db.QueryRow(`SELECT size, mod_time_ns FROM sources WHERE path=?`, fp.Path).Scan(&size, &modTime)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query source fingerprint: %w", err)
	}
	return size == fp.Size && modTime == fp.ModTime.UnixNano(), nil
}
