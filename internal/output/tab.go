// Package output writes annotated panels.
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/inodb/vibe-pgx/internal/annotate"
)

// TabWriter writes annotated tables in tab-delimited format.
type TabWriter struct {
	w *bufio.Writer
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader(header []string) error {
	return tw.writeLine(header)
}

// Write writes a single row.
func (tw *TabWriter) Write(row []string) error {
	return tw.writeLine(row)
}

// WriteTable writes the header followed by every row.
func (tw *TabWriter) WriteTable(t *annotate.Table) error {
	if err := tw.WriteHeader(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := tw.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// fieldCleaner blanks characters that would shift columns or rows.
var fieldCleaner = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func (tw *TabWriter) writeLine(values []string) error {
	cleaned := make([]string, len(values))
	for i, v := range values {
		cleaned[i] = fieldCleaner.Replace(v)
	}
	_, err := tw.w.WriteString(strings.Join(cleaned, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// WriteTablesTSV writes each table to <dir>/<name>.tsv and returns the
// paths written, in table order.
func WriteTablesTSV(dir string, tables []*annotate.Table) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		path := filepath.Join(dir, fileSafe(t.Name)+".tsv")
		if err := writeTSV(path, t); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeTSV(path string, t *annotate.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	tw := NewTabWriter(f)
	if err := tw.WriteTable(t); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// fileSafe replaces path separators and other characters that cannot
// appear in a file name.
func fileSafe(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		return "category"
	}
	return name
}
