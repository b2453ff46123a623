// Package input reads marker panels into annotation tables.
package input

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/csimplestring/go-csv/detector"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/inodb/vibe-pgx/internal/annotate"
)

// delimitedExts are the extensions read as delimited text, alone or from a directory.
var delimitedExts = map[string]bool{
	".tsv": true,
	".csv": true,
	".txt": true,
}

// ReadTables reads every category of a panel. Workbooks yield one table per
// sheet in sheet order; delimited text files yield a single table named
// after the file; a directory yields one table per delimited file, sorted
// by file name.
func ReadTables(path string) ([]*annotate.Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening panel: %w", err)
	}
	if info.IsDir() {
		return readDir(path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".xlsx" || ext == ".xlsm":
		return ReadXLSX(path)
	case ext == ".xls":
		return ReadXLS(path)
	case delimitedExts[ext]:
		t, err := ReadDelimited(path)
		if err != nil {
			return nil, err
		}
		return []*annotate.Table{t}, nil
	default:
		return nil, fmt.Errorf("unsupported panel format %q", ext)
	}
}

func readDir(dir string) ([]*annotate.Table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading panel directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !delimitedExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("no delimited files in panel directory %s", dir)
	}

	tables := make([]*annotate.Table, 0, len(names))
	for _, name := range names {
		t, err := ReadDelimited(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// ReadXLSX reads every sheet of an xlsx workbook.
func ReadXLSX(path string) ([]*annotate.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	var tables []*annotate.Table
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
		}
		tables = append(tables, newTable(sheet, rows))
	}
	return tables, nil
}

// ReadXLS reads every sheet of a legacy BIFF workbook.
func ReadXLS(path string) ([]*annotate.Table, error) {
	wb, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}

	var tables []*annotate.Table
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			return nil, fmt.Errorf("reading sheet %d: sheet is empty", i)
		}

		var rows [][]string
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			values := make([]string, 0, row.LastCol()+1)
			for c := 0; c <= row.LastCol(); c++ {
				values = append(values, row.Col(c))
			}
			rows = append(rows, values)
		}
		tables = append(tables, newTable(sheet.Name, rows))
	}
	return tables, nil
}

// ReadDelimited reads a delimited text file as one table named after the
// file stem. The delimiter is sniffed from the file contents.
func ReadDelimited(path string) (*annotate.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening panel: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseDelimited(name, f)
}

// ParseDelimited reads delimited text from r as the named table.
func ParseDelimited(name string, r io.Reader) (*annotate.Table, error) {
	br := bufio.NewReader(r)
	sample, err := br.Peek(64 * 1024)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	cr := csv.NewReader(br)
	cr.Comma = DetectDelimiter(string(sample))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return newTable(name, rows), nil
}

// DetectDelimiter returns the most likely delimiter of the sample. Tabs win
// when the first line has any, matching how panels are usually exported.
func DetectDelimiter(sample string) rune {
	first, _, _ := strings.Cut(sample, "\n")
	if strings.Contains(first, "\t") {
		return '\t'
	}

	d := detector.New()
	delimiters := d.DetectDelimiter(strings.NewReader(sample), '"')
	if len(delimiters) > 0 && delimiters[0] != "" {
		return rune(delimiters[0][0])
	}
	return ','
}

// newTable splits the header from the data rows, skips blank rows and pads
// short rows to the header width.
func newTable(name string, rows [][]string) *annotate.Table {
	kept := rows[:0:0]
	for _, row := range rows {
		if !blank(row) {
			kept = append(kept, row)
		}
	}

	t := &annotate.Table{Name: name}
	if len(kept) == 0 {
		return t
	}

	t.Header = trimRight(kept[0])
	t.Rows = make([][]string, 0, len(kept)-1)
	for _, row := range kept[1:] {
		if len(row) < len(t.Header) {
			padded := make([]string, len(t.Header))
			copy(padded, row)
			row = padded
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func trimRight(row []string) []string {
	n := len(row)
	for n > 0 && strings.TrimSpace(row[n-1]) == "" {
		n--
	}
	return row[:n]
}
