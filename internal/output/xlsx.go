package output

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/inodb/vibe-pgx/internal/annotate"
)

// Default workbook font.
const (
	DefaultFontFamily = "Gilroy Medium"
	DefaultFontSize   = 12
)

const maxSheetName = 31

// ErrNoTables is returned when there is nothing to put in a workbook.
var ErrNoTables = errors.New("no tables to write")

// Font is the font applied to every written cell.
type Font struct {
	Family string
	Size   float64
}

// XLSXWriter writes annotated tables to a workbook, one sheet per table.
type XLSXWriter struct {
	font   Font
	logger *zap.Logger
}

// NewXLSXWriter creates a workbook writer. Zero font fields fall back to
// the defaults.
func NewXLSXWriter(font Font) *XLSXWriter {
	if font.Family == "" {
		font.Family = DefaultFontFamily
	}
	if font.Size <= 0 {
		font.Size = DefaultFontSize
	}
	return &XLSXWriter{font: font, logger: zap.NewNop()}
}

// SetLogger sets the logger for debug messages.
func (xw *XLSXWriter) SetLogger(l *zap.Logger) {
	xw.logger = l
}

// WriteFile writes the workbook to path.
func (xw *XLSXWriter) WriteFile(path string, tables []*annotate.Table) error {
	f, err := xw.build(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

// Write writes the workbook to w.
func (xw *XLSXWriter) Write(w io.Writer, tables []*annotate.Table) error {
	f, err := xw.build(tables)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func (xw *XLSXWriter) build(tables []*annotate.Table) (*excelize.File, error) {
	if len(tables) == 0 {
		return nil, ErrNoTables
	}

	f := excelize.NewFile()
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Family: xw.font.Family, Size: xw.font.Size},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating style: %w", err)
	}

	used := make(map[string]bool, len(tables))
	for i, t := range tables {
		name := SheetName(t.Name, used)
		if name != t.Name {
			xw.logger.Debug("renamed sheet", zap.String("category", t.Name), zap.String("sheet", name))
		}

		if i == 0 {
			err = f.SetSheetName(f.GetSheetName(0), name)
		} else {
			_, err = f.NewSheet(name)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("creating sheet %q: %w", name, err)
		}

		if err := writeSheet(f, name, t, style); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing sheet %q: %w", name, err)
		}
	}
	f.SetActiveSheet(0)

	return f, nil
}

func writeSheet(f *excelize.File, sheet string, t *annotate.Table, style int) error {
	width := len(t.Header)
	rows := make([][]string, 0, len(t.Rows)+1)
	rows = append(rows, t.Header)
	for _, row := range t.Rows {
		rows = append(rows, row)
		width = max(width, len(row))
	}

	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for c, v := range row {
			if r == 0 {
				values[c] = v
			} else {
				values[c] = CellValue(v)
			}
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	if width == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(width, len(rows))
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

// CellValue converts numeric-looking text to a number so spreadsheet
// formulas and sorting treat it as such. Values with leading zeros stay text.
func CellValue(s string) any {
	v := strings.TrimSpace(s)
	if v == "" || v != s {
		return s
	}
	if len(v) > 1 && v[0] == '0' && v[1] != '.' {
		return s
	}
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if strings.ContainsAny(v, "eEnNiI") {
		// Leave exponents and NaN/Inf spellings as typed.
		return s
	}
	if fl, err := strconv.ParseFloat(v, 64); err == nil {
		return fl
	}
	return s
}

// SheetName returns a valid, unused worksheet name for a category and
// records it in used. Names are compared case-insensitively, as Excel does.
func SheetName(category string, used map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(category))
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Sheet"
	}
	name = truncate(name, maxSheetName)

	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncate(name, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
