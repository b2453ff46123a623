package annotate

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Marker is one panel row: the original fields plus the coordinate parsed
// from the first two of them.
type Marker struct {
	Row    int      // 1-based data row within the category
	Fields []string // original values, in column order
	Chrom  string   // first field, whitespace-trimmed
	Pos    int64    // second field, 1-based
}

// MalformedMarkerError reports a row whose chromosome or position cannot be
// parsed. It is fatal for the category the row belongs to.
type MalformedMarkerError struct {
	Category string
	Row      int
	Column   string // "chromosome" or "position"
	Value    string
	Err      error
}

func (e *MalformedMarkerError) Error() string {
	prefix := fmt.Sprintf("row %d", e.Row)
	if e.Category != "" {
		prefix = fmt.Sprintf("category %q row %d", e.Category, e.Row)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: invalid %s %q: %v", prefix, e.Column, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: invalid %s %q", prefix, e.Column, e.Value)
}

func (e *MalformedMarkerError) Unwrap() error {
	return e.Err
}

var (
	errMissingColumn = errors.New("column missing")
	errEmpty         = errors.New("empty value")
	errNotPositive   = errors.New("must be a positive integer")
)

// ParseMarker parses the chromosome and position from the first two fields
// of a row. The position may be written as a float with no fractional part
// ("100.0"), as spreadsheet tools often export integers that way.
func ParseMarker(row int, fields []string) (Marker, error) {
	m := Marker{Row: row, Fields: fields}

	if len(fields) < 1 {
		return m, &MalformedMarkerError{Row: row, Column: "chromosome", Err: errMissingColumn}
	}
	m.Chrom = strings.TrimSpace(fields[0])
	if m.Chrom == "" {
		return m, &MalformedMarkerError{Row: row, Column: "chromosome", Value: fields[0], Err: errEmpty}
	}

	if len(fields) < 2 {
		return m, &MalformedMarkerError{Row: row, Column: "position", Err: errMissingColumn}
	}
	pos, err := parsePosition(fields[1])
	if err != nil {
		return m, &MalformedMarkerError{Row: row, Column: "position", Value: fields[1], Err: err}
	}
	m.Pos = pos

	return m, nil
}

func parsePosition(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmpty
	}

	pos, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) || f > math.MaxInt64 {
			return 0, errNotPositive
		}
		pos = int64(f)
	}
	if pos <= 0 {
		return 0, errNotPositive
	}
	return pos, nil
}

// ParseMarkers parses every row of a category. The first malformed row
// aborts with a *MalformedMarkerError naming the category.
func ParseMarkers(category string, rows [][]string) ([]Marker, error) {
	markers := make([]Marker, len(rows))
	for i, fields := range rows {
		m, err := ParseMarker(i+1, fields)
		if err != nil {
			var mm *MalformedMarkerError
			if errors.As(err, &mm) {
				mm.Category = category
			}
			return nil, err
		}
		markers[i] = m
	}
	return markers, nil
}
