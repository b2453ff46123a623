// Package annotate attaches the observed genotype and depth to panel markers.
package annotate

import "github.com/inodb/vibe-pgx/internal/genotype"

// Column headers appended to every annotated table, in order.
const (
	GenotypeColumn = "Genotype"
	DepthColumn    = "DP"
)

// AnnotatedColumns are the headers appended after the original columns.
var AnnotatedColumns = []string{GenotypeColumn, DepthColumn}

// Table is one category of the panel: a named sheet with a header and rows.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Outcome classifies how a marker lookup ended.
type Outcome int

const (
	// OutcomeMatched means a record was found and decoded.
	OutcomeMatched Outcome = iota
	// OutcomeNoMatch means the dataset has no record at the marker.
	OutcomeNoMatch
	// OutcomeQueryFailed means the dataset could not be queried.
	OutcomeQueryFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMatched:
		return "matched"
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeQueryFailed:
		return "query_failed"
	}
	return "unknown"
}

// AnnotatedRow is a marker with its decoded genotype and depth.
type AnnotatedRow struct {
	Marker  Marker
	Result  genotype.Result
	Outcome Outcome
	Err     error // set for OutcomeQueryFailed
}

// Fields returns the marker's original fields followed by the genotype and
// depth.
func (r AnnotatedRow) Fields() []string {
	out := make([]string, 0, len(r.Marker.Fields)+len(AnnotatedColumns))
	out = append(out, r.Marker.Fields...)
	return append(out, r.Result.Genotype, r.Result.Depth)
}

// Stats summarises the outcomes of one category.
type Stats struct {
	Markers       int
	Matched       int
	NoMatch       int
	Uncalled      int // matched, but the genotype did not resolve
	QueryFailures int
}

func (s *Stats) add(r AnnotatedRow) {
	s.Markers++
	switch r.Outcome {
	case OutcomeMatched:
		s.Matched++
		if !r.Result.Called() {
			s.Uncalled++
		}
	case OutcomeNoMatch:
		s.NoMatch++
	case OutcomeQueryFailed:
		s.QueryFailures++
	}
}
