package annotate

import (
	"context"

	"go.uber.org/zap"

	"github.com/inodb/vibe-pgx/internal/genotype"
	"github.com/inodb/vibe-pgx/internal/vcf"
)

// Querier defines the interface for finding the records at a marker.
// A non-nil error is a query failure, distinct from an empty result.
type Querier interface {
	Query(ctx context.Context, chrom string, pos int64) ([]*vcf.Record, error)
}

// Annotator annotates markers with the genotype observed at their position.
type Annotator struct {
	querier Querier
	decoder *genotype.Decoder
	workers int
	logger  *zap.Logger
}

// NewAnnotator creates a new annotator. A nil decoder decodes the first
// sample's DP.
func NewAnnotator(q Querier, d *genotype.Decoder) *Annotator {
	if d == nil {
		d = genotype.NewDecoder("", "")
	}
	return &Annotator{
		querier: q,
		decoder: d,
		workers: 1,
		logger:  zap.NewNop(),
	}
}

// SetWorkers sets how many markers are queried concurrently. Values below
// one mean sequential processing. Output order never depends on it.
func (a *Annotator) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	a.workers = n
}

// SetLogger sets the logger for warning and info messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Annotate resolves one marker. Only the first record returned for the
// position is decoded; later records at the same site are ignored.
func (a *Annotator) Annotate(ctx context.Context, m Marker) AnnotatedRow {
	records, err := a.querier.Query(ctx, m.Chrom, m.Pos)
	if err != nil {
		return AnnotatedRow{Marker: m, Result: genotype.Missing(), Outcome: OutcomeQueryFailed, Err: err}
	}
	if len(records) == 0 {
		return AnnotatedRow{Marker: m, Result: genotype.Missing(), Outcome: OutcomeNoMatch}
	}
	return AnnotatedRow{Marker: m, Result: a.decoder.Decode(records[0]), Outcome: OutcomeMatched}
}

// AnnotateMarkers annotates markers in order and returns exactly one row per
// marker, row i belonging to markers[i]. Query failures are logged and
// reported as rows with sentinel values; they never stop the batch.
func (a *Annotator) AnnotateMarkers(ctx context.Context, category string, markers []Marker) ([]AnnotatedRow, Stats) {
	rows := make([]AnnotatedRow, 0, len(markers))

	if a.workers <= 1 || len(markers) < 2 {
		for _, m := range markers {
			rows = append(rows, a.Annotate(ctx, m))
		}
	} else {
		items := make(chan WorkItem, 2*a.workers)
		go func() {
			defer close(items)
			for i, m := range markers {
				items <- WorkItem{Seq: i, Marker: m}
			}
		}()

		// fn never fails, so OrderedCollect cannot return an error here.
		_ = OrderedCollect(a.ParallelAnnotate(ctx, items, a.workers), func(r WorkResult) error {
			rows = append(rows, r.Row)
			return nil
		})
	}

	var stats Stats
	for _, r := range rows {
		stats.add(r)
		if r.Outcome == OutcomeQueryFailed {
			a.logger.Warn("variant query failed, marker left unannotated",
				zap.String("category", category),
				zap.Int("row", r.Marker.Row),
				zap.String("chrom", r.Marker.Chrom),
				zap.Int64("pos", r.Marker.Pos),
				zap.Error(r.Err))
		}
	}

	return rows, stats
}

// AnnotateTable annotates every row of a category. All rows are parsed
// before any query is issued, so a malformed row fails the category without
// partial work. The returned table keeps the original columns and row order
// and appends AnnotatedColumns.
func (a *Annotator) AnnotateTable(ctx context.Context, t *Table) (*Table, Stats, error) {
	markers, err := ParseMarkers(t.Name, t.Rows)
	if err != nil {
		return nil, Stats{}, err
	}

	rows, stats := a.AnnotateMarkers(ctx, t.Name, markers)

	out := &Table{
		Name:   t.Name,
		Header: make([]string, 0, len(t.Header)+len(AnnotatedColumns)),
		Rows:   make([][]string, len(rows)),
	}
	out.Header = append(out.Header, t.Header...)
	out.Header = append(out.Header, AnnotatedColumns...)
	for i, r := range rows {
		out.Rows[i] = r.Fields()
	}

	a.logger.Info("annotated category",
		zap.String("category", t.Name),
		zap.Int("markers", stats.Markers),
		zap.Int("matched", stats.Matched),
		zap.Int("no_match", stats.NoMatch),
		zap.Int("uncalled", stats.Uncalled),
		zap.Int("query_failures", stats.QueryFailures))

	return out, stats, nil
}
