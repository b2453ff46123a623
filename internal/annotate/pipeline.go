package annotate

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Pipeline annotates every category of a panel, one after another.
type Pipeline struct {
	annotator       *Annotator
	continueOnError bool
	logger          *zap.Logger
}

// Result holds the annotated categories in input order.
type Result struct {
	Tables []*Table
	Stats  map[string]Stats
	Failed []string // categories that could not be annotated
}

// NewPipeline creates a pipeline that keeps going when a category fails.
func NewPipeline(a *Annotator) *Pipeline {
	return &Pipeline{
		annotator:       a,
		continueOnError: true,
		logger:          zap.NewNop(),
	}
}

// SetContinueOnError configures whether a failed category is skipped
// (true) or aborts the run (false).
func (p *Pipeline) SetContinueOnError(c bool) {
	p.continueOnError = c
}

// SetLogger sets the logger for warning and info messages.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	p.logger = l
}

// Run annotates the tables in order. Categories are independent: one
// category's failure never changes another's rows. When continuing on
// error, failed categories are left out of Result.Tables and their errors
// are combined in the returned error, which accompanies a usable Result.
func (p *Pipeline) Run(ctx context.Context, tables []*Table) (*Result, error) {
	res := &Result{Stats: make(map[string]Stats, len(tables))}

	var errs error
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return res, multierr.Append(errs, err)
		}

		out, stats, err := p.annotator.AnnotateTable(ctx, t)
		if err != nil {
			if !p.continueOnError {
				return res, err
			}
			p.logger.Error("skipping category", zap.String("category", t.Name), zap.Error(err))
			res.Failed = append(res.Failed, t.Name)
			errs = multierr.Append(errs, err)
			continue
		}

		res.Tables = append(res.Tables, out)
		res.Stats[t.Name] = stats
	}

	return res, errs
}

// Total sums the stats of every annotated category.
func (r *Result) Total() Stats {
	var total Stats
	for _, s := range r.Stats {
		total.Markers += s.Markers
		total.Matched += s.Matched
		total.NoMatch += s.NoMatch
		total.Uncalled += s.Uncalled
		total.QueryFailures += s.QueryFailures
	}
	return total
}
