// Package query resolves marker coordinates to VCF records.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inodb/vibe-pgx/internal/vcf"
)

// Source returns the records overlapping a single 1-based position, in the
// dataset's native order. An empty result means no variant at the site; a
// non-nil error means the lookup itself failed.
type Source interface {
	Query(ctx context.Context, chrom string, pos int64) ([]*vcf.Record, error)
	Close() error
}

// ErrInvalidLocus is returned for an empty chromosome or non-positive position.
var ErrInvalidLocus = errors.New("invalid locus")

// Failure reports that the variant dataset could not be queried for a
// locus. It is distinct from a query that found nothing.
type Failure struct {
	Chrom string
	Pos   int64
	Err   error
}

func (e *Failure) Error() string {
	return fmt.Sprintf("query %s:%d: %v", e.Chrom, e.Pos, e.Err)
}

func (e *Failure) Unwrap() error {
	return e.Err
}

// IsFailure reports whether err is or wraps a *Failure.
func IsFailure(err error) bool {
	var qf *Failure
	return errors.As(err, &qf)
}

// Adapter wraps a Source with locus validation, an optional per-query
// timeout and chromosome alias fallback. Every error it returns is a
// *Failure. Records found under any spelling win over errors under another.
type Adapter struct {
	source       Source
	timeout      time.Duration
	chromAliases bool
}

// NewAdapter creates an adapter over the given source with chromosome
// aliasing enabled and no timeout.
func NewAdapter(s Source) *Adapter {
	return &Adapter{source: s, chromAliases: true}
}

// SetTimeout bounds each Query call. Zero disables the bound.
func (a *Adapter) SetTimeout(d time.Duration) {
	a.timeout = d
}

// SetChromAliases configures whether a query that finds nothing under the
// given chromosome name is retried under its alternate spelling
// ("chr1" / "1").
func (a *Adapter) SetChromAliases(enabled bool) {
	a.chromAliases = enabled
}

// Query returns the records overlapping chrom:pos.
func (a *Adapter) Query(ctx context.Context, chrom string, pos int64) ([]*vcf.Record, error) {
	chrom = strings.TrimSpace(chrom)
	if chrom == "" || pos <= 0 {
		return nil, &Failure{Chrom: chrom, Pos: pos, Err: ErrInvalidLocus}
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	names := []string{chrom}
	if a.chromAliases {
		if alt := vcf.AlternateChrom(chrom); alt != chrom {
			names = append(names, alt)
		}
	}

	var firstErr error
	for _, name := range names {
		records, err := a.source.Query(ctx, name, pos)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(records) > 0 {
			return records, nil
		}
	}

	// Nothing found: an error under any spelling means the site could not
	// be checked, so it is not reported as an empty site.
	if firstErr != nil {
		return nil, &Failure{Chrom: chrom, Pos: pos, Err: firstErr}
	}
	return nil, nil
}

// Close closes the underlying source.
func (a *Adapter) Close() error {
	return a.source.Close()
}

// overlapping keeps the records whose reference span contains pos,
// preserving order.
func overlapping(records []*vcf.Record, pos int64) []*vcf.Record {
	out := records[:0]
	for _, r := range records {
		if r.Overlaps(pos) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
