package query

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/brentp/irelate/interfaces"
	"github.com/carbocation/bix"
	"github.com/carbocation/vcfgo"

	"github.com/inodb/vibe-pgx/internal/vcf"
)

// locus is a single-base region in tabix coordinates (0-based, half-open).
type locus struct {
	chrom string
	start int
	end   int
}

func (l locus) Chrom() string {
	return l.chrom
}

func (l locus) Start() uint32 {
	return uint32(l.start)
}

func (l locus) End() uint32 {
	return uint32(l.end)
}

// TabixSource queries a bgzipped VCF through its .tbi index.
type TabixSource struct {
	mu   sync.Mutex // bix readers share one bgzf stream
	tbx  *bix.Bix
	path string
}

// NewTabixSource opens path and its path.tbi index.
func NewTabixSource(path string) (*TabixSource, error) {
	tbx, err := bix.New(path)
	if err != nil {
		return nil, fmt.Errorf("open tabix index for %s: %w", path, err)
	}
	return &TabixSource{tbx: tbx, path: path}, nil
}

// Query returns the records overlapping chrom:pos in file order.
func (s *TabixSource) Query(ctx context.Context, chrom string, pos int64) ([]*vcf.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vals, err := s.tbx.Query(locus{chrom: chrom, start: int(pos - 1), end: int(pos)})
	if err != nil {
		return nil, fmt.Errorf("tabix query: %w", err)
	}
	defer vals.Close()

	sampleNames := s.tbx.VReader.Header.SampleNames

	var records []*vcf.Record
	for {
		v, err := vals.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tabix record: %w", err)
		}

		// Unwrap to get to the vcfgo variant
		wrapped, ok := v.(interfaces.VarWrap)
		if !ok {
			return nil, fmt.Errorf("unexpected tabix record type %T at %s:%d", v, v.Chrom(), v.End())
		}
		variant, ok := wrapped.IVariant.(*vcfgo.Variant)
		if !ok {
			return nil, fmt.Errorf("unexpected variant type %T at %s:%d", wrapped.IVariant, v.Chrom(), v.End())
		}

		if err := s.tbx.VReader.Header.ParseSamples(variant); err != nil {
			return nil, fmt.Errorf("parse samples at %s:%d: %w", variant.Chromosome, variant.Pos, err)
		}

		records = append(records, vcf.FromVariant(variant, sampleNames))

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	return overlapping(records, pos), nil
}

// Close closes the index and data file.
func (s *TabixSource) Close() error {
	return s.tbx.Close()
}
