package query

import (
	"context"
	"fmt"

	"github.com/inodb/vibe-pgx/internal/vcf"
)

// MemorySource serves queries from records held in memory. It is used for
// VCFs without a tabix index and in tests.
type MemorySource struct {
	byChrom map[string]*recordIndex
	count   int
}

// NewMemorySource indexes the given records. Their slice order is treated as
// the dataset's native order.
func NewMemorySource(records []*vcf.Record) *MemorySource {
	grouped := make(map[string][]interval)
	for i, r := range records {
		grouped[r.Chrom] = append(grouped[r.Chrom], interval{
			start:  r.Pos,
			end:    r.End(),
			seq:    i,
			record: r,
		})
	}

	s := &MemorySource{byChrom: make(map[string]*recordIndex, len(grouped)), count: len(records)}
	for chrom, ivs := range grouped {
		s.byChrom[chrom] = buildRecordIndex(ivs)
	}
	return s
}

// LoadMemorySource reads every record from a VCF file into memory.
func LoadMemorySource(path string) (*MemorySource, error) {
	p, err := vcf.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	records, err := vcf.ReadAll(p)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return NewMemorySource(records), nil
}

// Query returns the records overlapping chrom:pos in file order.
func (s *MemorySource) Query(ctx context.Context, chrom string, pos int64) ([]*vcf.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx, ok := s.byChrom[chrom]
	if !ok {
		return nil, nil
	}
	return idx.findOverlaps(pos), nil
}

// RecordCount returns the number of indexed records.
func (s *MemorySource) RecordCount() int {
	return s.count
}

// Close is a no-op.
func (s *MemorySource) Close() error {
	return nil
}
